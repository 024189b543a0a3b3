package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"clinic-chat/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one websocket connection of a participant.
type Client struct {
	manager *WSManager
	Conn    *websocket.Conn
	Send    chan []byte
	ID      string // participant id
	room    string
}

type joinRequest struct {
	client *Client
	room   string
}

type delivery struct {
	rooms  []string
	frame  []byte
	origin *Client // never receives its own frame
	direct *Client
}

// WSManager groups connections into conversation rooms and fans messages
// out to them.
type WSManager struct {
	rooms      map[string]map[*Client]bool
	clients    map[*Client]bool
	join       chan joinRequest
	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}
	mu         sync.RWMutex

	node   string
	fanout Fanout
}

// NewWSManager creates a relay hub. node identifies this instance on the
// fan-out and defaults to a random id; fanout may be nil.
func NewWSManager(node string, fanout Fanout) *WSManager {
	if node == "" {
		node = uuid.NewString()
	}
	return &WSManager{
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		join:       make(chan joinRequest),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, sendBuffer),
		done:       make(chan struct{}),
		node:       node,
		fanout:     fanout,
	}
}

// Node identifies this relay instance to its peers.
func (m *WSManager) Node() string { return m.node }

// Run processes registrations and deliveries until ctx is done.
func (m *WSManager) Run(ctx context.Context) {
	defer close(m.done)
	if m.fanout != nil {
		err := m.fanout.Subscribe(func(rooms []string, frame []byte) {
			m.enqueue(delivery{rooms: rooms, frame: frame})
		})
		if err != nil {
			log.Error().Err(err).Msg("fan-out subscription failed, serving local rooms only")
		}
	}

	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			log.Debug().Str("user", client.ID).Msg("client connected")

		case req := <-m.join:
			m.mu.Lock()
			if !m.clients[req.client] {
				m.mu.Unlock()
				continue
			}
			m.leaveLocked(req.client)
			if m.rooms[req.room] == nil {
				m.rooms[req.room] = make(map[*Client]bool)
			}
			m.rooms[req.room][req.client] = true
			req.client.room = req.room
			m.mu.Unlock()
			log.Debug().Str("user", req.client.ID).Str("room", req.room).Msg("joined room")

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				m.leaveLocked(client)
				delete(m.clients, client)
				close(client.Send)
			}
			m.mu.Unlock()
			log.Debug().Str("user", client.ID).Msg("client disconnected")

		case d := <-m.broadcast:
			m.deliver(d)

		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.Send)
			}
			m.rooms = make(map[string]map[*Client]bool)
			m.mu.Unlock()
			return
		}
	}
}

func (m *WSManager) leaveLocked(c *Client) {
	if c.room == "" {
		return
	}
	if members, ok := m.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, c.room)
		}
	}
	c.room = ""
}

func (m *WSManager) deliver(d delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.direct != nil {
		if m.clients[d.direct] {
			m.sendLocked(d.direct, d.frame)
		}
		return
	}
	seen := make(map[*Client]bool)
	for _, room := range d.rooms {
		for client := range m.rooms[room] {
			if client == d.origin || seen[client] {
				continue
			}
			seen[client] = true
			m.sendLocked(client, d.frame)
		}
	}
}

func (m *WSManager) sendLocked(client *Client, frame []byte) {
	select {
	case client.Send <- frame:
	default:
		log.Warn().Str("user", client.ID).Msg("send buffer full, dropping client")
		m.leaveLocked(client)
		delete(m.clients, client)
		close(client.Send)
	}
}

// enqueue hands d to the run loop unless it has stopped.
func (m *WSManager) enqueue(d delivery) bool {
	select {
	case m.broadcast <- d:
		return true
	case <-m.done:
		return false
	}
}

// Attach registers a connection for participantID and starts its pumps.
func (m *WSManager) Attach(conn *websocket.Conn, participantID string) *Client {
	client := &Client{
		manager: m,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		ID:      participantID,
	}
	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return client
	}
	go client.WriteMessages()
	go client.ReadMessages()
	return client
}

var (
	ErrInvalidSender = errors.New("sender does not match connection")
	ErrRelayStopped  = errors.New("relay stopped")
)

// Publish validates and stamps msg, then delivers it to every member of its
// rooms except origin. Other connections of the same sender still receive it.
func (m *WSManager) Publish(msg models.Message, origin *Client) (models.Message, error) {
	if origin != nil && msg.SenderID != origin.ID {
		return msg, ErrInvalidSender
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ConversationKey = models.ConversationKey(msg.SenderID, msg.ReceiverID)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	frame, err := models.NewFrame(models.EventReceiveMessage, msg)
	if err != nil {
		return msg, err
	}
	frame.Node = m.node
	data, err := json.Marshal(frame)
	if err != nil {
		return msg, err
	}

	rooms := DeliveryRooms(msg)
	if !m.enqueue(delivery{rooms: rooms, frame: data, origin: origin}) {
		return msg, ErrRelayStopped
	}
	if m.fanout != nil {
		if err := m.fanout.Publish(rooms, data); err != nil {
			log.Warn().Err(err).Str("id", msg.ID).Msg("fan-out publish failed")
		}
	}
	return msg, nil
}

// RoomSize returns the number of connections in room.
func (m *WSManager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// Connected returns the number of open connections.
func (m *WSManager) Connected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (c *Client) ReadMessages() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame models.Frame
		if err := c.Conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("user", c.ID).Msg("websocket read error")
			}
			return
		}

		switch frame.Event {
		case models.EventJoinRoom:
			var req models.JoinRequest
			if err := json.Unmarshal(frame.Data, &req); err != nil {
				c.sendError("invalid joinRoom payload")
				continue
			}
			if !CanJoin(c.ID, req) {
				c.sendError("not a member of this conversation")
				continue
			}
			select {
			case c.manager.join <- joinRequest{client: c, room: req.RoomKey()}:
			case <-c.manager.done:
				return
			}

		case models.EventSendMessage:
			var msg models.Message
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				c.sendError("invalid sendMessage payload")
				continue
			}
			if _, err := c.manager.Publish(msg, c); err != nil {
				c.sendError(err.Error())
			}

		default:
			log.Debug().Str("user", c.ID).Str("event", frame.Event).Msg("ignoring event")
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError queues an error frame for this connection only.
func (c *Client) sendError(reason string) {
	frame, err := models.NewFrame(models.EventError, map[string]string{"error": reason})
	if err != nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.manager.enqueue(delivery{frame: data, direct: c})
}

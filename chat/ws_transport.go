package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"clinic-chat/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WSTransport opens channels over a websocket to the relay at BaseURL.
type WSTransport struct {
	BaseURL string
	Dialer  *websocket.Dialer
	Logger  zerolog.Logger
}

func NewWSTransport(baseURL string, logger zerolog.Logger) *WSTransport {
	return &WSTransport{
		BaseURL: baseURL,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		Logger: logger,
	}
}

func (t *WSTransport) Open(ctx context.Context, req models.JoinRequest, h Handler) (Channel, error) {
	endpoint, err := channelURL(t.BaseURL, req)
	if err != nil {
		h.state(StateFailed)
		return nil, err
	}

	header := http.Header{}
	if token := tokenFrom(ctx); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	h.state(StateConnecting)
	conn, resp, err := t.Dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		h.state(StateFailed)
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	c := &wsChannel{
		conn:    conn,
		send:    make(chan models.Frame, 64),
		done:    make(chan struct{}),
		handler: h,
		log:     t.Logger.With().Str("room", req.RoomKey()).Logger(),
	}

	join, err := models.NewFrame(models.EventJoinRoom, req)
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteJSON(join)
	}
	if err != nil {
		conn.Close()
		h.state(StateFailed)
		return nil, fmt.Errorf("join room: %w", err)
	}

	c.setState(StateConnected)
	go c.writePump()
	go c.readPump()
	return c, nil
}

func channelURL(base string, req models.JoinRequest) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	q := url.Values{}
	q.Set("senderId", req.SenderID)
	if req.ReceiverID != "" {
		q.Set("receiverId", req.ReceiverID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type wsChannel struct {
	conn      *websocket.Conn
	send      chan models.Frame
	done      chan struct{}
	closeOnce sync.Once
	handler   Handler
	log       zerolog.Logger

	mu    sync.Mutex
	state ConnState
}

func (c *wsChannel) Emit(ctx context.Context, event string, payload any) error {
	frame, err := models.NewFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsChannel) Close() error {
	c.shutdown(true)
	return nil
}

func (c *wsChannel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *wsChannel) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.handler.state(s)
	}
}

func (c *wsChannel) shutdown(graceful bool) {
	c.closeOnce.Do(func() {
		close(c.done)
		if graceful {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
		c.conn.Close()
		c.setState(StateDisconnected)
	})
}

func (c *wsChannel) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *wsChannel) readPump() {
	defer c.shutdown(false)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame models.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if !c.closing() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("channel read failed")
			}
			return
		}

		switch frame.Event {
		case models.EventReceiveMessage:
			var msg models.Message
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				c.log.Warn().Err(err).Msg("dropping malformed message")
				continue
			}
			c.handler.message(msg)
		case models.EventError:
			c.log.Warn().RawJSON("data", frame.Data).Msg("relay reported an error")
		default:
			c.log.Debug().Str("event", frame.Event).Msg("ignoring event")
		}
	}
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Warn().Err(err).Str("event", frame.Event).Msg("channel write failed")
				c.shutdown(false)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(false)
				return
			}
		case <-c.done:
			return
		}
	}
}

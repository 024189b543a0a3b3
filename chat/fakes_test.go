package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"clinic-chat/models"

	"github.com/rs/zerolog"
)

var (
	patientP1 = models.Participant{ID: "p1", DisplayName: "Pat One", Role: models.RolePatient}
	patientP2 = models.Participant{ID: "p2", DisplayName: "Pat Two", Role: models.RolePatient}
	doctorD1  = models.Participant{ID: "d1", DisplayName: "Dr. House", Role: models.RoleDoctor}
)

func sessionFor(p models.Participant) models.Session {
	return models.Session{Participant: p, Token: "token-" + p.ID}
}

type fakeChannel struct {
	mu      sync.Mutex
	req     models.JoinRequest
	handler Handler
	emitted []models.Message
	emitErr error
	closed  int
}

func (c *fakeChannel) Emit(_ context.Context, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return ErrChannelClosed
	}
	if c.emitErr != nil {
		return c.emitErr
	}
	if msg, ok := payload.(models.Message); ok && event == models.EventSendMessage {
		c.emitted = append(c.emitted, msg)
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return StateDisconnected
	}
	return StateConnected
}

// deliver simulates an inbound message on the channel.
func (c *fakeChannel) deliver(m models.Message) {
	c.handler.message(m)
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed > 0
}

func (c *fakeChannel) sent() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.emitted...)
}

type fakeTransport struct {
	mu       sync.Mutex
	channels []*fakeChannel
	tokens   []string
	openErr  error
	// log records "open:<room>" and "close:<room>" in call order.
	log []string
}

func (t *fakeTransport) Open(ctx context.Context, req models.JoinRequest, h Handler) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = append(t.tokens, tokenFrom(ctx))
	if t.openErr != nil {
		h.state(StateFailed)
		return nil, t.openErr
	}
	for _, c := range t.channels {
		if c.closed == 0 {
			t.log = append(t.log, "overlap:"+req.RoomKey())
		}
	}
	t.log = append(t.log, "open:"+req.RoomKey())
	ch := &fakeChannel{req: req, handler: h}
	t.channels = append(t.channels, ch)
	h.state(StateConnected)
	return ch, nil
}

func (t *fakeTransport) last() *fakeChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.channels) == 0 {
		return nil
	}
	return t.channels[len(t.channels)-1]
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.channels)
}

func (t *fakeTransport) events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.log...)
}

type historyCall struct {
	kind string
	args []string
}

type fakeHistory struct {
	mu            sync.Mutex
	conversations map[string][]models.Message // keyed by conversation key
	inbox         map[string][]models.Message
	received      map[string][]models.Message
	fetchErr      error
	doctorChatErr error
	registerErr   error
	registerGate  chan struct{} // when set, Register waits for it
	gates         map[string]chan struct{}
	calls         []historyCall
	registered    []models.Message
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		conversations: make(map[string][]models.Message),
		inbox:         make(map[string][]models.Message),
		received:      make(map[string][]models.Message),
		gates:         make(map[string]chan struct{}),
	}
}

// block makes the conversation fetch for key wait until the returned func runs.
func (h *fakeHistory) block(key string) func() {
	gate := make(chan struct{})
	h.mu.Lock()
	h.gates[key] = gate
	h.mu.Unlock()
	return func() { close(gate) }
}

func (h *fakeHistory) record(kind string, args ...string) {
	h.mu.Lock()
	h.calls = append(h.calls, historyCall{kind: kind, args: args})
	h.mu.Unlock()
}

func (h *fakeHistory) Conversation(ctx context.Context, user1, user2 string) ([]models.Message, error) {
	h.record("conversation", user1, user2)
	key := models.ConversationKey(user1, user2)
	h.mu.Lock()
	gate := h.gates[key]
	h.mu.Unlock()
	if gate != nil {
		// ignore ctx so a stale response really arrives late
		<-gate
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}
	return append([]models.Message(nil), h.conversations[key]...), nil
}

func (h *fakeHistory) Received(_ context.Context, receiverID string) ([]models.Message, error) {
	h.record("received", receiverID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}
	return append([]models.Message(nil), h.received[receiverID]...), nil
}

func (h *fakeHistory) DoctorChat(_ context.Context, doctorID string) ([]models.Message, error) {
	h.record("doctor-chat", doctorID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.doctorChatErr != nil {
		return nil, h.doctorChatErr
	}
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}
	return append([]models.Message(nil), h.inbox[doctorID]...), nil
}

func (h *fakeHistory) Register(ctx context.Context, msg models.Message) error {
	h.mu.Lock()
	gate := h.registerGate
	h.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registerErr != nil {
		return h.registerErr
	}
	h.registered = append(h.registered, msg)
	return nil
}

func (h *fakeHistory) registeredMessages() []models.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Message(nil), h.registered...)
}

var errBoom = errors.New("boom")

func newTestClient(t *fakeTransport, h *fakeHistory) *Client {
	return &Client{
		Transport:    t,
		History:      h,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) },
		WriteTimeout: time.Second,
	}
}

func msg(id string, from, to models.Participant, text string) models.Message {
	return models.Message{
		ID:              id,
		ConversationKey: models.ConversationKey(from.ID, to.ID),
		SenderID:        from.ID,
		ReceiverID:      to.ID,
		SenderName:      from.DisplayName,
		SenderRole:      from.Role,
		ReceiverRole:    to.Role,
		Text:            text,
	}
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"clinic-chat/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const eventBuffer = 64

// View is one mounted chat screen. It owns the live channel and the message
// log for the active conversation and tears both down on Close.
type View struct {
	client  *Client
	session models.Session
	log     zerolog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu          sync.Mutex
	counterpart *models.Participant // nil while a doctor browses the inbox
	channel     Channel
	epoch       uint64 // bumped on every conversation switch
	cancelLoad  context.CancelFunc
	health      ConnState
	lastErr     error
	closed      bool

	store    *Store
	contacts *ContactBook // doctors only

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

func newView(c *Client, session models.Session, contacts *ContactBook) *View {
	base, cancel := context.WithCancel(WithToken(context.Background(), session.Token))
	self := session.Participant
	return &View{
		client:     c,
		session:    session,
		log:        c.Logger.With().Str("user", self.ID).Str("role", self.Role.String()).Logger(),
		base:       base,
		cancelBase: cancel,
		store:      NewStore(""),
		contacts:   contacts,
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
	}
}

// Updates delivers change notifications. Notifications are dropped when the
// consumer falls behind; the state accessors always return the latest view.
func (v *View) Updates() <-chan Event { return v.events }

// Done is closed once the view is closed.
func (v *View) Done() <-chan struct{} { return v.done }

func (v *View) Self() models.Participant { return v.session.Participant }

func (v *View) Messages() []models.Message { return v.store.Snapshot() }

// Contacts returns the discovered counterparts; nil for patient views.
func (v *View) Contacts() []models.Contact {
	if v.contacts == nil {
		return nil
	}
	return v.contacts.List()
}

func (v *View) Counterpart() (models.Participant, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.counterpart == nil {
		return models.Participant{}, false
	}
	return *v.counterpart, true
}

func (v *View) Health() ConnState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.health
}

// Err returns the last failure surfaced to the user, if any.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Wait blocks until in-flight history loads and sends have settled.
func (v *View) Wait() { v.wg.Wait() }

// Select switches a doctor's view to the conversation with contact.
func (v *View) Select(ctx context.Context, contact models.Participant) error {
	if v.contacts == nil {
		return ErrNotDoctor
	}
	if contact.ID == "" {
		return ErrMissingCounterpart
	}
	if contact.ID == v.session.Participant.ID {
		return ErrSelfConversation
	}
	return v.activate(ctx, &contact)
}

// Deselect returns a doctor's view to the inbox of all conversations.
func (v *View) Deselect(ctx context.Context) error {
	if v.contacts == nil {
		return ErrNotDoctor
	}
	return v.activate(ctx, nil)
}

// Close tears down the channel and cancels history loads. Durable writes
// already issued are left to finish. Close is idempotent.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.epoch++
	ch := v.channel
	v.channel = nil
	if v.cancelLoad != nil {
		v.cancelLoad()
	}
	v.mu.Unlock()

	v.cancelBase()
	close(v.done)
	if ch != nil {
		return ch.Close()
	}
	return nil
}

// activate makes counterpart the active conversation (nil means the inbox):
// the previous channel is closed first, the log is cleared, history is
// loaded in the background and a new channel is opened.
func (v *View) activate(ctx context.Context, counterpart *models.Participant) error {
	self := v.session.Participant
	req := models.JoinRequest{SenderID: self.ID, ReceiverID: self.ID, Room: models.InboxKey(self.ID)}
	key := req.Room
	if counterpart != nil {
		key = models.ConversationKey(self.ID, counterpart.ID)
		req = models.JoinRequest{SenderID: self.ID, ReceiverID: counterpart.ID, Room: key}
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	previous := v.channel
	v.channel = nil
	if v.cancelLoad != nil {
		v.cancelLoad()
	}
	v.epoch++
	epoch := v.epoch
	v.counterpart = counterpart
	v.health = StateConnecting
	v.lastErr = nil
	v.store.Reset(key, nil)
	loadCtx, cancel := context.WithCancel(v.base)
	v.cancelLoad = cancel
	v.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	v.notify(Event{Kind: EventMessages})

	v.wg.Add(1)
	go v.loadHistory(loadCtx, epoch, key, counterpart)

	openCtx := WithToken(ctx, v.session.Token)
	ch, err := v.client.Transport.Open(openCtx, req, Handler{
		OnMessage: func(m models.Message) { v.receive(epoch, m) },
		OnState:   func(s ConnState) { v.setHealth(epoch, s) },
	})

	v.mu.Lock()
	if epoch != v.epoch || v.closed {
		v.mu.Unlock()
		if ch != nil {
			ch.Close()
		}
		return nil
	}
	if err != nil {
		v.health = StateFailed
		v.lastErr = err
		v.mu.Unlock()
		v.log.Warn().Err(err).Str("room", key).Msg("live channel unavailable")
		v.notify(Event{Kind: EventHealth, State: StateFailed, Err: err})
		return nil
	}
	v.channel = ch
	if s := ch.State(); s == StateConnected || s == StateDisconnected {
		v.health = s
	}
	v.mu.Unlock()
	return nil
}

func (v *View) loadHistory(ctx context.Context, epoch uint64, key string, counterpart *models.Participant) {
	defer v.wg.Done()

	self := v.session.Participant
	var (
		msgs []models.Message
		err  error
	)
	if counterpart != nil {
		msgs, err = v.client.History.Conversation(ctx, self.ID, counterpart.ID)
	} else {
		msgs, err = v.client.loadInbox(ctx, self.ID)
	}

	v.mu.Lock()
	if epoch != v.epoch || v.closed {
		v.mu.Unlock()
		v.log.Debug().Str("room", key).Msg("discarding stale history")
		return
	}
	if err != nil {
		v.lastErr = err
		v.mu.Unlock()
		v.log.Error().Err(err).Str("room", key).Msg("error fetching messages")
		v.notify(Event{Kind: EventHistoryFailed, Err: err})
		return
	}

	for i := range msgs {
		if msgs[i].ConversationKey == "" {
			msgs[i].ConversationKey = msgs[i].Key()
		}
	}
	// Live traffic and local sends that landed while the request was in
	// flight stay after the history; copies already in it are dropped.
	early := v.store.Snapshot()
	v.store.Reset(key, msgs)
	for _, m := range early {
		v.store.Append(m)
	}
	added := 0
	if v.contacts != nil {
		added = v.contacts.ObserveAll(msgs)
	}
	v.mu.Unlock()

	v.notify(Event{Kind: EventMessages})
	if added > 0 {
		v.notify(Event{Kind: EventContacts})
	}
}

// receive handles a message delivered on the channel opened for epoch.
func (v *View) receive(epoch uint64, m models.Message) {
	self := v.session.Participant.ID
	if m.ConversationKey == "" {
		m.ConversationKey = m.Key()
	}

	v.mu.Lock()
	if epoch != v.epoch || v.closed {
		v.mu.Unlock()
		return
	}
	newContact := false
	if v.contacts != nil {
		newContact = v.contacts.Observe(m)
	}
	var belongs bool
	if v.counterpart != nil {
		belongs = m.IsBetween(self, v.counterpart.ID)
	} else {
		belongs = m.SenderID == self || m.ReceiverID == self
	}
	appended := belongs && v.store.Append(m)
	v.mu.Unlock()

	if !belongs {
		v.log.Debug().Str("id", m.ID).Str("key", m.ConversationKey).Msg("ignoring message for another conversation")
	}
	if appended {
		v.notify(Event{Kind: EventMessages})
	}
	if newContact {
		v.notify(Event{Kind: EventContacts})
	}
}

func (v *View) setHealth(epoch uint64, s ConnState) {
	v.mu.Lock()
	if epoch != v.epoch || v.closed || v.health == s {
		v.mu.Unlock()
		return
	}
	v.health = s
	v.mu.Unlock()
	v.notify(Event{Kind: EventHealth, State: s})
}

// Send composes a message to the active counterpart. Blank text or a missing
// counterpart is a no-op and Send reports false. The message is visible in
// the log immediately; publishing and persisting happen in the background
// and only update its delivery status.
func (v *View) Send(text string) (models.Message, bool) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, false
	}

	self := v.session.Participant
	v.mu.Lock()
	if v.closed || v.counterpart == nil {
		v.mu.Unlock()
		return models.Message{}, false
	}
	peer := *v.counterpart
	ch := v.channel
	now := v.client.now()
	msg := models.Message{
		ID:              uuid.NewString(),
		ConversationKey: models.ConversationKey(self.ID, peer.ID),
		SenderID:        self.ID,
		ReceiverID:      peer.ID,
		SenderName:      self.DisplayName,
		SenderRole:      self.Role,
		ReceiverRole:    peer.Role,
		Text:            text,
		SentAt:          now.Format(models.SentAtLayout),
		CreatedAt:       now,
		Status:          models.StatusPending,
	}
	if err := msg.Validate(); err != nil {
		v.mu.Unlock()
		v.log.Warn().Err(err).Msg("refusing to send")
		return models.Message{}, false
	}
	v.store.Append(msg)
	v.mu.Unlock()
	v.notify(Event{Kind: EventMessages})

	wire := msg
	wire.Status = models.StatusNone
	v.wg.Add(2)
	go v.publish(ch, wire)
	go v.persist(wire)
	return msg, true
}

func (v *View) publish(ch Channel, msg models.Message) {
	defer v.wg.Done()
	err := ErrChannelClosed
	if ch != nil {
		ctx, cancel := context.WithTimeout(v.base, v.client.writeTimeout())
		err = ch.Emit(ctx, models.EventSendMessage, msg)
		cancel()
	}
	if err != nil {
		v.log.Warn().Err(err).Str("id", msg.ID).Msg("live delivery failed")
		v.settle(msg.ID, err)
	}
}

func (v *View) persist(msg models.Message) {
	defer v.wg.Done()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(v.base), v.client.writeTimeout())
	defer cancel()
	err := v.client.History.Register(ctx, msg)
	if err != nil {
		v.log.Error().Err(err).Str("id", msg.ID).Msg("error saving message")
	}
	v.settle(msg.ID, err)
}

// settle records the outcome of one of the two writes of a sent message.
// A failure is sticky; success only promotes a pending message.
func (v *View) settle(id string, err error) {
	v.mu.Lock()
	current, ok := v.store.Status(id)
	switch {
	case !ok:
	case err != nil:
		v.store.SetStatus(id, models.StatusFailed)
	case current == models.StatusPending:
		v.store.SetStatus(id, models.StatusDelivered)
	}
	v.mu.Unlock()
	if !ok {
		return
	}
	if err != nil {
		v.notify(Event{Kind: EventDeliveryFailed, MessageID: id, Err: err})
		return
	}
	v.notify(Event{Kind: EventMessages})
}

func (v *View) notify(e Event) {
	select {
	case <-v.done:
		return
	default:
	}
	select {
	case v.events <- e:
	default:
	}
}

// IsMissingData reports whether err means the screen has nothing to show.
func IsMissingData(err error) bool {
	return errors.Is(err, ErrMissingCounterpart) || errors.Is(err, ErrInvalidSession)
}

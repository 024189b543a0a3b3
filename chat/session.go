package chat

import (
	"sync"

	"clinic-chat/models"
)

type SessionEventKind int

const (
	LoggedIn SessionEventKind = iota + 1
	LoggedOut
)

type SessionEvent struct {
	Kind    SessionEventKind
	Session models.Session
}

// SessionBus holds the current login and announces changes to subscribers,
// so screens react to login and logout instead of re-reading stored flags.
type SessionBus struct {
	mu      sync.Mutex
	current *models.Session
	subs    map[int]chan SessionEvent
	nextID  int
}

func NewSessionBus() *SessionBus {
	return &SessionBus{subs: make(map[int]chan SessionEvent)}
}

func (b *SessionBus) Login(s models.Session) error {
	if !s.Valid() {
		return ErrInvalidSession
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = &s
	b.publishLocked(SessionEvent{Kind: LoggedIn, Session: s})
	return nil
}

// Logout clears the session. It is a no-op when nobody is logged in.
func (b *SessionBus) Logout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return
	}
	prev := *b.current
	b.current = nil
	b.publishLocked(SessionEvent{Kind: LoggedOut, Session: prev})
}

func (b *SessionBus) Current() (models.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return models.Session{}, false
	}
	return *b.current, true
}

// Subscribe returns a channel of session changes and a func that ends the
// subscription. A subscriber that is logged in already gets LoggedIn first.
func (b *SessionBus) Subscribe() (<-chan SessionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan SessionEvent, 16)
	b.subs[id] = ch
	if b.current != nil {
		ch <- SessionEvent{Kind: LoggedIn, Session: *b.current}
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *SessionBus) publishLocked(e SessionEvent) {
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

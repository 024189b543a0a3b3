package chat

import (
	"sync"

	"clinic-chat/models"
)

// Store is the in-memory log of the active conversation. Order is arrival
// order; SentAt is never consulted.
type Store struct {
	mu    sync.RWMutex
	key   string
	msgs  []models.Message
	index map[string]int // message id -> position
}

func NewStore(key string) *Store {
	return &Store{key: key, index: make(map[string]int)}
}

// Key is the conversation scope the log currently belongs to.
func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Reset discards the log and replaces it with msgs under a new key.
func (s *Store) Reset(key string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.msgs = make([]models.Message, 0, len(msgs))
	s.index = make(map[string]int, len(msgs))
	for _, m := range msgs {
		s.appendLocked(m)
	}
}

// Append adds msg at the end of the log. A message whose id is already held
// is dropped and Append reports false. Messages without an id are always kept.
func (s *Store) Append(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

func (s *Store) appendLocked(msg models.Message) bool {
	if msg.ID != "" {
		if _, ok := s.index[msg.ID]; ok {
			return false
		}
		s.index[msg.ID] = len(s.msgs)
	}
	s.msgs = append(s.msgs, msg)
	return true
}

// Status returns the delivery status of the message with the given id.
func (s *Store) Status(id string) (models.DeliveryStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.StatusNone, false
	}
	return s.msgs[i].Status, true
}

func (s *Store) SetStatus(id string, status models.DeliveryStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.msgs[i].Status = status
	return true
}

// Snapshot returns a copy of the log safe to hand to renderers.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

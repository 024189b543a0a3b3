package chat

import (
	"sync"

	"clinic-chat/models"
)

// ContactBook is the doctor-side list of counterparts, in discovery order.
// Entries are never removed and the first name seen for an id is kept.
type ContactBook struct {
	mu      sync.RWMutex
	ownerID string
	order   []models.Contact
	index   map[string]int
}

func NewContactBook(ownerID string) *ContactBook {
	return &ContactBook{ownerID: ownerID, index: make(map[string]int)}
}

// Observe records the sender of msg and reports whether it was new.
func (b *ContactBook) Observe(msg models.Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.observeLocked(msg)
}

// ObserveAll records every sender in msgs and returns how many were new.
func (b *ContactBook) ObserveAll(msgs []models.Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	added := 0
	for _, m := range msgs {
		if b.observeLocked(m) {
			added++
		}
	}
	return added
}

func (b *ContactBook) observeLocked(msg models.Message) bool {
	id := msg.SenderID
	if id == "" || id == b.ownerID {
		return false
	}
	if _, ok := b.index[id]; ok {
		return false
	}
	b.index[id] = len(b.order)
	b.order = append(b.order, models.Contact{
		ParticipantID: id,
		DisplayName:   msg.SenderName,
		Role:          msg.SenderRole,
	})
	return true
}

func (b *ContactBook) Get(id string) (models.Contact, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.index[id]
	if !ok {
		return models.Contact{}, false
	}
	return b.order[i], true
}

func (b *ContactBook) List() []models.Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Contact, len(b.order))
	copy(out, b.order)
	return out
}

func (b *ContactBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

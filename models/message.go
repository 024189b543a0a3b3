package models

import (
	"errors"
	"strings"
	"time"
)

// SentAtLayout is the display format of Message.SentAt.
const SentAtLayout = "15:04:05"

var ErrInvalidMessage = errors.New("invalid message")

// DeliveryStatus is tracked only by the sending client.
type DeliveryStatus int

const (
	StatusNone DeliveryStatus = iota
	StatusPending
	StatusDelivered
	StatusFailed
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDelivered:
		return "delivered"
	case StatusFailed:
		return "failed"
	}
	return ""
}

type Message struct {
	Seq             uint64         `json:"-" gorm:"primaryKey;autoIncrement" bson:"seq"` // insertion order in the durable store
	ID              string         `json:"id" gorm:"type:varchar(36);uniqueIndex" bson:"_id"`
	ConversationKey string         `json:"conversationKey" gorm:"type:varchar(80);index" bson:"conversationKey"`
	SenderID        string         `json:"senderId" gorm:"type:varchar(64);index" bson:"senderId"`
	ReceiverID      string         `json:"receiverId" gorm:"type:varchar(64);index" bson:"receiverId"`
	SenderName      string         `json:"senderName,omitempty" gorm:"type:varchar(128)" bson:"senderName"`
	SenderRole      Role           `json:"senderModel" gorm:"type:varchar(16)" bson:"senderModel"`
	ReceiverRole    Role           `json:"receiverModel" gorm:"type:varchar(16)" bson:"receiverModel"`
	Text            string         `json:"text" gorm:"type:text" bson:"text"`
	SentAt          string         `json:"time" bson:"time"` // display only, never compared
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	Status          DeliveryStatus `json:"-" gorm:"-" bson:"-"`
}

// Validate checks the invariants every message must hold before it is sent or stored.
func (m Message) Validate() error {
	switch {
	case m.SenderID == "" || m.ReceiverID == "":
		return errors.Join(ErrInvalidMessage, errors.New("sender and receiver are required"))
	case m.SenderID == m.ReceiverID:
		return errors.Join(ErrInvalidMessage, errors.New("sender and receiver must differ"))
	case strings.TrimSpace(m.Text) == "":
		return errors.Join(ErrInvalidMessage, errors.New("text is empty"))
	}
	return nil
}

// Key returns the conversation key, deriving it from the pair when unset.
func (m Message) Key() string {
	if m.ConversationKey != "" {
		return m.ConversationKey
	}
	return ConversationKey(m.SenderID, m.ReceiverID)
}

// Counterpart returns the id of the other side of the message relative to self.
func (m Message) Counterpart(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// IsBetween reports whether m was exchanged between the two participants.
func (m Message) IsBetween(userID1, userID2 string) bool {
	return (m.SenderID == userID1 && m.ReceiverID == userID2) ||
		(m.SenderID == userID2 && m.ReceiverID == userID1)
}

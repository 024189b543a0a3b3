package models

import "encoding/json"

// Channel events exchanged over the websocket.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// Frame is the envelope of every websocket payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Node  string          `json:"node,omitempty"` // relay node that produced the frame
}

// JoinRequest announces membership of a conversation-scoped group.
type JoinRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
	Room       string `json:"room,omitempty"`
}

// RoomKey resolves which group the request joins. An explicit room wins;
// a request addressed to oneself is the inbox of that participant.
func (j JoinRequest) RoomKey() string {
	switch {
	case j.Room != "":
		return j.Room
	case j.ReceiverID == "" || j.ReceiverID == j.SenderID:
		return InboxKey(j.SenderID)
	}
	return ConversationKey(j.SenderID, j.ReceiverID)
}

func NewFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}

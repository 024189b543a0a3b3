package services

import (
	"clinic-chat/models"
)

// DeliveryRooms lists the groups a message is delivered to: the pair
// conversation and the receiver's inbox, so a doctor browsing all
// conversations still sees it.
func DeliveryRooms(msg models.Message) []string {
	return []string{msg.Key(), models.InboxKey(msg.ReceiverID)}
}

// CanJoin reports whether participantID may join the group req asks for.
// Participants may join their own inbox or a conversation they are part of.
func CanJoin(participantID string, req models.JoinRequest) bool {
	if req.SenderID != participantID {
		return false
	}
	room := req.RoomKey()
	if room == models.InboxKey(participantID) {
		return true
	}
	return req.ReceiverID != "" && req.ReceiverID != participantID &&
		room == models.ConversationKey(participantID, req.ReceiverID)
}

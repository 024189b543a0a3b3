package models

import (
	"sort"
	"strings"
)

// keyEscaper percent-encodes the characters keys use as separators, so
// distinct ids can never produce the same key.
var keyEscaper = strings.NewReplacer("%", "%25", "_", "%5F", ":", "%3A")

// ConversationKey names the conversation between two participants.
// The ids are sorted so both sides derive the same key.
func ConversationKey(userID1, userID2 string) string {
	userIDs := []string{keyEscaper.Replace(userID1), keyEscaper.Replace(userID2)}
	sort.Strings(userIDs)
	return userIDs[0] + "_" + userIDs[1]
}

// InboxKey is the group a doctor joins to receive messages from any
// counterpart. It never equals a ConversationKey.
func InboxKey(userID string) string {
	return "inbox:" + keyEscaper.Replace(userID)
}

// Contact is a counterpart discovered from message traffic.
type Contact struct {
	ParticipantID string `json:"senderId"`
	DisplayName   string `json:"senderName"`
	Role          Role   `json:"senderModel"`
}

func (c Contact) Participant() Participant {
	return Participant{ID: c.ParticipantID, DisplayName: c.DisplayName, Role: c.Role}
}

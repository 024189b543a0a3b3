package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, "d1_p1", ConversationKey("p1", "d1"))
	assert.Equal(t, ConversationKey("p1", "d1"), ConversationKey("d1", "p1"))
	assert.Equal(t, "inbox:d1", InboxKey("d1"))
}

func TestConversationKeysNeverCollide(t *testing.T) {
	assert.NotEqual(t, ConversationKey("a_b", "c"), ConversationKey("a", "b_c"))
	assert.NotEqual(t, ConversationKey("a%5Fb", "c"), ConversationKey("a_b", "c"))
	assert.NotEqual(t, ConversationKey("inbox", "x"), InboxKey("x"))
	assert.NotEqual(t, ConversationKey("inbox:x", "y"), InboxKey("x_y"))
	assert.NotEqual(t, InboxKey("a_b"), InboxKey("a:b"))
	assert.Equal(t, ConversationKey("a_b", "c"), ConversationKey("c", "a_b"))
}

func TestMessageIsBetween(t *testing.T) {
	m := Message{SenderID: "a_b", ReceiverID: "c"}
	assert.True(t, m.IsBetween("a_b", "c"))
	assert.True(t, m.IsBetween("c", "a_b"))
	assert.False(t, m.IsBetween("a", "b_c"))
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"Patient": RolePatient, "patient": RolePatient,
		"Doctor": RoleDoctor, "doctor": RoleDoctor,
		"Receptionist": RoleReceptionist, "admin": RoleAdmin,
		"": RoleUnknown,
	} {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("Nurse")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleCanChat(t *testing.T) {
	assert.True(t, RolePatient.CanChat())
	assert.True(t, RoleDoctor.CanChat())
	assert.False(t, RoleReceptionist.CanChat())
	assert.False(t, RoleAdmin.CanChat())
	assert.False(t, RoleUnknown.CanChat())
}

func TestRoleEncoding(t *testing.T) {
	data, err := json.Marshal(Participant{ID: "d1", Role: RoleDoctor})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"d1","displayName":"","role":"Doctor"}`, string(data))

	var p Participant
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","role":"patient"}`), &p))
	assert.Equal(t, RolePatient, p.Role)

	var r Role
	require.NoError(t, r.Scan([]byte("Admin")))
	assert.Equal(t, RoleAdmin, r)
	require.NoError(t, r.Scan(nil))
	assert.Equal(t, RoleUnknown, r)
	assert.Error(t, r.Scan(42))

	v, err := RoleReceptionist.Value()
	require.NoError(t, err)
	assert.Equal(t, "Receptionist", v)
}

func TestSessionValid(t *testing.T) {
	assert.True(t, Session{Participant: Participant{ID: "p1", Role: RolePatient}}.Valid())
	assert.False(t, Session{Participant: Participant{ID: "p1"}}.Valid())
	assert.False(t, Session{Participant: Participant{Role: RoleDoctor}}.Valid())
}

func TestMessageValidate(t *testing.T) {
	ok := Message{SenderID: "p1", ReceiverID: "d1", Text: "hi"}
	assert.NoError(t, ok.Validate())

	for name, m := range map[string]Message{
		"no receiver": {SenderID: "p1", Text: "hi"},
		"self":        {SenderID: "p1", ReceiverID: "p1", Text: "hi"},
		"blank":       {SenderID: "p1", ReceiverID: "d1", Text: " \n\t"},
	} {
		assert.ErrorIs(t, m.Validate(), ErrInvalidMessage, name)
	}
}

func TestMessageKeyAndCounterpart(t *testing.T) {
	m := Message{SenderID: "p1", ReceiverID: "d1"}
	assert.Equal(t, "d1_p1", m.Key())
	assert.Equal(t, "d1", m.Counterpart("p1"))
	assert.Equal(t, "p1", m.Counterpart("d1"))

	m.ConversationKey = "custom"
	assert.Equal(t, "custom", m.Key())
}

func TestMessageWireNames(t *testing.T) {
	m := Message{Seq: 7, ID: "m1", SenderID: "p1", ReceiverID: "d1", SenderRole: RolePatient,
		ReceiverRole: RoleDoctor, Text: "hi", SentAt: "09:30:00", Status: StatusPending}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Patient", raw["senderModel"])
	assert.Equal(t, "Doctor", raw["receiverModel"])
	assert.Equal(t, "09:30:00", raw["time"])
	assert.NotContains(t, raw, "Seq")
	assert.NotContains(t, raw, "Status")
}

func TestJoinRequestRoomKey(t *testing.T) {
	assert.Equal(t, "d1_p1", JoinRequest{SenderID: "p1", ReceiverID: "d1"}.RoomKey())
	assert.Equal(t, "inbox:d1", JoinRequest{SenderID: "d1"}.RoomKey())
	assert.Equal(t, "inbox:d1", JoinRequest{SenderID: "d1", ReceiverID: "d1"}.RoomKey())
	assert.Equal(t, "lobby", JoinRequest{SenderID: "d1", Room: "lobby"}.RoomKey())
}

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(EventJoinRoom, JoinRequest{SenderID: "p1", ReceiverID: "d1"})
	require.NoError(t, err)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"joinRoom","data":{"senderId":"p1","receiverId":"d1"}}`, string(data))
}

package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"clinic-chat/chat"
	"clinic-chat/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct{}

func (stubChannel) Emit(context.Context, string, any) error { return nil }
func (stubChannel) Close() error                            { return nil }
func (stubChannel) State() chat.ConnState                   { return chat.StateConnected }

type stubTransport struct{}

func (stubTransport) Open(_ context.Context, _ models.JoinRequest, h chat.Handler) (chat.Channel, error) {
	if h.OnState != nil {
		h.OnState(chat.StateConnected)
	}
	return stubChannel{}, nil
}

type stubHistory struct{ inbox []models.Message }

func (stubHistory) Conversation(context.Context, string, string) ([]models.Message, error) {
	return nil, nil
}

func (h stubHistory) Received(context.Context, string) ([]models.Message, error) {
	return h.inbox, nil
}

func (h stubHistory) DoctorChat(context.Context, string) ([]models.Message, error) {
	return h.inbox, nil
}

func (stubHistory) Register(context.Context, models.Message) error { return nil }

var (
	ann   = models.Participant{ID: "p1", DisplayName: "Ann", Role: models.RolePatient}
	house = models.Participant{ID: "d1", DisplayName: "Dr. House", Role: models.RoleDoctor}
)

func newClient(history stubHistory) *chat.Client {
	return &chat.Client{
		Transport:    stubTransport{},
		History:      history,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) },
		WriteTimeout: time.Second,
	}
}

// login drives the model through a LoggedIn event and the open it triggers.
func login(t *testing.T, m Model, s models.Session) Model {
	t.Helper()
	next, _ := m.Update(sessionMsg{event: chat.SessionEvent{Kind: chat.LoggedIn, Session: s}})
	m = next.(Model)
	next, _ = m.Update(m.open(s)())
	return next.(Model)
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) Model {
	next, _ := m.Update(tea.KeyMsg{Type: k})
	return next.(Model)
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestPatientComposeAndSend(t *testing.T) {
	bus := chat.NewSessionBus()
	peer := house
	m := sized(New(newClient(stubHistory{}), bus, &peer))
	m = login(t, m, models.Session{Participant: ann})
	require.NotNil(t, m.view)
	defer m.view.Close()

	m = typeText(m, "hello doctor")
	m = press(m, tea.KeyEnter)

	msgs := m.view.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello doctor", msgs[0].Text)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Chat with Dr. House")
	assert.Contains(t, m.View(), "hello doctor")
}

func TestBlankInputSendsNothing(t *testing.T) {
	peer := house
	m := sized(New(newClient(stubHistory{}), chat.NewSessionBus(), &peer))
	m = login(t, m, models.Session{Participant: ann})
	defer m.view.Close()

	m = typeText(m, "   ")
	m = press(m, tea.KeyEnter)
	assert.Empty(t, m.view.Messages())
}

func TestMissingCounterpartPlaceholder(t *testing.T) {
	m := sized(New(newClient(stubHistory{}), chat.NewSessionBus(), nil))
	m = login(t, m, models.Session{Participant: ann})

	assert.Nil(t, m.view)
	assert.Contains(t, m.View(), "Missing chat data")
}

func TestUnavailableRolePlaceholder(t *testing.T) {
	m := sized(New(newClient(stubHistory{}), chat.NewSessionBus(), nil))
	m = login(t, m, models.Session{Participant: models.Participant{ID: "r1", Role: models.RoleReceptionist}})
	assert.Contains(t, m.View(), "not available for this role")
}

func TestDoctorSeesContactsAndSelects(t *testing.T) {
	inbox := []models.Message{
		{ID: "m1", SenderID: "p1", ReceiverID: "d1", SenderName: "Ann", Text: "my knee"},
		{ID: "m2", SenderID: "p2", ReceiverID: "d1", SenderName: "Bob", Text: "my back"},
	}
	m := sized(New(newClient(stubHistory{inbox: inbox}), chat.NewSessionBus(), nil))
	m = login(t, m, models.Session{Participant: house})
	require.NotNil(t, m.view)
	defer m.view.Close()
	m.view.Wait()
	next, _ := m.Update(viewEventMsg{view: m.view, event: chat.Event{Kind: chat.EventContacts}})
	m = next.(Model)

	out := m.View()
	assert.Contains(t, out, "All conversations")
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "Bob")

	m = press(m, tea.KeyTab)
	require.Equal(t, focusContacts, m.focus)
	m = press(m, tea.KeyDown)
	assert.Equal(t, 1, m.selected)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	require.NoError(t, m.view.Select(context.Background(), m.contacts[m.selected].Participant()))
	next, _ = m.Update(switchedMsg{})
	m = next.(Model)

	assert.Equal(t, focusInput, m.focus)
	assert.Contains(t, m.View(), "Chat with Bob")
}

func TestDeliveryFailureNotice(t *testing.T) {
	peer := house
	m := sized(New(newClient(stubHistory{}), chat.NewSessionBus(), &peer))
	m = login(t, m, models.Session{Participant: ann})
	defer m.view.Close()

	next, cmd := m.Update(viewEventMsg{view: m.view, event: chat.Event{Kind: chat.EventDeliveryFailed, MessageID: "x"}})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Message not delivered")

	// events from a view that is no longer mounted are ignored
	_, cmd = m.Update(viewEventMsg{view: nil, event: chat.Event{Kind: chat.EventMessages}})
	assert.Nil(t, cmd)
}

func TestLogoutTearsDownView(t *testing.T) {
	bus := chat.NewSessionBus()
	peer := house
	m := sized(New(newClient(stubHistory{}), bus, &peer))
	m = login(t, m, models.Session{Participant: ann})
	v := m.view
	require.NotNil(t, v)

	next, _ := m.Update(sessionMsg{event: chat.SessionEvent{Kind: chat.LoggedOut}})
	m = next.(Model)

	assert.Nil(t, m.view)
	select {
	case <-v.Done():
	default:
		t.Fatal("view still open after logout")
	}
	assert.Contains(t, m.View(), "Not logged in")
}

func TestStaleOpenIsClosed(t *testing.T) {
	peer := house
	m := sized(New(newClient(stubHistory{}), chat.NewSessionBus(), &peer))
	session := models.Session{Participant: ann}
	opened := m.open(session)().(openedMsg)
	require.NoError(t, opened.err)

	// nobody is logged in any more when the open completes
	next, _ := m.Update(opened)
	m = next.(Model)
	assert.Nil(t, m.view)
	select {
	case <-opened.view.Done():
	default:
		t.Fatal("stale view left open")
	}
}

func TestRenderMessagesAlignsOwnRight(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", SenderID: "p1", SenderName: "Ann", Text: "mine", SentAt: "09:30:00"},
		{ID: "2", SenderID: "d1", SenderName: "Dr. House", Text: "theirs", Status: models.StatusNone},
		{ID: "3", SenderID: "p1", Text: "lost", Status: models.StatusFailed},
	}
	out := renderMessages(ann, msgs, 40)
	lines := strings.Split(out, "\n")

	var mine, theirs string
	for _, l := range lines {
		if strings.Contains(l, "mine") {
			mine = l
		}
		if strings.Contains(l, "theirs") {
			theirs = l
		}
	}
	assert.True(t, strings.HasPrefix(theirs, "theirs"), theirs)
	assert.False(t, strings.HasPrefix(mine, "mine"), mine)
	assert.Contains(t, out, "not delivered")
	assert.Contains(t, out, "You")
}

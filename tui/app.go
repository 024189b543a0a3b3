// Package tui renders a chat view in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"clinic-chat/chat"
	"clinic-chat/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Opener mounts chat views; *chat.Client satisfies it.
type Opener interface {
	Open(ctx context.Context, session models.Session, counterpart *models.Participant) (*chat.View, error)
}

type focusArea int

const (
	focusInput focusArea = iota
	focusContacts
)

// Model is the terminal chat screen.
type Model struct {
	opener      Opener
	bus         *chat.SessionBus
	sessions    <-chan chat.SessionEvent
	unsubscribe func()
	peer        *models.Participant // counterpart to open for patients

	session models.Session
	view    *chat.View
	err     error  // why no view is mounted
	notice  string // last async failure

	contacts []models.Contact
	selected int
	focus    focusArea

	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
}

type sessionMsg struct{ event chat.SessionEvent }

type openedMsg struct {
	session models.Session
	view    *chat.View
	err     error
}

type viewEventMsg struct {
	view  *chat.View
	event chat.Event
}

type switchedMsg struct{ err error }

// New subscribes to bus; the chat opens when a session logs in.
func New(opener Opener, bus *chat.SessionBus, peer *models.Participant) Model {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.CharLimit = 2000
	in.Focus()

	sessions, unsubscribe := bus.Subscribe()
	return Model{
		opener:      opener,
		bus:         bus,
		sessions:    sessions,
		unsubscribe: unsubscribe,
		peer:        peer,
		viewport:    viewport.New(80, 20),
		input:       in,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenSession())
}

func (m Model) listenSession() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sessions
		if !ok {
			return nil
		}
		return sessionMsg{event: event}
	}
}

func listenView(v *chat.View) tea.Cmd {
	return func() tea.Msg {
		select {
		case event := <-v.Updates():
			return viewEventMsg{view: v, event: event}
		case <-v.Done():
			return nil
		}
	}
}

func (m Model) open(session models.Session) tea.Cmd {
	opener, peer := m.opener, m.peer
	return func() tea.Msg {
		v, err := opener.Open(context.Background(), session, peer)
		return openedMsg{session: session, view: v, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case sessionMsg:
		switch msg.event.Kind {
		case chat.LoggedIn:
			m.closeView()
			m.session = msg.event.Session
			m.err, m.notice = nil, ""
			return m, tea.Batch(m.open(m.session), m.listenSession())
		case chat.LoggedOut:
			m.closeView()
			m.session = models.Session{}
			m.err, m.notice = nil, ""
			return m, m.listenSession()
		}
		return m, m.listenSession()

	case openedMsg:
		if msg.session != m.session || m.view != nil {
			if msg.view != nil {
				msg.view.Close()
			}
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.view = msg.view
		m.layout()
		m.refresh()
		return m, listenView(m.view)

	case viewEventMsg:
		if msg.view != m.view {
			return m, nil
		}
		switch msg.event.Kind {
		case chat.EventDeliveryFailed:
			m.notice = "Message not delivered"
		case chat.EventHistoryFailed:
			m.notice = "Could not load earlier messages"
		case chat.EventHealth:
			if msg.event.Err != nil {
				m.notice = "Connection failed"
			}
		}
		m.refresh()
		return m, listenView(m.view)

	case switchedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.closeView()
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, keys.Logout):
		m.bus.Logout()
		return m, nil
	}
	if m.view == nil {
		return m, nil
	}

	doctor := m.view.Contacts() != nil
	if doctor && key.Matches(msg, keys.Switch) {
		if m.focus == focusInput {
			m.focus = focusContacts
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	}

	if m.focus == focusContacts {
		return m.handleContactsKey(msg)
	}

	if key.Matches(msg, keys.Send) {
		if _, ok := m.view.Send(m.input.Value()); ok {
			m.input.Reset()
			m.refresh()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleContactsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view
	switch {
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.contacts)-1 {
			m.selected++
		}
	case key.Matches(msg, keys.Send):
		if m.selected < len(m.contacts) {
			contact := m.contacts[m.selected].Participant()
			m.focus = focusInput
			return m, tea.Batch(m.input.Focus(), func() tea.Msg {
				return switchedMsg{err: v.Select(context.Background(), contact)}
			})
		}
	case key.Matches(msg, keys.Deselect):
		return m, func() tea.Msg {
			return switchedMsg{err: v.Deselect(context.Background())}
		}
	}
	return m, nil
}

func (m *Model) closeView() {
	if m.view != nil {
		m.view.Close()
		m.view = nil
	}
	m.contacts = nil
	m.selected = 0
	m.focus = focusInput
}

func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	w := m.width
	if m.view != nil && m.view.Contacts() != nil {
		w -= contactsWidth + 4
	}
	m.viewport.Width = max(w, 20)
	m.viewport.Height = max(m.height-5, 3)
	m.input.Width = max(w-4, 10)
}

// refresh re-reads the view's state.
func (m *Model) refresh() {
	if m.view == nil {
		return
	}
	m.contacts = m.view.Contacts()
	if m.selected >= len(m.contacts) {
		m.selected = max(len(m.contacts)-1, 0)
	}
	m.viewport.SetContent(renderMessages(m.view.Self(), m.view.Messages(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.view == nil {
		return placeholder.Render(placeholderText(m.err)) + "\n" + m.statusBar()
	}

	title := "All conversations"
	current := ""
	if peer, ok := m.view.Counterpart(); ok {
		name := peer.DisplayName
		if name == "" {
			name = peer.ID
		}
		title = "Chat with " + name
		current = peer.ID
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		m.viewport.View(),
		m.input.View(),
	)
	if m.contacts != nil {
		side := renderContacts(m.contacts, m.selected, current, m.focus == focusContacts, max(m.viewport.Height+1, 3))
		main = lipgloss.JoinHorizontal(lipgloss.Top, side, " ", main)
	}
	return main + "\n" + m.statusBar()
}

func (m Model) statusBar() string {
	parts := []string{}
	if m.session.Participant.ID != "" {
		p := m.session.Participant
		name := p.DisplayName
		if name == "" {
			name = p.ID
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, p.Role))
	}
	if m.view != nil {
		parts = append(parts, renderHealth(m.view.Health()))
	}
	if m.notice != "" {
		parts = append(parts, errorStyle.Render(m.notice))
	}
	parts = append(parts, mutedStyle.Render("ctrl+o log out · ctrl+c quit"))
	return statusBarStyle.Width(max(m.width, 0)).Render(strings.Join(parts, "  "))
}

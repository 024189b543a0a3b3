package tui

import (
	"errors"
	"fmt"
	"strings"

	"clinic-chat/chat"
	"clinic-chat/models"

	"github.com/charmbracelet/lipgloss"
)

const contactsWidth = 24

// renderMessages lays out the conversation. Messages sent by self sit on the
// right, everything else on the left.
func renderMessages(self models.Participant, msgs []models.Message, width int) string {
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		own := m.SenderID == self.ID
		name := m.SenderName
		if own {
			name = "You"
		} else if name == "" {
			name = m.SenderID
		}

		header := mutedStyle.Render(fmt.Sprintf("%s  %s", name, m.SentAt))
		body := m.Text
		switch m.Status {
		case models.StatusPending:
			body += mutedStyle.Render(" ·")
		case models.StatusFailed:
			body += errorStyle.Render(" ! not delivered")
		}

		style, align := peerStyle, lipgloss.Left
		if own {
			style, align = ownStyle, lipgloss.Right
		}
		block := lipgloss.JoinVertical(align, header, style.Render(body))
		b.WriteString(lipgloss.NewStyle().Width(width).Align(align).Render(block))
	}
	return b.String()
}

func renderContacts(contacts []models.Contact, selected int, current string, focused bool, height int) string {
	lines := []string{titleStyle.Render("Patients")}
	if len(contacts) == 0 {
		lines = append(lines, mutedStyle.Render("none yet"))
	}
	for i, c := range contacts {
		name := c.DisplayName
		if name == "" {
			name = c.ParticipantID
		}
		prefix := "  "
		if c.ParticipantID == current {
			prefix = "● "
		}
		line := prefix + name
		if focused && i == selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}

	style := contactsStyle
	if focused {
		style = focusedBorder
	}
	return style.Width(contactsWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func renderHealth(s chat.ConnState) string {
	switch s {
	case chat.StateConnected:
		return okStyle.Render("● " + s.String())
	case chat.StateFailed, chat.StateDisconnected:
		return errorStyle.Render("● " + s.String())
	}
	return mutedStyle.Render("● " + s.String())
}

// placeholderText is shown instead of the chat when no view can be mounted.
func placeholderText(err error) string {
	switch {
	case chat.IsMissingData(err):
		return "Missing chat data"
	case errors.Is(err, chat.ErrChatUnavailable):
		return "Chat is not available for this role"
	case err != nil:
		return "Chat unavailable: " + err.Error()
	}
	return "Not logged in"
}

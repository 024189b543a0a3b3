package tui

import "github.com/charmbracelet/bubbles/key"

var keys = struct {
	Quit     key.Binding
	Logout   key.Binding
	Send     key.Binding
	Switch   key.Binding
	Up       key.Binding
	Down     key.Binding
	Deselect key.Binding
}{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Logout:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "log out")),
	Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send/open")),
	Switch:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "contacts/compose")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "previous")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next")),
	Deselect: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "all conversations")),
}

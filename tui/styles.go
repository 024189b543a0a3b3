package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBrand  = lipgloss.Color("#2b8a9e")
	colorMuted  = lipgloss.Color("#8a8f98")
	colorError  = lipgloss.Color("#e5534b")
	colorOK     = lipgloss.Color("#57ab5a")
	colorBorder = lipgloss.Color("#373e47")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	okStyle        = lipgloss.NewStyle().Foreground(colorOK)
	ownStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd9e5"))
	peerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#adbac7"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	contactsStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	focusedBorder  = contactsStyle.BorderForeground(colorBrand)
	statusBarStyle = lipgloss.NewStyle().Background(colorBorder).Padding(0, 1)
	placeholder    = lipgloss.NewStyle().Foreground(colorMuted).Italic(true).Padding(1, 2)
)

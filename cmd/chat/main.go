package main

import (
	"fmt"
	"os"

	"clinic-chat/chat"
	"clinic-chat/config"
	"clinic-chat/models"
	"clinic-chat/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "chat.log"
	}
	logger, closer, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	session, peer, err := identityFromEnv()
	if err != nil {
		return err
	}

	bus := chat.NewSessionBus()
	program := tea.NewProgram(tui.New(chat.NewClient(cfg, logger), bus, peer), tea.WithAltScreen())
	if err := bus.Login(session); err != nil {
		return err
	}
	logger.Info().Str("user", session.Participant.ID).Str("backend", cfg.BackendURL).Msg("starting chat")

	_, err = program.Run()
	return err
}

// identityFromEnv reads the logged-in participant and the optional
// counterpart. Login itself happens elsewhere; its result is handed over
// through the environment.
func identityFromEnv() (models.Session, *models.Participant, error) {
	role, err := models.ParseRole(os.Getenv("CHAT_ROLE"))
	if err != nil {
		return models.Session{}, nil, err
	}
	session := models.Session{
		Participant: models.Participant{
			ID:          os.Getenv("CHAT_USER_ID"),
			DisplayName: os.Getenv("CHAT_USER_NAME"),
			Role:        role,
		},
		Token: os.Getenv("CHAT_TOKEN"),
	}
	if !session.Valid() {
		return models.Session{}, nil, fmt.Errorf("CHAT_USER_ID and CHAT_ROLE are required: %w", chat.ErrInvalidSession)
	}

	peerID := os.Getenv("CHAT_PEER_ID")
	if peerID == "" {
		return session, nil, nil
	}
	peerRole := models.RoleDoctor
	if role == models.RoleDoctor {
		peerRole = models.RolePatient
	}
	if raw := os.Getenv("CHAT_PEER_ROLE"); raw != "" {
		if peerRole, err = models.ParseRole(raw); err != nil {
			return models.Session{}, nil, err
		}
	}
	return session, &models.Participant{ID: peerID, DisplayName: os.Getenv("CHAT_PEER_NAME"), Role: peerRole}, nil
}

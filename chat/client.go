package chat

import (
	"context"
	"errors"
	"time"

	"clinic-chat/config"
	"clinic-chat/models"

	"github.com/rs/zerolog"
)

// Client wires the transport and the durable store together and opens views.
type Client struct {
	Transport Transport
	History   HistoryAPI
	Logger    zerolog.Logger
	Now       func() time.Time
	// WriteTimeout bounds a single channel publish or durable write.
	WriteTimeout time.Duration
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		Transport:    NewWSTransport(cfg.BackendURL, logger),
		History:      NewHistoryClient(cfg.BackendURL, cfg.HTTPTimeout),
		Logger:       logger,
		Now:          time.Now,
		WriteTimeout: cfg.HTTPTimeout,
	}
}

// Open mounts a chat view for the session. Patients always talk to one
// counterpart; doctors without a counterpart get the inbox of every
// conversation they are part of.
func (c *Client) Open(ctx context.Context, session models.Session, counterpart *models.Participant) (*View, error) {
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	self := session.Participant
	if counterpart != nil {
		if counterpart.ID == "" {
			return nil, ErrMissingCounterpart
		}
		if counterpart.ID == self.ID {
			return nil, ErrSelfConversation
		}
	}

	var v *View
	switch self.Role {
	case models.RolePatient:
		if counterpart == nil {
			return nil, ErrMissingCounterpart
		}
		v = newView(c, session, nil)
	case models.RoleDoctor:
		v = newView(c, session, NewContactBook(self.ID))
	case models.RoleReceptionist, models.RoleAdmin, models.RoleUnknown:
		return nil, ErrChatUnavailable
	default:
		return nil, ErrChatUnavailable
	}

	if err := v.activate(ctx, counterpart); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) writeTimeout() time.Duration {
	if c.WriteTimeout > 0 {
		return c.WriteTimeout
	}
	return config.DefaultHTTPTimeout
}

// loadInbox fetches the doctor's aggregate history. Backends without the
// doctor-chat route answer 404; for those the received history is used.
func (c *Client) loadInbox(ctx context.Context, doctorID string) ([]models.Message, error) {
	msgs, err := c.History.DoctorChat(ctx, doctorID)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 404 {
		return c.History.Received(ctx, doctorID)
	}
	return msgs, err
}

package chat

import (
	"context"

	"clinic-chat/models"
)

// ConnState is the health of a live channel.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// Handler receives channel callbacks. Calls arrive from the channel's reader
// goroutine in delivery order and must not block for long.
type Handler struct {
	OnMessage func(models.Message)
	OnState   func(ConnState)
}

func (h Handler) message(m models.Message) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}

func (h Handler) state(s ConnState) {
	if h.OnState != nil {
		h.OnState(s)
	}
}

// Channel is one open, group-scoped live connection.
type Channel interface {
	Emit(ctx context.Context, event string, payload any) error
	// Close terminates the channel. It is safe to call more than once.
	Close() error
	State() ConnState
}

// Transport opens channels. Open joins the group described by req before
// returning.
type Transport interface {
	Open(ctx context.Context, req models.JoinRequest, h Handler) (Channel, error)
}

type tokenKey struct{}

// WithToken attaches a bearer token to ctx for the transport and history calls.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

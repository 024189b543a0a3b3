package chat

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCounterpart = errors.New("chat: missing chat data")
	ErrSelfConversation   = errors.New("chat: cannot open a conversation with yourself")
	ErrChatUnavailable    = errors.New("chat: role has no access to messaging")
	ErrInvalidSession     = errors.New("chat: invalid session")
	ErrNotDoctor          = errors.New("chat: only doctors can switch contacts")
	ErrChannelClosed      = errors.New("chat: channel closed")
	ErrViewClosed         = errors.New("chat: view closed")
)

// StatusError is returned when the durable store answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

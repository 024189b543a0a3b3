package chat

// EventKind tells the presentation layer what changed.
type EventKind int

const (
	EventMessages EventKind = iota + 1
	EventContacts
	EventHealth
	EventHistoryFailed
	EventDeliveryFailed
)

func (k EventKind) String() string {
	switch k {
	case EventMessages:
		return "messages"
	case EventContacts:
		return "contacts"
	case EventHealth:
		return "health"
	case EventHistoryFailed:
		return "history-failed"
	case EventDeliveryFailed:
		return "delivery-failed"
	}
	return "unknown"
}

type Event struct {
	Kind      EventKind
	State     ConnState // EventHealth
	MessageID string    // EventDeliveryFailed
	Err       error
}

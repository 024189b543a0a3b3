package models

// Participant is an authenticated actor. Identity and role come from outside the chat core.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// Session is the explicit login context handed to every chat component.
type Session struct {
	Participant Participant `json:"participant"`
	Token       string      `json:"token,omitempty"` // bearer token, optional
}

func (s Session) Valid() bool {
	return s.Participant.ID != "" && s.Participant.Role != RoleUnknown
}

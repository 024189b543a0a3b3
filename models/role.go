package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Role identifies what kind of actor a participant is.
type Role int

const (
	RoleUnknown Role = iota
	RolePatient
	RoleDoctor
	RoleReceptionist
	RoleAdmin
)

var ErrUnknownRole = errors.New("unknown role")

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "Patient"
	case RoleDoctor:
		return "Doctor"
	case RoleReceptionist:
		return "Receptionist"
	case RoleAdmin:
		return "Admin"
	case RoleUnknown:
		return ""
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole accepts the names used on the wire ("Patient", "Doctor", ...).
// Lower-case spellings are tolerated because older backends store them that way.
func ParseRole(s string) (Role, error) {
	switch s {
	case "Patient", "patient":
		return RolePatient, nil
	case "Doctor", "doctor":
		return RoleDoctor, nil
	case "Receptionist", "receptionist":
		return RoleReceptionist, nil
	case "Admin", "admin":
		return RoleAdmin, nil
	case "":
		return RoleUnknown, nil
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// CanChat reports whether the role has access to the messaging views.
func (r Role) CanChat() bool {
	switch r {
	case RolePatient, RoleDoctor:
		return true
	case RoleReceptionist, RoleAdmin, RoleUnknown:
		return false
	}
	return false
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role by name so rows stay readable.
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = RoleUnknown
		return nil
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Role", src)
}

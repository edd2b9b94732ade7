// Package domain contains entities without logic, just meta-data
package domain

import "errors"

type UserID string

// Role is the position of a user inside a consultation.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAssistant, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

// Identity is the authenticated caller as asserted by the external
// identity collaborator. The coordinator trusts it and never verifies
// credentials itself.
type Identity struct {
	ID   UserID `json:"id"`
	Role Role   `json:"role"`
}

func NewIdentity(id string, role string) (Identity, error) {
	if id == "" {
		return Identity{}, errors.New("empty user id")
	}
	r, err := ParseRole(role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: UserID(id), Role: r}, nil
}

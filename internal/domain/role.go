// Package domain contains entity without logic, just meta-data
package domain

import "strings"

type (
	// ConnID identifies one live transport connection.
	ConnID string
	// SessionID is a 7-char A-Z0-9 rendezvous code.
	SessionID string
	// TechID is a normalized callee identity.
	TechID string
)

// Role is a client's position in a call.
type Role string

const (
	RoleUser Role = "user"
	RoleTech Role = "tech"
	RoleNone Role = ""
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleTech
}

// Other returns the opposite call role.
func (r Role) Other() Role {
	if r == RoleUser {
		return RoleTech
	}
	return RoleUser
}

// SignalType tags a relayed negotiation payload.
type SignalType string

const (
	SignalOffer  SignalType = "offer"
	SignalAnswer SignalType = "answer"
	SignalICE    SignalType = "ice"
)

func (s SignalType) Valid() bool {
	return s == SignalOffer || s == SignalAnswer || s == SignalICE
}

// NormalizeTechID trims and case-folds a raw identity.
// Empty result means the identity is unusable.
func NormalizeTechID(raw string) TechID {
	return TechID(strings.ToLower(strings.TrimSpace(raw)))
}

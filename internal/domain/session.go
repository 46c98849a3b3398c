package domain

import "time"

// Status of a session. Active iff both slots are occupied.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
)

// Session is a rendezvous record pairing at most one user and one tech
// connection. Slots hold connection ids; "" means empty.
type Session struct {
	ID              SessionID
	Status          Status
	UserSlot        ConnID
	TechSlot        ConnID
	RequestedTechID TechID
	CreatedBy       ConnID
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// Slot returns the occupant of the given role's slot.
func (s *Session) Slot(role Role) ConnID {
	if role == RoleTech {
		return s.TechSlot
	}
	return s.UserSlot
}

func (s *Session) SetSlot(role Role, id ConnID) {
	if role == RoleTech {
		s.TechSlot = id
	} else {
		s.UserSlot = id
	}
}

// RoleOf reports which slot the connection occupies, RoleNone if neither.
func (s *Session) RoleOf(id ConnID) Role {
	switch {
	case id != "" && s.UserSlot == id:
		return RoleUser
	case id != "" && s.TechSlot == id:
		return RoleTech
	}
	return RoleNone
}

// Recompute derives Status from slot occupancy.
func (s *Session) Recompute() {
	if s.UserSlot != "" && s.TechSlot != "" {
		s.Status = StatusActive
	} else {
		s.Status = StatusWaiting
	}
}

// ExtendExpiry refreshes ExpiresAt under the TTL class of the current
// status. Called on every state-changing operation.
func (s *Session) ExtendExpiry(now time.Time, waitingTTL, activeTTL time.Duration) {
	if s.Status == StatusActive {
		s.ExpiresAt = now.Add(activeTTL)
	} else {
		s.ExpiresAt = now.Add(waitingTTL)
	}
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

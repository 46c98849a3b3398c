package app

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/remtech/relay/internal/core"
	"github.com/remtech/relay/internal/domain"
	"github.com/remtech/relay/internal/protocol"
)

// mintSessionCodeLocked draws codes until one is free among live
// sessions. Caller holds h.mu.
func (h *Hub) mintSessionCodeLocked() domain.SessionID {
	for {
		sid := core.NewSessionCode()
		if _, taken := h.sessions[sid]; !taken {
			return sid
		}
	}
}

// CallRequest creates a waiting session against an online identity and
// notifies both ends. Neither side occupies a slot yet; each joins from
// its own call-page socket.
func (h *Hub) CallRequest(id domain.ConnID, rawTech string) *domain.ProtocolError {
	techID := domain.NormalizeTechID(rawTech)
	if techID == "" {
		return domain.ErrBadIdentity
	}

	h.mu.Lock()
	caller := h.connOf(id)
	if caller == nil {
		h.mu.Unlock()
		return nil
	}
	techConnID, online := h.presence[techID]
	techConn := h.connOf(techConnID)
	if !online || techConn == nil {
		h.mu.Unlock()
		return domain.ErrTechOffline
	}

	nowT := h.now()
	sid := h.mintSessionCodeLocked()
	h.sessions[sid] = &domain.Session{
		ID:              sid,
		Status:          domain.StatusWaiting,
		RequestedTechID: techID,
		CreatedBy:       id,
		CreatedAt:       nowT,
		ExpiresAt:       nowT.Add(h.waitingTTL),
	}
	h.mu.Unlock()

	log.Info().Str("module", "app.session").
		Str("session", string(sid)).
		Str("tech", string(techID)).
		Str("caller", string(id)).
		Msg("call requested")

	h.deliver([]delivery{
		{caller, protocol.Encode(protocol.CallCreated{
			Type:      protocol.TypeCallCreated,
			SessionID: sid,
			TechID:    techID,
		})},
		{techConn, protocol.Encode(protocol.IncomingCall{
			Type:      protocol.TypeIncomingCall,
			SessionID: sid,
			TechID:    techID,
			From:      protocol.CallOrigin{Role: domain.RoleUser},
		})},
	})
	return nil
}

// CreateSession makes an empty waiting session. A client-supplied id
// must match the code pattern and be free; otherwise the hub mints one.
func (h *Hub) CreateSession(id domain.ConnID, requestedID, rawTech string) *domain.ProtocolError {
	h.mu.Lock()
	caller := h.connOf(id)
	if caller == nil {
		h.mu.Unlock()
		return nil
	}

	sid := domain.SessionID(strings.TrimSpace(requestedID))
	if sid != "" {
		if !core.ValidSessionCode(sid) {
			h.mu.Unlock()
			return domain.ErrBadSessionID
		}
		if _, taken := h.sessions[sid]; taken {
			h.mu.Unlock()
			return domain.ErrSessionTaken
		}
	} else {
		sid = h.mintSessionCodeLocked()
	}

	nowT := h.now()
	h.sessions[sid] = &domain.Session{
		ID:              sid,
		Status:          domain.StatusWaiting,
		RequestedTechID: domain.NormalizeTechID(rawTech),
		CreatedBy:       id,
		CreatedAt:       nowT,
		ExpiresAt:       nowT.Add(h.waitingTTL),
	}
	h.mu.Unlock()

	log.Info().Str("module", "app.session").Str("session", string(sid)).Msg("session created")
	h.deliver([]delivery{{caller, protocol.Encode(protocol.SessionCreated{
		Type:      protocol.TypeSessionCreated,
		SessionID: sid,
	})}})
	return nil
}

// liveSessionLocked resolves a session id, evicting it if already past
// expiry. Caller holds h.mu.
func (h *Hub) liveSessionLocked(sid domain.SessionID) (*domain.Session, bool) {
	s, ok := h.sessions[sid]
	if !ok {
		return nil, false
	}
	if s.Expired(h.now()) {
		delete(h.sessions, sid)
		return nil, false
	}
	return s, true
}

// Join fills a slot. Rejoining with the same connection id is an
// idempotent success; a slot held by a different connection is a
// conflict. On a session created through call_request the tech slot is
// reserved for the requested identity.
func (h *Hub) Join(id domain.ConnID, sid domain.SessionID, role domain.Role) *domain.ProtocolError {
	var out []delivery

	h.mu.Lock()
	joiner := h.connOf(id)
	if joiner == nil {
		h.mu.Unlock()
		return nil
	}
	s, ok := h.liveSessionLocked(sid)
	if !ok {
		h.mu.Unlock()
		return domain.ErrNoSession
	}

	if role == domain.RoleTech && s.RequestedTechID != "" {
		mine, registered := h.techByConn[id]
		if !registered {
			h.mu.Unlock()
			return domain.ErrNotRegistered
		}
		if mine != s.RequestedTechID {
			h.mu.Unlock()
			return domain.ErrNotAuthorized
		}
	}

	if occupant := s.Slot(role); occupant != "" && occupant != id {
		h.mu.Unlock()
		return domain.ErrRoleTaken
	}

	s.SetSlot(role, id)
	s.Recompute()
	s.ExtendExpiry(h.now(), h.waitingTTL, h.activeTTL)

	out = append(out, delivery{joiner, protocol.Encode(protocol.SessionJoined{
		Type:      protocol.TypeSessionJoined,
		SessionID: sid,
		Role:      role,
		Status:    s.Status,
	})})
	if peer := s.Slot(role.Other()); peer != "" {
		out = append(out, delivery{h.connOf(peer), protocol.Encode(protocol.PeerJoined{
			Type:      protocol.TypePeerJoined,
			SessionID: sid,
			Role:      role,
			Status:    s.Status,
		})})
	}
	status := s.Status
	h.mu.Unlock()

	log.Info().Str("module", "app.session").
		Str("session", string(sid)).
		Str("conn", string(id)).
		Str("role", string(role)).
		Str("status", string(status)).
		Msg("joined")
	h.deliver(out)
	return nil
}

// RelaySignal forwards a negotiation payload to the other slot, byte
// for byte. Nothing is buffered: with no peer present the sender gets
// NO_PEER and retries on its own.
func (h *Hub) RelaySignal(id domain.ConnID, sid domain.SessionID, st domain.SignalType, payload json.RawMessage) *domain.ProtocolError {
	h.mu.Lock()
	s, ok := h.liveSessionLocked(sid)
	if !ok {
		h.mu.Unlock()
		return domain.ErrNoSession
	}
	fromRole := s.RoleOf(id)
	if fromRole == domain.RoleNone {
		h.mu.Unlock()
		return domain.ErrNotInSession
	}
	peerConn := h.connOf(s.Slot(fromRole.Other()))
	h.mu.Unlock()

	if peerConn == nil {
		return domain.ErrNoPeer
	}

	h.deliver([]delivery{{peerConn, protocol.Encode(protocol.SignalOut{
		Type:       protocol.TypeSignal,
		SessionID:  sid,
		SignalType: st,
		Payload:    payload,
	})}})
	return nil
}

// End tears a session down immediately, regardless of TTL, notifying
// both present occupants.
func (h *Hub) End(id domain.ConnID, sid domain.SessionID) *domain.ProtocolError {
	var out []delivery

	h.mu.Lock()
	s, ok := h.sessions[sid]
	if !ok {
		h.mu.Unlock()
		return domain.ErrNoSession
	}
	frame := protocol.Encode(protocol.SessionEnded{
		Type:      protocol.TypeSessionEnded,
		SessionID: sid,
	})
	for _, occupant := range []domain.ConnID{s.UserSlot, s.TechSlot} {
		if conn := h.connOf(occupant); conn != nil {
			out = append(out, delivery{conn, frame})
		}
	}
	delete(h.sessions, sid)
	h.mu.Unlock()

	log.Info().Str("module", "app.session").Str("session", string(sid)).Str("by", string(id)).Msg("session ended")
	h.deliver(out)
	return nil
}

// Sweep evicts every session past its expiry. Deletion is silent: any
// peer that mattered was notified at departure time.
func (h *Hub) Sweep() int {
	nowT := h.now()

	h.mu.Lock()
	evicted := 0
	for sid, s := range h.sessions {
		if s.Expired(nowT) {
			delete(h.sessions, sid)
			evicted++
		}
	}
	h.mu.Unlock()
	return evicted
}

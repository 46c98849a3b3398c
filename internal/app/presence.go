package app

import (
	"github.com/rs/zerolog/log"

	"github.com/remtech/relay/internal/domain"
	"github.com/remtech/relay/internal/protocol"
)

// RegisterTech claims an identity for the connection. A previous holder
// of the identity is superseded without being closed, which tolerates
// reconnects that never closed gracefully. The caller is acked with the
// normalized identity and subscribers see an online transition.
func (h *Hub) RegisterTech(id domain.ConnID, raw string) *domain.ProtocolError {
	techID := domain.NormalizeTechID(raw)
	if techID == "" {
		return domain.ErrBadIdentity
	}

	var out []delivery

	h.mu.Lock()
	caller := h.connOf(id)
	if caller == nil {
		h.mu.Unlock()
		return nil
	}

	// A connection switching identities first goes offline under its
	// old one, keeping forward and reverse maps consistent.
	if old, ok := h.techByConn[id]; ok && old != techID {
		out = append(out, h.releasePresenceLocked(id)...)
	}

	if prev, ok := h.presence[techID]; ok && prev != id {
		delete(h.techByConn, prev)
		log.Info().Str("module", "app.presence").
			Str("tech", string(techID)).
			Str("superseded", string(prev)).
			Msg("presence superseded")
	}
	h.presence[techID] = id
	h.techByConn[id] = techID

	out = append(out, h.presenceUpdateLocked(techID, true)...)
	out = append(out, delivery{caller, protocol.Encode(protocol.RegisterTechAck{
		Type:   protocol.TypeRegisterTechAck,
		TechID: techID,
	})})
	h.mu.Unlock()

	log.Info().Str("module", "app.presence").Str("conn", string(id)).Str("tech", string(techID)).Msg("tech online")
	h.deliver(out)
	return nil
}

// Subscribe adds the connection to the presence-delta audience and
// replies with the full online snapshot, so a late subscriber never
// misses state.
func (h *Hub) Subscribe(id domain.ConnID) {
	h.mu.Lock()
	conn := h.connOf(id)
	if conn == nil {
		h.mu.Unlock()
		return
	}
	h.subscribers[id] = struct{}{}
	online := make([]domain.TechID, 0, len(h.presence))
	for techID := range h.presence {
		online = append(online, techID)
	}
	h.mu.Unlock()

	h.deliver([]delivery{{conn, protocol.Encode(protocol.PresenceState{
		Type:          protocol.TypePresenceState,
		OnlineTechIDs: online,
	})}})
}

// releasePresenceLocked drops the identity owned by the connection, if
// any, and queues the offline transition. A superseded connection no
// longer owns the forward mapping and releases nothing. Caller holds h.mu.
func (h *Hub) releasePresenceLocked(id domain.ConnID) []delivery {
	techID, ok := h.techByConn[id]
	if !ok {
		return nil
	}
	delete(h.techByConn, id)

	if h.presence[techID] != id {
		return nil
	}
	delete(h.presence, techID)
	log.Info().Str("module", "app.presence").Str("conn", string(id)).Str("tech", string(techID)).Msg("tech offline")
	return h.presenceUpdateLocked(techID, false)
}

// presenceUpdateLocked queues one delta for every subscriber. Caller
// holds h.mu.
func (h *Hub) presenceUpdateLocked(techID domain.TechID, online bool) []delivery {
	frame := protocol.Encode(protocol.PresenceUpdate{
		Type:   protocol.TypePresenceUpdate,
		TechID: techID,
		Online: online,
	})
	out := make([]delivery, 0, len(h.subscribers))
	for sub := range h.subscribers {
		if conn := h.connOf(sub); conn != nil {
			out = append(out, delivery{conn, frame})
		}
	}
	return out
}

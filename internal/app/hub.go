// Package app owns the relay's shared state: the connection registry,
// the presence directory and the session registry. One mutex guards all
// three, so every operation is atomic with respect to the others; the
// reaper takes the same lock.
package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/remtech/relay/internal/core"
	"github.com/remtech/relay/internal/domain"
	"github.com/remtech/relay/internal/protocol"
)

type connEntry struct {
	conn     core.SignalConnection
	role     domain.Role
	openedAt time.Time
}

type Hub struct {
	waitingTTL time.Duration
	activeTTL  time.Duration
	now        func() time.Time

	mu          sync.Mutex
	conns       map[domain.ConnID]*connEntry
	sessions    map[domain.SessionID]*domain.Session
	presence    map[domain.TechID]domain.ConnID
	techByConn  map[domain.ConnID]domain.TechID
	subscribers map[domain.ConnID]struct{}
}

func NewHub(waitingTTL, activeTTL time.Duration) *Hub {
	return &Hub{
		waitingTTL:  waitingTTL,
		activeTTL:   activeTTL,
		now:         time.Now,
		conns:       make(map[domain.ConnID]*connEntry),
		sessions:    make(map[domain.SessionID]*domain.Session),
		presence:    make(map[domain.TechID]domain.ConnID),
		techByConn:  make(map[domain.ConnID]domain.TechID),
		subscribers: make(map[domain.ConnID]struct{}),
	}
}

// delivery is one frame addressed to one connection, snapshotted under
// the lock and sent after release.
type delivery struct {
	conn  core.SignalConnection
	frame core.Frame
}

func (h *Hub) deliver(ds []delivery) {
	for _, d := range ds {
		if d.conn == nil || d.frame == nil {
			continue
		}
		if err := d.conn.TrySend(d.frame); err != nil {
			log.Warn().Err(err).Str("module", "app.hub").Msg("dropped frame")
		}
	}
}

// Register adds a freshly opened connection and greets it.
func (h *Hub) Register(conn core.SignalConnection) domain.ConnID {
	id := core.NewConnID()

	h.mu.Lock()
	h.conns[id] = &connEntry{conn: conn, openedAt: h.now()}
	h.mu.Unlock()

	log.Info().Str("module", "app.hub").Str("conn", string(id)).Msg("connection registered")
	h.deliver([]delivery{{conn, protocol.Encode(protocol.Connected{
		Type:         protocol.TypeConnected,
		ConnectionID: id,
	})}})
	return id
}

// Hello records the client's declared role. Informational only; slot
// authorization happens at join time.
func (h *Hub) Hello(id domain.ConnID, role domain.Role) {
	h.mu.Lock()
	e, ok := h.conns[id]
	if ok {
		e.role = role
	}
	conn := entryConn(e)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.deliver([]delivery{{conn, protocol.Encode(protocol.HelloAck{
		Type:         protocol.TypeHelloAck,
		ConnectionID: id,
		Role:         role,
	})}})
}

// Disconnect reacts to a transport close: presence is released,
// subscription dropped, and every session slot held by the connection is
// vacated. An emptied session is left for the reaper rather than deleted
// here, so a momentary drop/reopen does not destroy the rendezvous.
func (h *Hub) Disconnect(id domain.ConnID) {
	var out []delivery

	h.mu.Lock()
	delete(h.conns, id)
	delete(h.subscribers, id)
	out = append(out, h.releasePresenceLocked(id)...)

	nowT := h.now()
	for sid, s := range h.sessions {
		role := s.RoleOf(id)
		if role == domain.RoleNone {
			continue
		}
		s.SetSlot(role, "")
		s.Recompute()
		s.ExtendExpiry(nowT, h.waitingTTL, h.activeTTL)

		if peer := s.Slot(role.Other()); peer != "" {
			out = append(out, delivery{h.connOf(peer), protocol.Encode(protocol.PeerLeft{
				Type:      protocol.TypePeerLeft,
				SessionID: sid,
				Status:    s.Status,
			})})
		}
		log.Info().Str("module", "app.hub").
			Str("conn", string(id)).
			Str("session", string(sid)).
			Str("status", string(s.Status)).
			Msg("slot vacated on disconnect")
	}
	h.mu.Unlock()

	h.deliver(out)
}

// connOf resolves a connection id to its transport. Callers hold h.mu.
func (h *Hub) connOf(id domain.ConnID) core.SignalConnection {
	return entryConn(h.conns[id])
}

func entryConn(e *connEntry) core.SignalConnection {
	if e == nil {
		return nil
	}
	return e.conn
}

package protocol

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/remtech/relay/internal/core"
	"github.com/remtech/relay/internal/domain"
)

// Outbound message types.
const (
	TypeConnected       = "connected"
	TypeHelloAck        = "hello_ack"
	TypeRegisterTechAck = "register_tech_ack"
	TypePresenceState   = "presence_state"
	TypePresenceUpdate  = "presence_update"
	TypeCallCreated     = "call_created"
	TypeIncomingCall    = "incoming_call"
	TypeSessionCreated  = "session_created"
	TypeSessionJoined   = "session_joined"
	TypePeerJoined      = "peer_joined"
	TypeSessionEnded    = "session_ended"
	TypePeerLeft        = "peer_left"
	TypeError           = "error"
)

type Connected struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
}

type HelloAck struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
	Role         domain.Role   `json:"role"`
}

type RegisterTechAck struct {
	Type   string        `json:"type"`
	TechID domain.TechID `json:"techId"`
}

type PresenceState struct {
	Type          string          `json:"type"`
	OnlineTechIDs []domain.TechID `json:"onlineTechIds"`
}

type PresenceUpdate struct {
	Type   string        `json:"type"`
	TechID domain.TechID `json:"techId"`
	Online bool          `json:"online"`
}

type CallCreated struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	TechID    domain.TechID    `json:"techId"`
}

// CallOrigin tells the callee which role placed the call.
type CallOrigin struct {
	Role domain.Role `json:"role"`
}

type IncomingCall struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	TechID    domain.TechID    `json:"techId"`
	From      CallOrigin       `json:"from"`
}

type SessionCreated struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
}

type SessionJoined struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Role      domain.Role      `json:"role"`
	Status    domain.Status    `json:"status"`
}

type PeerJoined struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Role      domain.Role      `json:"role"`
	Status    domain.Status    `json:"status"`
}

type SignalOut struct {
	Type       string            `json:"type"`
	SessionID  domain.SessionID  `json:"sessionId"`
	SignalType domain.SignalType `json:"signalType"`
	Payload    json.RawMessage   `json:"payload"`
}

type SessionEnded struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
}

type PeerLeft struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Status    domain.Status    `json:"status"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Encode marshals an outbound message into a Frame. A marshal failure is
// a programming error on our own structs; it is logged and yields nil,
// which TrySend implementations treat as nothing to send.
func Encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "protocol").Msg("encode frame")
		return nil
	}
	return b
}

// EncodeError builds the error frame for a protocol failure.
func EncodeError(e *domain.ProtocolError) core.Frame {
	return Encode(ErrorFrame{
		Type:    TypeError,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

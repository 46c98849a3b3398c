// Package protocol defines the tagged wire messages exchanged over the
// signaling socket and validates inbound frames. It never touches
// registry state.
package protocol

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/remtech/relay/internal/domain"
)

// Inbound message types.
const (
	TypeHello             = "hello"
	TypeRegisterTech      = "register_tech"
	TypeSubscribePresence = "subscribe_presence"
	TypeCallRequest       = "call_request"
	TypeCreateSession     = "create_session"
	TypeJoinSession       = "join_session"
	TypeSignal            = "signal"
	TypeEndSession        = "end_session"
)

var validate = validator.New()

// Message is one validated inbound frame.
type Message interface{ inbound() }

// envelope carries the fields common to every inbound frame. RequestID
// is accepted for client-side correlation and otherwise ignored.
type envelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

type Hello struct {
	Role domain.Role `json:"role" validate:"required,oneof=user tech"`
}

type RegisterTech struct {
	TechID string `json:"techId" validate:"required"`
}

type SubscribePresence struct{}

type CallRequest struct {
	TechID string `json:"techId" validate:"required"`
}

type CreateSession struct {
	SessionID       string `json:"sessionId,omitempty"`
	RequestedTechID string `json:"requestedTechId,omitempty"`
}

type JoinSession struct {
	SessionID domain.SessionID `json:"sessionId" validate:"required"`
	Role      domain.Role      `json:"role" validate:"required,oneof=user tech"`
}

type Signal struct {
	SessionID  domain.SessionID  `json:"sessionId" validate:"required"`
	SignalType domain.SignalType `json:"signalType" validate:"required,oneof=offer answer ice"`
	// Payload is opaque negotiation data, relayed without interpretation.
	Payload json.RawMessage `json:"payload"`
}

type EndSession struct {
	SessionID domain.SessionID `json:"sessionId" validate:"required"`
}

func (Hello) inbound()             {}
func (RegisterTech) inbound()      {}
func (SubscribePresence) inbound() {}
func (CallRequest) inbound()       {}
func (CreateSession) inbound()     {}
func (JoinSession) inbound()       {}
func (Signal) inbound()            {}
func (EndSession) inbound()        {}

var errBadJSON = &domain.ProtocolError{Code: domain.CodeBadJSON, Message: "Invalid JSON."}

func badMessage(details string) *domain.ProtocolError {
	return &domain.ProtocolError{
		Code:    domain.CodeBadMessage,
		Message: "Message failed validation.",
		Details: details,
	}
}

// Parse decodes and validates one inbound frame. Unparsable input yields
// BAD_JSON; a parsable frame outside the known shapes yields BAD_MESSAGE
// with the violated-shape detail.
func Parse(data []byte) (Message, *domain.ProtocolError) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errBadJSON
	}

	var msg Message
	switch env.Type {
	case TypeHello:
		msg = &Hello{}
	case TypeRegisterTech:
		msg = &RegisterTech{}
	case TypeSubscribePresence:
		msg = &SubscribePresence{}
	case TypeCallRequest:
		msg = &CallRequest{}
	case TypeCreateSession:
		msg = &CreateSession{}
	case TypeJoinSession:
		msg = &JoinSession{}
	case TypeSignal:
		msg = &Signal{}
	case TypeEndSession:
		msg = &EndSession{}
	default:
		return nil, badMessage("unknown type " + env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, badMessage(err.Error())
	}
	if err := validate.Struct(msg); err != nil {
		return nil, badMessage(err.Error())
	}
	return msg, nil
}

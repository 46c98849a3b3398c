package domain

// Wire-level error codes, reported only to the originating connection.
const (
	CodeBadJSON       = "BAD_JSON"
	CodeBadMessage    = "BAD_MESSAGE"
	CodeBadIdentity   = "BAD_IDENTITY"
	CodeTechOffline   = "TECH_OFFLINE"
	CodeBadSessionID  = "BAD_SESSION_ID"
	CodeSessionTaken  = "SESSION_TAKEN"
	CodeNoSession     = "NO_SESSION"
	CodeRoleTaken     = "ROLE_TAKEN"
	CodeNotAuthorized = "NOT_AUTHORIZED"
	CodeNotRegistered = "NOT_REGISTERED"
	CodeNotInSession  = "NOT_IN_SESSION"
	CodeNoPeer        = "NO_PEER"
)

// ProtocolError is a client-visible failure. None of these are fatal to
// the process; they answer exactly one inbound message.
type ProtocolError struct {
	Code    string
	Message string
	Details string
}

func (e *ProtocolError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrBadIdentity   = &ProtocolError{Code: CodeBadIdentity, Message: "techId is required."}
	ErrTechOffline   = &ProtocolError{Code: CodeTechOffline, Message: "Requested tech is not online."}
	ErrBadSessionID  = &ProtocolError{Code: CodeBadSessionID, Message: "sessionId must be 7 chars (A-Z, 0-9)."}
	ErrSessionTaken  = &ProtocolError{Code: CodeSessionTaken, Message: "Session already exists."}
	ErrNoSession     = &ProtocolError{Code: CodeNoSession, Message: "Session not found."}
	ErrRoleTaken     = &ProtocolError{Code: CodeRoleTaken, Message: "Role slot already taken."}
	ErrNotAuthorized = &ProtocolError{Code: CodeNotAuthorized, Message: "This session is assigned to a different tech."}
	ErrNotRegistered = &ProtocolError{Code: CodeNotRegistered, Message: "Tech must register presence before joining assigned sessions."}
	ErrNotInSession  = &ProtocolError{Code: CodeNotInSession, Message: "You are not part of this session."}
	ErrNoPeer        = &ProtocolError{Code: CodeNoPeer, Message: "Peer not connected yet."}
)

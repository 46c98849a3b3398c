package core

import (
	"crypto/rand"
	"regexp"

	"github.com/google/uuid"

	"github.com/remtech/relay/internal/domain"
)

const (
	sessionCodeLen      = 7
	sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// SessionCodeRe is the pattern a client-supplied session id must match.
var SessionCodeRe = regexp.MustCompile("^[A-Z0-9]{7}$")

// NewConnID mints a globally unique connection id.
func NewConnID() domain.ConnID {
	return domain.ConnID(uuid.NewString())
}

// NewSessionCode mints a short uppercase rendezvous code. Uniqueness
// against live sessions is the caller's responsibility.
func NewSessionCode() domain.SessionID {
	buf := make([]byte, sessionCodeLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = sessionCodeAlphabet[int(b)%len(sessionCodeAlphabet)]
	}
	return domain.SessionID(buf)
}

// ValidSessionCode reports whether a client-supplied id is acceptable.
func ValidSessionCode(id domain.SessionID) bool {
	return SessionCodeRe.MatchString(string(id))
}

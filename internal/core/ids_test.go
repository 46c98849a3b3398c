package core

import (
	"testing"

	"github.com/remtech/relay/internal/domain"
)

func TestNewSessionCodeFormat(t *testing.T) {
	seen := make(map[domain.SessionID]struct{})
	for i := 0; i < 200; i++ {
		code := NewSessionCode()
		if !ValidSessionCode(code) {
			t.Fatalf("code %q does not match %s", code, SessionCodeRe)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestValidSessionCode(t *testing.T) {
	cases := []struct {
		id domain.SessionID
		ok bool
	}{
		{"AB12CD3", true},
		{"ZZZZZZZ", true},
		{"0000000", true},
		{"ab12cd3", false},
		{"AB12CD", false},
		{"AB12CD34", false},
		{"AB12CD!", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidSessionCode(tc.id); got != tc.ok {
			t.Fatalf("ValidSessionCode(%q)=%v, want %v", tc.id, got, tc.ok)
		}
	}
}

func TestNewConnIDUnique(t *testing.T) {
	a, b := NewConnID(), NewConnID()
	if a == b {
		t.Fatalf("two connection ids collided: %s", a)
	}
	if len(a) < 32 {
		t.Fatalf("conn id %q too short for required entropy", a)
	}
}

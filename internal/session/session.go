package session

import (
	"time"

	"github.com/kapu/parish-directory-go/pkg/errors"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is the admin state a caller carries into every mutating operation.
// A nil *Session behaves as Unauthenticated.
type Session struct {
	state     State
	expiresAt time.Time
}

func Anonymous() *Session {
	return &Session{state: Unauthenticated}
}

// State is Unauthenticated once the session's expiry has passed, even if nobody logged out.
func (s *Session) State() State {
	if s == nil {
		return Unauthenticated
	}
	if s.state == Authenticated && s.expired(time.Now()) {
		return Unauthenticated
	}
	return s.state
}

func (s *Session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// ExpiresAt is zero for unauthenticated sessions.
func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}

// Require returns an AuthorizationError unless the session is authenticated and unexpired.
func (s *Session) Require(operation string) error {
	if !s.IsAuthenticated() {
		return errors.NewAuthorizationError("administrator login required", operation)
	}
	return nil
}

// Logout moves the session back to Unauthenticated.
func (s *Session) Logout() {
	if s == nil {
		return
	}
	s.state = Unauthenticated
	s.expiresAt = time.Time{}
}

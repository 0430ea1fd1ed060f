package proctoring

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound means the session was never started or has been
	// purged.
	ErrSessionNotFound = errors.New("proctoring session not found")

	// ErrSessionNotActive means the operation is only valid for an active
	// session.
	ErrSessionNotActive = errors.New("proctoring session is not active")

	// ErrSessionCompleted means the session has ended and accepts no
	// further mutation.
	ErrSessionCompleted = errors.New("proctoring session already completed")

	// ErrSessionExists means a session with the same ID was already started.
	ErrSessionExists = errors.New("proctoring session already exists")

	// ErrMalformedInput means the detector payload is missing its required
	// shape. Individual missing signals are skipped silently; this error is
	// reserved for payloads that cannot be interpreted at all.
	ErrMalformedInput = errors.New("malformed detector input")
)

// SessionStateError reports an operation attempted in an invalid lifecycle
// state. It wraps one of the sentinel errors above so callers can branch with
// errors.Is while still seeing the offending state.
type SessionStateError struct {
	SessionID string
	State     string
	Op        string
	Err       error
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("cannot %s session %s in state %q: %v", e.Op, e.SessionID, e.State, e.Err)
}

func (e *SessionStateError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if err represents an unknown session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsStateConflict checks if err represents an invalid lifecycle transition.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrSessionExists)
}

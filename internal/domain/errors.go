package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCreditsExhausted = errors.New("time credits exhausted")
	ErrSendInFlight     = errors.New("another message is still being sent")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSignedOut        = errors.New("session signed out")
	ErrMessageNotFound  = errors.New("message not found")
	ErrImageNotLocked   = errors.New("image is not locked")
)

// ValidationError is returned when outgoing text is rejected by the text policy.
// The turn is never sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NetworkError wraps a failed collaborator call. It is surfaced as a transient notice.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ReconciliationMismatch means an unlock confirmation named a message the log does not know.
type ReconciliationMismatch struct {
	ServerMessageID int64
}

func (e *ReconciliationMismatch) Error() string {
	return fmt.Sprintf("unlock confirmation for unknown message %d", e.ServerMessageID)
}

// IsTransient reports whether err should be shown as a non-blocking notice.
func IsTransient(err error) bool {
	var netErr *NetworkError
	var mismatch *ReconciliationMismatch
	return errors.As(err, &netErr) || errors.As(err, &mismatch)
}

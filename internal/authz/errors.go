package authz

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authorization core.
var (
	// ErrInvalidIdentifier marks a malformed user/restaurant/location id.
	// Caller error; retrying will not help.
	ErrInvalidIdentifier = errors.New("authz: invalid identifier")
	// ErrResolutionFailed marks an unreachable or timed-out assignment
	// store. Transient; the caller may retry with backoff.
	ErrResolutionFailed = errors.New("authz: resolution failed")
	// ErrForbidden is the base error for gate denials.
	ErrForbidden = errors.New("authz: forbidden")
)

// ForbiddenError is a well-formed request the authorization rules
// reject. It carries enough context for audit logging and unwraps to
// ErrForbidden.
type ForbiddenError struct {
	ActorID    int64
	TargetKind string
	TargetID   int64
	Operation  Operation
	Reason     string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("authz: forbidden: actor %d may not %s %s %d: %s",
		e.ActorID, e.Operation, e.TargetKind, e.TargetID, e.Reason)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

func forbidden(actor AuthContext, kind string, targetID int64, op Operation, reason string) error {
	return &ForbiddenError{
		ActorID:    actor.UserID,
		TargetKind: kind,
		TargetID:   targetID,
		Operation:  op,
		Reason:     reason,
	}
}

// resolutionFailed wraps a store error so it is never mistaken for an
// empty role set.
func resolutionFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrResolutionFailed, err)
}

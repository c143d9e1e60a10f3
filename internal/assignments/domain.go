package assignments

import (
	"errors"
	"time"
)

// GrantRequest describes a new role assignment.
type GrantRequest struct {
	UserID              int64
	RoleName            string
	RestaurantID        *int64
	LocationID          *int64
	ValidFrom           *time.Time
	ValidUntil          *time.Time
	PermissionsOverride map[string]any
}

var (
	// ErrUnknownRole indicates the role name is not in the catalog.
	ErrUnknownRole = errors.New("assignments: unknown role")
	// ErrScopeMismatch indicates missing or superfluous scope ids for
	// the role's scope kind.
	ErrScopeMismatch = errors.New("assignments: scope mismatch")
	// ErrInvalidWindow indicates valid_until not after valid_from.
	ErrInvalidWindow = errors.New("assignments: invalid validity window")
	// ErrEscalation indicates an actor granting above their own level.
	ErrEscalation = errors.New("assignments: grant exceeds actor level")
)

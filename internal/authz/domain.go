package authz

import "time"

// Scope describes where a role applies.
type Scope string

// Role scopes, from widest to narrowest.
const (
	ScopeGlobal     Scope = "global"
	ScopeRestaurant Scope = "restaurant"
	ScopeLocation   Scope = "location"
)

// AccessLevel is the coarse grant strength attached to a reachable location.
type AccessLevel string

const (
	AccessFull     AccessLevel = "full"
	AccessStandard AccessLevel = "standard"
)

func (l AccessLevel) rank() int {
	if l == AccessFull {
		return 2
	}
	return 1
}

// Operation is the kind of access being checked against a target.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Role is a catalog entry. Catalog rows are reference data and are
// immutable at runtime.
type Role struct {
	ID                 int64
	Name               string
	DisplayName        string
	Level              int
	Scope              Scope
	IsAdminRole        bool
	CanManageUsers     bool
	CanManageLocations bool
}

// Assignment is a single role grant. It is the only mutable
// authorization state; revocation flips IsActive and never deletes.
type Assignment struct {
	ID                  int64
	UserID              int64
	RoleID              int64
	RestaurantID        *int64
	LocationID          *int64
	AssignedBy          *int64
	PermissionsOverride map[string]any
	IsActive            bool
	ValidFrom           time.Time
	ValidUntil          *time.Time
	CreatedAt           time.Time
}

// EffectiveAt reports whether the assignment counts at the given instant.
func (a Assignment) EffectiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	return a.ValidUntil == nil || a.ValidUntil.After(now)
}

// Grant is an assignment joined with its catalog role plus denormalized
// display names for the scoped restaurant/location.
type Grant struct {
	Assignment
	Role           Role
	RestaurantName string
	LocationName   string
}

// Resolved is the derived authorization state for one user. It is
// recomputed on demand and never cached across requests, so a revoked
// role disappears on the next resolution.
type Resolved struct {
	Primary      *Grant
	Grants       []Grant
	IsAdmin      bool
	IsSuperAdmin bool
}

// RoleView is the outward projection of a grant.
type RoleView struct {
	RoleName       string `json:"role_name"`
	DisplayName    string `json:"display_name"`
	Level          int    `json:"level"`
	IsAdminRole    bool   `json:"is_admin_role"`
	RestaurantName string `json:"restaurant_name,omitempty"`
	LocationName   string `json:"location_name,omitempty"`
}

// Views projects the resolved grants in precedence order.
func (r Resolved) Views() []RoleView {
	views := make([]RoleView, 0, len(r.Grants))
	for _, g := range r.Grants {
		views = append(views, g.View())
	}
	return views
}

// PrimaryView projects the primary role, or nil when the user holds none.
func (r Resolved) PrimaryView() *RoleView {
	if r.Primary == nil {
		return nil
	}
	v := r.Primary.View()
	return &v
}

// View projects a single grant.
func (g Grant) View() RoleView {
	return RoleView{
		RoleName:       g.Role.Name,
		DisplayName:    g.Role.DisplayName,
		Level:          g.Role.Level,
		IsAdminRole:    g.Role.IsAdminRole,
		RestaurantName: g.RestaurantName,
		LocationName:   g.LocationName,
	}
}

// AccessibleLocation is one reachable location, deduplicated by location
// with the strongest access level winning.
type AccessibleLocation struct {
	LocationID   int64       `json:"location_id"`
	RestaurantID int64       `json:"restaurant_id"`
	Name         string      `json:"name"`
	AccessLevel  AccessLevel `json:"access_level"`
	ViaRoleID    int64       `json:"via_role_id"`
	ViaRole      string      `json:"via_role"`
}

// AuthContext carries the actor's resolved authorization for gate checks.
// It is built once per request by the resolver and passed by value.
type AuthContext struct {
	UserID       int64
	RestaurantID *int64
	Grants       []Grant
	IsAdmin      bool
	IsSuperAdmin bool
}

// UserRef identifies a gate target user together with its tenant.
type UserRef struct {
	ID           int64
	RestaurantID *int64
}

// less orders grants by precedence: level descending, then earliest
// valid-from, then assignment id. The order is total, so identical input
// state always yields the same primary role.
func less(a, b Grant) bool {
	if a.Role.Level != b.Role.Level {
		return a.Role.Level > b.Role.Level
	}
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.Before(b.ValidFrom)
	}
	return a.Assignment.ID < b.Assignment.ID
}

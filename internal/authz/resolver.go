package authz

import (
	"context"
	"sort"
	"time"
)

// ScopeFilter narrows HasRole to a specific restaurant and/or location.
// A nil field matches any scope.
type ScopeFilter struct {
	RestaurantID *int64
	LocationID   *int64
}

// Resolver computes derived authorization state from the assignment
// store. It is read-only and holds no per-user state.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// ResolveRoles loads the user's effective grants and derives the role
// set, primary role and admin flags. A user with zero effective
// assignments resolves successfully with a nil primary.
func (r *Resolver) ResolveRoles(ctx context.Context, userID int64) (Resolved, error) {
	if userID <= 0 {
		return Resolved{}, ErrInvalidIdentifier
	}

	grants, err := r.store.EffectiveGrants(ctx, userID, r.now())
	if err != nil {
		return Resolved{}, resolutionFailed(err)
	}

	sort.SliceStable(grants, func(i, j int) bool { return less(grants[i], grants[j]) })

	res := Resolved{Grants: grants}
	for i := range grants {
		if !grants[i].Role.IsAdminRole {
			continue
		}
		res.IsAdmin = true
		if grants[i].RestaurantID == nil {
			res.IsSuperAdmin = true
		}
	}
	if len(grants) > 0 {
		res.Primary = &grants[0]
	}
	return res, nil
}

// HasRole reports whether the user holds an effective grant of the named
// role matching the supplied scope filter.
func (r *Resolver) HasRole(ctx context.Context, userID int64, roleName string, filter ScopeFilter) (bool, error) {
	res, err := r.ResolveRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range res.Grants {
		if g.Role.Name != roleName {
			continue
		}
		if filter.RestaurantID != nil && (g.RestaurantID == nil || *g.RestaurantID != *filter.RestaurantID) {
			continue
		}
		if filter.LocationID != nil && (g.LocationID == nil || *g.LocationID != *filter.LocationID) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// HasAdminAccess reports whether any effective role is admin-capable.
func (r *Resolver) HasAdminAccess(ctx context.Context, userID int64) (bool, error) {
	res, err := r.ResolveRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	return res.IsAdmin, nil
}

// AuthContext builds the per-request actor context the gate consumes.
// The scoped restaurant follows the primary role.
func (r *Resolver) AuthContext(ctx context.Context, userID int64) (AuthContext, error) {
	res, err := r.ResolveRoles(ctx, userID)
	if err != nil {
		return AuthContext{}, err
	}
	return NewAuthContext(userID, res), nil
}

// NewAuthContext derives an actor context from already-resolved state.
func NewAuthContext(userID int64, res Resolved) AuthContext {
	ac := AuthContext{
		UserID:       userID,
		Grants:       res.Grants,
		IsAdmin:      res.IsAdmin,
		IsSuperAdmin: res.IsSuperAdmin,
	}
	if res.Primary != nil {
		ac.RestaurantID = res.Primary.RestaurantID
	}
	return ac
}

package assignments

import (
	"context"
	"fmt"

	"github.com/tablekeep/tablekeep/internal/authz"
)

// validateGrant checks the request against the catalog's scope rules and
// the actor's own authority, returning the resolved catalog role.
func (s *Service) validateGrant(ctx context.Context, actor authz.AuthContext, req GrantRequest) (authz.Role, error) {
	if req.UserID <= 0 {
		return authz.Role{}, authz.ErrInvalidIdentifier
	}

	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return authz.Role{}, err
	}
	role, ok := catalog.ByName(req.RoleName)
	if !ok {
		return authz.Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, req.RoleName)
	}

	switch role.Scope {
	case authz.ScopeGlobal:
		if req.RestaurantID != nil || req.LocationID != nil {
			return authz.Role{}, fmt.Errorf("%w: global role takes no restaurant or location", ErrScopeMismatch)
		}
	case authz.ScopeRestaurant:
		if req.RestaurantID == nil {
			return authz.Role{}, fmt.Errorf("%w: restaurant-scoped role requires a restaurant", ErrScopeMismatch)
		}
		if req.LocationID != nil {
			return authz.Role{}, fmt.Errorf("%w: restaurant-scoped role takes no location", ErrScopeMismatch)
		}
	case authz.ScopeLocation:
		if req.RestaurantID == nil || req.LocationID == nil {
			return authz.Role{}, fmt.Errorf("%w: location-scoped role requires restaurant and location", ErrScopeMismatch)
		}
	}

	if req.LocationID != nil {
		loc, err := s.store.Location(ctx, *req.LocationID)
		if err != nil {
			return authz.Role{}, err
		}
		if req.RestaurantID == nil || loc.RestaurantID != *req.RestaurantID {
			return authz.Role{}, fmt.Errorf("%w: location %d does not belong to restaurant", ErrScopeMismatch, *req.LocationID)
		}
	}

	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		return authz.Role{}, ErrInvalidWindow
	}
	if req.ValidUntil != nil && req.ValidFrom == nil && !req.ValidUntil.After(s.now()) {
		return authz.Role{}, ErrInvalidWindow
	}

	if err := s.authorizeScope(actor, req.RestaurantID); err != nil {
		return authz.Role{}, err
	}
	if !actor.IsSuperAdmin && role.Level > actorLevel(actor) {
		return authz.Role{}, ErrEscalation
	}

	return role, nil
}

func actorLevel(actor authz.AuthContext) int {
	level := 0
	for _, g := range actor.Grants {
		if g.Role.Level > level {
			level = g.Role.Level
		}
	}
	return level
}

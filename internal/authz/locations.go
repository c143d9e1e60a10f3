package authz

import (
	"context"
	"errors"
	"sort"

	"github.com/tablekeep/tablekeep/internal/shared"
)

// LocationResolver computes the set of locations a user may reach. It
// relies on the Resolver's effective role set rather than re-deriving
// it, so roles and reachable locations can never diverge.
type LocationResolver struct {
	roles *Resolver
	store Store
}

// NewLocationResolver constructs a LocationResolver.
func NewLocationResolver(roles *Resolver, store Store) *LocationResolver {
	return &LocationResolver{roles: roles, store: store}
}

// ResolveAccessibleLocations returns one entry per reachable location.
// When several roles reach the same location the strongest access level
// wins; on equal levels the higher-precedence role keeps the entry.
func (lr *LocationResolver) ResolveAccessibleLocations(ctx context.Context, userID int64) ([]AccessibleLocation, error) {
	res, err := lr.roles.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lr.AccessibleLocationsFor(ctx, res)
}

// AccessibleLocationsFor computes reachable locations from an
// already-resolved role set. Login aggregation uses this to avoid a
// second resolution pass.
func (lr *LocationResolver) AccessibleLocationsFor(ctx context.Context, res Resolved) ([]AccessibleLocation, error) {
	merged := make(map[int64]AccessibleLocation)

	// Grants are already in precedence order, so on access-level ties
	// the first writer (higher-precedence role) keeps the slot.
	for _, g := range res.Grants {
		candidates, level, err := lr.reachable(ctx, g)
		if err != nil {
			return nil, err
		}
		for _, row := range candidates {
			existing, ok := merged[row.ID]
			if ok && existing.AccessLevel.rank() >= level.rank() {
				continue
			}
			merged[row.ID] = AccessibleLocation{
				LocationID:   row.ID,
				RestaurantID: row.RestaurantID,
				Name:         row.Name,
				AccessLevel:  level,
				ViaRoleID:    g.Role.ID,
				ViaRole:      g.Role.Name,
			}
		}
	}

	out := make([]AccessibleLocation, 0, len(merged))
	for _, loc := range merged {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RestaurantID != out[j].RestaurantID {
			return out[i].RestaurantID < out[j].RestaurantID
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out, nil
}

// ResolvePrimaryLocation picks a default location for the user: the one
// pinned by the primary role when it pins exactly one, otherwise the
// first accessible location, otherwise nil. This is a UX default, never
// an authorization decision.
func (lr *LocationResolver) ResolvePrimaryLocation(ctx context.Context, userID int64) (*AccessibleLocation, error) {
	res, err := lr.roles.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lr.PrimaryLocationFor(ctx, res)
}

// PrimaryLocationFor is ResolvePrimaryLocation over already-resolved state.
func (lr *LocationResolver) PrimaryLocationFor(ctx context.Context, res Resolved) (*AccessibleLocation, error) {
	locations, err := lr.AccessibleLocationsFor(ctx, res)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}

	if res.Primary != nil {
		if res.Primary.LocationID != nil {
			for i := range locations {
				if locations[i].LocationID == *res.Primary.LocationID {
					return &locations[i], nil
				}
			}
		} else if res.Primary.RestaurantID != nil {
			var match *AccessibleLocation
			count := 0
			for i := range locations {
				if locations[i].RestaurantID == *res.Primary.RestaurantID {
					if count == 0 {
						match = &locations[i]
					}
					count++
				}
			}
			if count == 1 {
				return match, nil
			}
		}
	}
	return &locations[0], nil
}

func (lr *LocationResolver) reachable(ctx context.Context, g Grant) ([]LocationRow, AccessLevel, error) {
	level := AccessStandard
	if g.Role.IsAdminRole || g.Role.CanManageLocations {
		level = AccessFull
	}

	switch g.Role.Scope {
	case ScopeGlobal:
		// A true global role reaches every location. A restaurant-pinned
		// global grant falls back to that restaurant's locations.
		if g.RestaurantID == nil {
			rows, err := lr.store.AllLocations(ctx)
			if err != nil {
				return nil, "", resolutionFailed(err)
			}
			return rows, AccessFull, nil
		}
		rows, err := lr.store.RestaurantLocations(ctx, *g.RestaurantID)
		if err != nil {
			return nil, "", resolutionFailed(err)
		}
		return rows, AccessFull, nil
	case ScopeRestaurant:
		if g.RestaurantID == nil {
			return nil, level, nil
		}
		rows, err := lr.store.RestaurantLocations(ctx, *g.RestaurantID)
		if err != nil {
			return nil, "", resolutionFailed(err)
		}
		return rows, level, nil
	case ScopeLocation:
		if g.LocationID == nil {
			return nil, level, nil
		}
		row, err := lr.store.Location(ctx, *g.LocationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, level, nil
			}
			return nil, "", resolutionFailed(err)
		}
		return []LocationRow{row}, level, nil
	default:
		return nil, level, nil
	}
}

package authz

import (
	"context"
	"time"

	"github.com/tablekeep/tablekeep/internal/shared"
)

// memStore is an in-memory Store for resolver tests.
type memStore struct {
	roles       map[int64]Role
	assignments []Assignment
	restaurants map[int64]string
	locations   []LocationRow
	err         error
}

func newMemStore() *memStore {
	return &memStore{
		roles:       make(map[int64]Role),
		restaurants: make(map[int64]string),
	}
}

func (s *memStore) addRole(r Role) Role {
	s.roles[r.ID] = r
	return r
}

func (s *memStore) addAssignment(a Assignment) Assignment {
	s.assignments = append(s.assignments, a)
	return a
}

func (s *memStore) setActive(assignmentID int64, active bool) {
	for i := range s.assignments {
		if s.assignments[i].ID == assignmentID {
			s.assignments[i].IsActive = active
		}
	}
}

func (s *memStore) join(a Assignment) Grant {
	g := Grant{Assignment: a, Role: s.roles[a.RoleID]}
	if a.RestaurantID != nil {
		g.RestaurantName = s.restaurants[*a.RestaurantID]
	}
	if a.LocationID != nil {
		for _, loc := range s.locations {
			if loc.ID == *a.LocationID {
				g.LocationName = loc.Name
			}
		}
	}
	return g
}

func (s *memStore) EffectiveGrants(ctx context.Context, userID int64, now time.Time) ([]Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Grant
	for _, a := range s.assignments {
		if a.UserID != userID || !a.EffectiveAt(now) {
			continue
		}
		out = append(out, s.join(a))
	}
	return out, nil
}

func (s *memStore) AllGrants(ctx context.Context, userID int64) ([]Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Grant
	for _, a := range s.assignments {
		if a.UserID != userID {
			continue
		}
		out = append(out, s.join(a))
	}
	return out, nil
}

func (s *memStore) ListRoles(ctx context.Context) ([]Role, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) RestaurantLocations(ctx context.Context, restaurantID int64) ([]LocationRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []LocationRow
	for _, loc := range s.locations {
		if loc.RestaurantID == restaurantID {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (s *memStore) AllLocations(ctx context.Context) ([]LocationRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]LocationRow(nil), s.locations...), nil
}

func (s *memStore) Location(ctx context.Context, id int64) (LocationRow, error) {
	if s.err != nil {
		return LocationRow{}, s.err
	}
	for _, loc := range s.locations {
		if loc.ID == id {
			return loc, nil
		}
	}
	return LocationRow{}, shared.ErrNotFound
}

var _ Store = (*memStore)(nil)

func ptr[T any](v T) *T { return &v }

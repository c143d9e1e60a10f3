package restaurants

import (
	"context"
	"strconv"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type auditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates tenant management with access checks.
type Service struct {
	repo  Repository
	gate  *authz.Gate
	audit auditRecorder
}

// NewService constructs the restaurant service.
func NewService(repo Repository, gate *authz.Gate, audit auditRecorder) *Service {
	return &Service{repo: repo, gate: gate, audit: audit}
}

// List returns the restaurants the actor can see. Super-admins get the
// full catalog; everyone else gets the restaurants their grants touch.
func (s *Service) List(ctx context.Context, actor authz.AuthContext, filters ListFilters) ([]Restaurant, int, error) {
	if actor.IsSuperAdmin {
		if filters.Limit <= 0 || filters.Limit > 100 {
			filters.Limit = 25
		}
		if filters.Page <= 0 {
			filters.Page = 1
		}
		return s.repo.List(ctx, filters)
	}
	ids := grantedRestaurantIDs(actor)
	list, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return list, len(list), nil
}

// Get fetches a restaurant after an access check.
func (s *Service) Get(ctx context.Context, actor authz.AuthContext, id int64) (Restaurant, error) {
	if err := s.gate.CanAccessRestaurant(actor, id); err != nil {
		return Restaurant{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create provisions a new tenant. Super-admin only.
func (s *Service) Create(ctx context.Context, actor authz.AuthContext, rec Restaurant) (Restaurant, error) {
	if !actor.IsSuperAdmin {
		return Restaurant{}, authz.ErrForbidden
	}
	if err := s.validateRestaurant(rec); err != nil {
		return Restaurant{}, err
	}
	created, err := s.repo.Create(ctx, normalizeRestaurant(rec))
	if err != nil {
		return Restaurant{}, err
	}
	s.recordAudit(ctx, actor.UserID, "restaurant.create", "restaurant", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// Update changes tenant details. Requires access to the restaurant plus
// an admin grant in it.
func (s *Service) Update(ctx context.Context, actor authz.AuthContext, id int64, rec Restaurant) (Restaurant, error) {
	if err := s.requireManage(actor, id); err != nil {
		return Restaurant{}, err
	}
	if err := s.validateRestaurant(rec); err != nil {
		return Restaurant{}, err
	}
	if err := s.repo.Update(ctx, id, normalizeRestaurant(rec)); err != nil {
		return Restaurant{}, err
	}
	s.recordAudit(ctx, actor.UserID, "restaurant.update", "restaurant", id, nil)
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes a tenant. Super-admin only.
func (s *Service) Deactivate(ctx context.Context, actor authz.AuthContext, id int64) error {
	if !actor.IsSuperAdmin {
		return authz.ErrForbidden
	}
	if id <= 0 {
		return authz.ErrInvalidIdentifier
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "restaurant.deactivate", "restaurant", id, nil)
	return nil
}

// Locations lists a restaurant's active locations after an access check.
func (s *Service) Locations(ctx context.Context, actor authz.AuthContext, restaurantID int64) ([]Location, error) {
	if err := s.gate.CanAccessRestaurant(actor, restaurantID); err != nil {
		return nil, err
	}
	return s.repo.Locations(ctx, restaurantID)
}

// CreateLocation adds a location to a restaurant.
func (s *Service) CreateLocation(ctx context.Context, actor authz.AuthContext, l Location) (Location, error) {
	if err := s.requireManageLocations(actor, l.RestaurantID); err != nil {
		return Location{}, err
	}
	if err := s.validateLocation(l); err != nil {
		return Location{}, err
	}
	created, err := s.repo.CreateLocation(ctx, l)
	if err != nil {
		return Location{}, err
	}
	s.recordAudit(ctx, actor.UserID, "location.create", "location", created.ID, map[string]any{"restaurant_id": l.RestaurantID})
	return created, nil
}

// UpdateLocation changes a location's details.
func (s *Service) UpdateLocation(ctx context.Context, actor authz.AuthContext, id int64, l Location) (Location, error) {
	existing, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return Location{}, err
	}
	if err := s.requireManageLocations(actor, existing.RestaurantID); err != nil {
		return Location{}, err
	}
	l.RestaurantID = existing.RestaurantID
	if err := s.validateLocation(l); err != nil {
		return Location{}, err
	}
	if err := s.repo.UpdateLocation(ctx, id, l); err != nil {
		return Location{}, err
	}
	s.recordAudit(ctx, actor.UserID, "location.update", "location", id, nil)
	return s.repo.GetLocation(ctx, id)
}

// DeactivateLocation soft-deletes a location.
func (s *Service) DeactivateLocation(ctx context.Context, actor authz.AuthContext, id int64) error {
	existing, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireManageLocations(actor, existing.RestaurantID); err != nil {
		return err
	}
	if err := s.repo.DeactivateLocation(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "location.deactivate", "location", id, nil)
	return nil
}

// requireManage allows super-admins and actors holding an admin grant
// scoped to the restaurant.
func (s *Service) requireManage(actor authz.AuthContext, restaurantID int64) error {
	if err := s.gate.CanAccessRestaurant(actor, restaurantID); err != nil {
		return err
	}
	if actor.IsSuperAdmin {
		return nil
	}
	for _, g := range actor.Grants {
		if g.Role.IsAdminRole && g.RestaurantID != nil && *g.RestaurantID == restaurantID {
			return nil
		}
	}
	return authz.ErrForbidden
}

// requireManageLocations additionally accepts non-admin roles carrying
// the manage-locations capability.
func (s *Service) requireManageLocations(actor authz.AuthContext, restaurantID int64) error {
	if err := s.gate.CanAccessRestaurant(actor, restaurantID); err != nil {
		return err
	}
	if actor.IsSuperAdmin {
		return nil
	}
	for _, g := range actor.Grants {
		if g.RestaurantID == nil || *g.RestaurantID != restaurantID {
			continue
		}
		if g.Role.IsAdminRole || g.Role.CanManageLocations {
			return nil
		}
	}
	return authz.ErrForbidden
}

func grantedRestaurantIDs(actor authz.AuthContext) []int64 {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, g := range actor.Grants {
		if g.RestaurantID == nil {
			continue
		}
		if _, ok := seen[*g.RestaurantID]; ok {
			continue
		}
		seen[*g.RestaurantID] = struct{}{}
		ids = append(ids, *g.RestaurantID)
	}
	return ids
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}

package assignments

import (
	"context"
	"strconv"
	"time"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type auditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles assignment business logic. All operations take the
// acting user's resolved context and enforce the gate before touching
// the store.
type Service struct {
	repo    Repository
	store   authz.Store
	catalog *authz.CatalogLoader
	gate    *authz.Gate
	audit   auditRecorder
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, store authz.Store, catalog *authz.CatalogLoader, gate *authz.Gate, audit auditRecorder) *Service {
	return &Service{repo: repo, store: store, catalog: catalog, gate: gate, audit: audit, now: time.Now}
}

// Grant creates a new role assignment for the target user.
func (s *Service) Grant(ctx context.Context, actor authz.AuthContext, req GrantRequest) (authz.Assignment, error) {
	role, err := s.validateGrant(ctx, actor, req)
	if err != nil {
		return authz.Assignment{}, err
	}

	assignment := authz.Assignment{
		UserID:              req.UserID,
		RoleID:              role.ID,
		RestaurantID:        req.RestaurantID,
		LocationID:          req.LocationID,
		AssignedBy:          &actor.UserID,
		PermissionsOverride: req.PermissionsOverride,
	}
	if req.ValidFrom != nil {
		assignment.ValidFrom = *req.ValidFrom
	}
	assignment.ValidUntil = req.ValidUntil

	created, err := s.repo.Insert(ctx, assignment)
	if err != nil {
		return authz.Assignment{}, err
	}
	s.recordAudit(ctx, actor.UserID, "assignment.grant", created.ID, map[string]any{
		"user_id": created.UserID,
		"role":    role.Name,
	})
	return created, nil
}

// Revoke deactivates an assignment. Revocation is logical; the row and
// its audit trail remain.
func (s *Service) Revoke(ctx context.Context, actor authz.AuthContext, assignmentID int64) error {
	if assignmentID <= 0 {
		return authz.ErrInvalidIdentifier
	}
	existing, err := s.repo.Get(ctx, assignmentID)
	if err != nil {
		return err
	}
	if err := s.authorizeScope(actor, existing.RestaurantID); err != nil {
		return err
	}
	if _, err := s.repo.Deactivate(ctx, assignmentID, actor.UserID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "assignment.revoke", assignmentID, map[string]any{
		"user_id": existing.UserID,
	})
	return nil
}

// ListForUser returns a user's grants. Effective grants by default; the
// includeInactive variant is the explicit debugging opt-in that bypasses
// the active filter.
func (s *Service) ListForUser(ctx context.Context, actor authz.AuthContext, target authz.UserRef, includeInactive bool) ([]authz.Grant, error) {
	if target.ID <= 0 {
		return nil, authz.ErrInvalidIdentifier
	}
	if err := s.gate.CanAccessUser(actor, target, authz.OpRead); err != nil {
		return nil, err
	}
	if includeInactive {
		return s.store.AllGrants(ctx, target.ID)
	}
	return s.store.EffectiveGrants(ctx, target.ID, s.now())
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "assignment",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}

// authorizeScope checks the actor may manage assignments in the given
// restaurant scope. Global-scope management is super-admin only.
func (s *Service) authorizeScope(actor authz.AuthContext, restaurantID *int64) error {
	if actor.IsSuperAdmin {
		return nil
	}
	if restaurantID == nil {
		return &authz.ForbiddenError{
			ActorID:    actor.UserID,
			TargetKind: "assignment",
			Operation:  authz.OpUpdate,
			Reason:     "global assignments require a super-admin",
		}
	}
	return s.gate.CanAccessRestaurant(actor, *restaurantID)
}

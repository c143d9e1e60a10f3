package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type auditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates user management with access checks.
type Service struct {
	repo  RepositoryPort
	gate  *authz.Gate
	audit auditRecorder
}

// NewService constructs the user service.
func NewService(repo RepositoryPort, gate *authz.Gate, audit auditRecorder) *Service {
	return &Service{repo: repo, gate: gate, audit: audit}
}

// Ref resolves the tenant reference used by access checks.
func (s *Service) Ref(ctx context.Context, id int64) (authz.UserRef, error) {
	if id <= 0 {
		return authz.UserRef{}, authz.ErrInvalidIdentifier
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return authz.UserRef{}, err
	}
	return authz.UserRef{ID: u.ID, RestaurantID: u.RestaurantID}, nil
}

// List returns users visible to the actor. Non super-admins are pinned
// to their own restaurant regardless of the requested filter.
func (s *Service) List(ctx context.Context, actor authz.AuthContext, filters ListFilters) ([]User, int, error) {
	if !actor.IsSuperAdmin {
		if !actor.IsAdmin || actor.RestaurantID == nil {
			return nil, 0, authz.ErrForbidden
		}
		filters.RestaurantID = actor.RestaurantID
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 25
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.List(ctx, filters)
}

// Get fetches a user after an access check.
func (s *Service) Get(ctx context.Context, actor authz.AuthContext, id int64) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	target := authz.UserRef{ID: u.ID, RestaurantID: u.RestaurantID}
	if err := s.gate.CanAccessUser(actor, target, authz.OpRead); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email        string
	Name         string
	RestaurantID *int64
	Password     string
}

// Create provisions a new user account. Global accounts (nil restaurant)
// require a super-admin; restaurant accounts require admin access to
// that restaurant.
func (s *Service) Create(ctx context.Context, actor authz.AuthContext, in CreateInput) (User, error) {
	if in.RestaurantID == nil {
		if !actor.IsSuperAdmin {
			return User{}, authz.ErrForbidden
		}
	} else if err := s.gate.CanAccessRestaurant(actor, *in.RestaurantID); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		RestaurantID: in.RestaurantID,
		PasswordHash: string(hash),
	}
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actor.UserID, "user.create", created.ID, map[string]any{"email": created.Email})
	return created, nil
}

// UpdateInput carries mutable profile fields.
type UpdateInput struct {
	Name  string
	Email string
}

// Update changes a user's profile after an access check.
func (s *Service) Update(ctx context.Context, actor authz.AuthContext, id int64, in UpdateInput) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	target := authz.UserRef{ID: u.ID, RestaurantID: u.RestaurantID}
	if err := s.gate.CanAccessUser(actor, target, authz.OpUpdate); err != nil {
		return User{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		name = u.Name
	}
	if email == "" {
		email = u.Email
	}
	if err := s.repo.Update(ctx, id, name, email); err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actor.UserID, "user.update", id, nil)
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes a user. Self-deactivation is always refused,
// the access gate enforces that before any tenant check.
func (s *Service) Deactivate(ctx context.Context, actor authz.AuthContext, id int64) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	target := authz.UserRef{ID: u.ID, RestaurantID: u.RestaurantID}
	if err := s.gate.CanAccessUser(actor, target, authz.OpDelete); err != nil {
		return err
	}
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound
	}
	s.recordAudit(ctx, actor.UserID, "user.deactivate", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}

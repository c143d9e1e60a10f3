package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablekeep/tablekeep/internal/shared"
)

// LocationRow is the minimal location projection the resolvers need.
// Full location records belong to the restaurants module.
type LocationRow struct {
	ID           int64
	RestaurantID int64
	Name         string
}

// Store is the data-store port for the resolvers. Implementations must
// be safe for concurrent use.
type Store interface {
	// EffectiveGrants returns assignments effective at now, joined with
	// their catalog roles, for the given user.
	EffectiveGrants(ctx context.Context, userID int64, now time.Time) ([]Grant, error)
	// AllGrants bypasses the effective filter. Debugging and admin
	// listings only; resolvers never call it.
	AllGrants(ctx context.Context, userID int64) ([]Grant, error)
	ListRoles(ctx context.Context) ([]Role, error)
	RestaurantLocations(ctx context.Context, restaurantID int64) ([]LocationRow, error)
	AllLocations(ctx context.Context) ([]LocationRow, error)
	Location(ctx context.Context, id int64) (LocationRow, error)
}

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const grantColumns = `
	ra.id, ra.user_id, ra.role_id, ra.restaurant_id, ra.location_id,
	ra.assigned_by, ra.permissions_override, ra.is_active, ra.valid_from,
	ra.valid_until, ra.created_at,
	r.id, r.name, r.display_name, r.level, r.scope, r.is_admin_role,
	r.can_manage_users, r.can_manage_locations,
	COALESCE(rest.name, ''), COALESCE(loc.name, '')`

const grantJoins = `
	FROM role_assignments ra
	JOIN roles r ON r.id = ra.role_id
	LEFT JOIN restaurants rest ON rest.id = ra.restaurant_id
	LEFT JOIN restaurant_locations loc ON loc.id = ra.location_id`

// EffectiveGrants returns active, non-expired assignments for a user.
func (s *PGStore) EffectiveGrants(ctx context.Context, userID int64, now time.Time) ([]Grant, error) {
	query := `SELECT` + grantColumns + grantJoins + `
	WHERE ra.user_id = $1
	  AND ra.is_active = TRUE
	  AND (ra.valid_until IS NULL OR ra.valid_until > $2)
	ORDER BY r.level DESC, ra.valid_from ASC, ra.id ASC`
	return s.queryGrants(ctx, query, userID, now)
}

// AllGrants returns every assignment for a user including inactive and
// expired rows.
func (s *PGStore) AllGrants(ctx context.Context, userID int64) ([]Grant, error) {
	query := `SELECT` + grantColumns + grantJoins + `
	WHERE ra.user_id = $1
	ORDER BY r.level DESC, ra.valid_from ASC, ra.id ASC`
	return s.queryGrants(ctx, query, userID)
}

func (s *PGStore) queryGrants(ctx context.Context, query string, args ...any) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var override []byte
		if err := rows.Scan(
			&g.Assignment.ID, &g.UserID, &g.RoleID, &g.RestaurantID, &g.LocationID,
			&g.AssignedBy, &override, &g.IsActive, &g.ValidFrom,
			&g.ValidUntil, &g.CreatedAt,
			&g.Role.ID, &g.Role.Name, &g.Role.DisplayName, &g.Role.Level, &g.Role.Scope,
			&g.Role.IsAdminRole, &g.Role.CanManageUsers, &g.Role.CanManageLocations,
			&g.RestaurantName, &g.LocationName,
		); err != nil {
			return nil, err
		}
		if len(override) > 0 {
			if err := json.Unmarshal(override, &g.PermissionsOverride); err != nil {
				return nil, err
			}
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ListRoles returns the full catalog ordered by precedence.
func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, display_name, level, scope, is_admin_role, can_manage_users, can_manage_locations FROM roles ORDER BY level DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Level, &r.Scope, &r.IsAdminRole, &r.CanManageUsers, &r.CanManageLocations); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// RestaurantLocations lists locations under one restaurant.
func (s *PGStore) RestaurantLocations(ctx context.Context, restaurantID int64) ([]LocationRow, error) {
	return s.queryLocations(ctx, `SELECT id, restaurant_id, name FROM restaurant_locations WHERE restaurant_id = $1 ORDER BY id`, restaurantID)
}

// AllLocations lists every location in the system.
func (s *PGStore) AllLocations(ctx context.Context) ([]LocationRow, error) {
	return s.queryLocations(ctx, `SELECT id, restaurant_id, name FROM restaurant_locations ORDER BY id`)
}

// Location fetches a single location.
func (s *PGStore) Location(ctx context.Context, id int64) (LocationRow, error) {
	var row LocationRow
	err := s.pool.QueryRow(ctx, `SELECT id, restaurant_id, name FROM restaurant_locations WHERE id = $1`, id).
		Scan(&row.ID, &row.RestaurantID, &row.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return LocationRow{}, shared.ErrNotFound
	}
	return row, err
}

func (s *PGStore) queryLocations(ctx context.Context, query string, args ...any) ([]LocationRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocationRow
	for rows.Next() {
		var row LocationRow
		if err := rows.Scan(&row.ID, &row.RestaurantID, &row.Name); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)

package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	legacypgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/platform/db"
	"github.com/tablekeep/tablekeep/internal/shared"
)

// Repository persists role assignments.
type Repository interface {
	Insert(ctx context.Context, a authz.Assignment) (authz.Assignment, error)
	Get(ctx context.Context, id int64) (authz.Assignment, error)
	// Deactivate flips is_active off and reports whether a row changed.
	Deactivate(ctx context.Context, id int64, actorID int64) (bool, error)
}

// PGRepository implements Repository using PostgreSQL. Writes carry
// their audit record in the same transaction.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores a new assignment together with its audit record.
func (r *PGRepository) Insert(ctx context.Context, a authz.Assignment) (authz.Assignment, error) {
	override, err := marshalOverride(a.PermissionsOverride)
	if err != nil {
		return authz.Assignment{}, err
	}
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO role_assignments (user_id, role_id, restaurant_id, location_id, assigned_by, permissions_override, is_active, valid_from, valid_until)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, COALESCE($7, NOW()), $8)
			RETURNING id, is_active, valid_from, created_at`,
			a.UserID, a.RoleID, a.RestaurantID, a.LocationID, a.AssignedBy, override, nilIfZero(a.ValidFrom), a.ValidUntil,
		).Scan(&a.ID, &a.IsActive, &a.ValidFrom, &a.CreatedAt); err != nil {
			return err
		}
		return auditInsert(ctx, tx, a.AssignedBy, "assignment.grant", a)
	})
	if err != nil {
		return authz.Assignment{}, translatePGError(err)
	}
	return a, nil
}

// Get fetches a single assignment row.
func (r *PGRepository) Get(ctx context.Context, id int64) (authz.Assignment, error) {
	var a authz.Assignment
	var override []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, role_id, restaurant_id, location_id, assigned_by, permissions_override, is_active, valid_from, valid_until, created_at
		FROM role_assignments WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.RoleID, &a.RestaurantID, &a.LocationID, &a.AssignedBy, &override, &a.IsActive, &a.ValidFrom, &a.ValidUntil, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Assignment{}, shared.ErrNotFound
	}
	if err != nil {
		return authz.Assignment{}, err
	}
	if len(override) > 0 {
		if err := json.Unmarshal(override, &a.PermissionsOverride); err != nil {
			return authz.Assignment{}, err
		}
	}
	return a, nil
}

// Deactivate revokes an assignment. The row is kept; only is_active
// flips, so the grant history stays intact.
func (r *PGRepository) Deactivate(ctx context.Context, id int64, actorID int64) (bool, error) {
	var changed bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE role_assignments SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`, id)
		if err != nil {
			return err
		}
		changed = tag.RowsAffected() > 0
		if !changed {
			return nil
		}
		return auditInsert(ctx, tx, &actorID, "assignment.revoke", authz.Assignment{ID: id})
	})
	return changed, err
}

func auditInsert(ctx context.Context, tx pgx.Tx, actorID *int64, action string, a authz.Assignment) error {
	meta := map[string]any{"assignment_id": a.ID}
	if a.RoleID != 0 {
		meta["role_id"] = a.RoleID
	}
	if a.RestaurantID != nil {
		meta["restaurant_id"] = *a.RestaurantID
	}
	if a.LocationID != nil {
		meta["location_id"] = *a.LocationID
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var actor int64
	if actorID != nil {
		actor = *actorID
	}
	_, err = tx.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, 'role_assignment', $3, $4, NOW())`,
		actor, action, formatID(a.ID, a.UserID), metaJSON)
	return err
}

func formatID(assignmentID, userID int64) string {
	if assignmentID != 0 {
		return strconv.FormatInt(assignmentID, 10)
	}
	return strconv.FormatInt(userID, 10)
}

func marshalOverride(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func nilIfZero(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func translatePGError(err error) error {
	code := ""
	var pgErr *pgconn.PgError
	var legacyErr *legacypgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &legacyErr):
		code = legacyErr.Code
	}
	switch code {
	case "23505":
		return shared.ErrDuplicate
	case "23503":
		return shared.ErrNotFound
	}
	return err
}

var _ Repository = (*PGRepository)(nil)

package restaurants

import (
	"context"
	"errors"
	"strconv"

	legacypgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablekeep/tablekeep/internal/shared"
)

// Repository defines persistence for restaurants and their locations.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Restaurant, int, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Restaurant, error)
	Get(ctx context.Context, id int64) (Restaurant, error)
	Create(ctx context.Context, r Restaurant) (Restaurant, error)
	Update(ctx context.Context, id int64, r Restaurant) error
	Deactivate(ctx context.Context, id int64) error

	Locations(ctx context.Context, restaurantID int64) ([]Location, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	CreateLocation(ctx context.Context, l Location) (Location, error)
	UpdateLocation(ctx context.Context, id int64, l Location) error
	DeactivateLocation(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const restaurantColumns = `id, name, slug, timezone, address, is_active, created_at, updated_at`
const locationColumns = `id, restaurant_id, name, address, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Restaurant, int, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE is_active = TRUE`
	countQuery := `SELECT COUNT(*) FROM restaurants WHERE is_active = TRUE`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR slug ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		rec, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Restaurant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = ANY($1) AND is_active = TRUE ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		rec, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Restaurant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
	rec, err := scanRestaurant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Restaurant{}, shared.ErrNotFound
	}
	return rec, err
}

func (r *repository) Create(ctx context.Context, rec Restaurant) (Restaurant, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO restaurants (name, slug, timezone, address, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at, updated_at`,
		rec.Name, rec.Slug, rec.Timezone, rec.Address,
	).Scan(&rec.ID, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Restaurant{}, translatePGError(err)
	}
	return rec, nil
}

func (r *repository) Update(ctx context.Context, id int64, rec Restaurant) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE restaurants SET name = $1, slug = $2, timezone = $3, address = $4, updated_at = NOW()
		WHERE id = $5`,
		rec.Name, rec.Slug, rec.Timezone, rec.Address, id)
	if err != nil {
		return translatePGError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE restaurants SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Locations(ctx context.Context, restaurantID int64) ([]Location, error) {
	rows, err := r.db.Query(ctx, `SELECT `+locationColumns+` FROM restaurant_locations WHERE restaurant_id = $1 AND is_active = TRUE ORDER BY id`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.RestaurantID, &l.Name, &l.Address, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) GetLocation(ctx context.Context, id int64) (Location, error) {
	var l Location
	err := r.db.QueryRow(ctx, `SELECT `+locationColumns+` FROM restaurant_locations WHERE id = $1`, id).
		Scan(&l.ID, &l.RestaurantID, &l.Name, &l.Address, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, shared.ErrNotFound
	}
	return l, err
}

func (r *repository) CreateLocation(ctx context.Context, l Location) (Location, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO restaurant_locations (restaurant_id, name, address, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, is_active, created_at, updated_at`,
		l.RestaurantID, l.Name, l.Address,
	).Scan(&l.ID, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Location{}, translatePGError(err)
	}
	return l, nil
}

func (r *repository) UpdateLocation(ctx context.Context, id int64, l Location) error {
	tag, err := r.db.Exec(ctx, `UPDATE restaurant_locations SET name = $1, address = $2, updated_at = NOW() WHERE id = $3`,
		l.Name, l.Address, id)
	if err != nil {
		return translatePGError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeactivateLocation(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE restaurant_locations SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRestaurant(row pgx.Row) (Restaurant, error) {
	var rec Restaurant
	err := row.Scan(&rec.ID, &rec.Name, &rec.Slug, &rec.Timezone, &rec.Address, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "slug":
		return "slug " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
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

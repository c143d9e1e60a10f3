package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablekeep/tablekeep/internal/shared"
)

// Repository looks up accounts for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, restaurant_id, password_hash, is_active, created_at
		FROM users WHERE LOWER(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&a.ID, &a.Email, &a.Name, &a.RestaurantID, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrNotFound
	}
	return a, err
}

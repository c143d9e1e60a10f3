package users

import "time"

// User represents a managed user account. RestaurantID is the tenant
// the account belongs to; nil for platform-level accounts.
type User struct {
	ID           int64
	Email        string
	Name         string
	RestaurantID *int64
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListFilters narrows user listings.
type ListFilters struct {
	RestaurantID *int64
	Search       string
	Page         int
	Limit        int
}

package auth

import "time"

// Credentials is a login attempt.
type Credentials struct {
	Email    string
	Password string
}

// Account is the slice of the users table authentication needs.
type Account struct {
	ID           int64
	Email        string
	Name         string
	RestaurantID *int64
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

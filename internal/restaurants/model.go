package restaurants

import "time"

// Restaurant is a tenant. Every restaurant-scoped role assignment and
// every location hangs off one of these rows.
type Restaurant struct {
	ID        int64
	Name      string
	Slug      string
	Timezone  string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location is a physical site belonging to a restaurant.
type Location struct {
	ID           int64
	RestaurantID int64
	Name         string
	Address      string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListFilters narrows restaurant listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}

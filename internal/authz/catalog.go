package authz

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Catalog is an immutable snapshot of the role reference data.
type Catalog struct {
	roles  []Role
	byID   map[int64]Role
	byName map[string]Role
}

// NewCatalog builds a snapshot from catalog rows.
func NewCatalog(roles []Role) *Catalog {
	c := &Catalog{
		roles:  append([]Role(nil), roles...),
		byID:   make(map[int64]Role, len(roles)),
		byName: make(map[string]Role, len(roles)),
	}
	for _, r := range roles {
		c.byID[r.ID] = r
		c.byName[r.Name] = r
	}
	return c
}

// Roles returns the catalog ordered as loaded (level descending).
func (c *Catalog) Roles() []Role {
	return append([]Role(nil), c.roles...)
}

// ByID looks up a role by id.
func (c *Catalog) ByID(id int64) (Role, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// ByName looks up a role by its unique name.
func (c *Catalog) ByName(name string) (Role, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// CatalogLoader loads and caches the catalog snapshot. The catalog is
// reference data, so caching it is safe; concurrent cold loads collapse
// into one store query.
type CatalogLoader struct {
	store Store

	mu       sync.RWMutex
	snapshot *Catalog
	group    singleflight.Group
}

// NewCatalogLoader constructs a loader over the given store.
func NewCatalogLoader(store Store) *CatalogLoader {
	return &CatalogLoader{store: store}
}

// Load returns the cached snapshot, fetching it on first use.
func (l *CatalogLoader) Load(ctx context.Context) (*Catalog, error) {
	l.mu.RLock()
	snap := l.snapshot
	l.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := l.group.Do("catalog", func() (any, error) {
		roles, err := l.store.ListRoles(ctx)
		if err != nil {
			return nil, fmt.Errorf("authz: load catalog: %w", err)
		}
		snap := NewCatalog(roles)
		l.mu.Lock()
		l.snapshot = snap
		l.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Invalidate drops the snapshot so the next Load refetches. Used after
// catalog seeding.
func (l *CatalogLoader) Invalidate() {
	l.mu.Lock()
	l.snapshot = nil
	l.mu.Unlock()
}

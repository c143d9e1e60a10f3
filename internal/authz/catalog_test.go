package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogLookups(t *testing.T) {
	catalog := NewCatalog([]Role{
		{ID: 1, Name: "system_administrator", Level: 100, Scope: ScopeGlobal, IsAdminRole: true},
		{ID: 6, Name: "staff", Level: 10, Scope: ScopeRestaurant},
	})

	r, ok := catalog.ByName("staff")
	require.True(t, ok)
	require.Equal(t, int64(6), r.ID)

	r, ok = catalog.ByID(1)
	require.True(t, ok)
	require.Equal(t, "system_administrator", r.Name)

	_, ok = catalog.ByName("chef_supreme")
	require.False(t, ok)

	require.Len(t, catalog.Roles(), 2)
}

func TestCatalogLoaderCachesSnapshot(t *testing.T) {
	store := newMemStore()
	store.addRole(Role{ID: 1, Name: "system_administrator", Level: 100, Scope: ScopeGlobal, IsAdminRole: true})
	loader := NewCatalogLoader(store)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)

	// Mutating the store does not affect the cached snapshot.
	store.addRole(Role{ID: 6, Name: "staff", Level: 10, Scope: ScopeRestaurant})
	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Len(t, again.Roles(), 1)

	loader.Invalidate()
	fresh, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh.Roles(), 2)
}

func TestCatalogLoaderPropagatesStoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	loader := NewCatalogLoader(store)

	_, err := loader.Load(context.Background())
	require.Error(t, err)
}

package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessibleLocationsDeduplicated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	// Narrow grant first (older), broader admin grant later with a
	// higher level. The restaurant-admin grant becomes primary and every
	// location under the restaurant is reachable through it.
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleLocAdmin.ID, RestaurantID: ptr[int64](10), LocationID: ptr[int64](101), IsActive: true, ValidFrom: now.Add(-72 * time.Hour)})
	store.addAssignment(Assignment{ID: 2, UserID: 7, RoleID: roleRestAdmin.ID, RestaurantID: ptr[int64](10), IsActive: true, ValidFrom: now.Add(-time.Hour)})

	resolver := fixedResolver(store, now)
	locResolver := NewLocationResolver(resolver, store)

	res, err := resolver.ResolveRoles(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, roleRestAdmin.Name, res.Primary.Role.Name)

	locations, err := locResolver.ResolveAccessibleLocations(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, locations, 2)

	seen := make(map[int64]AccessibleLocation)
	for _, loc := range locations {
		_, dup := seen[loc.LocationID]
		require.False(t, dup, "no duplicate location ids")
		seen[loc.LocationID] = loc
	}
	for _, loc := range locations {
		require.Equal(t, AccessFull, loc.AccessLevel)
		require.Equal(t, roleRestAdmin.Name, loc.ViaRole, "higher-precedence grant keeps the entry")
	}
}

func TestAccessibleLocationsHighestLevelWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	// Non-admin restaurant grant (standard) plus an admin grant on one
	// location of the same restaurant (full).
	roleManager := store.addRole(Role{ID: 3, Name: "restaurant_manager", DisplayName: "Restaurant Manager", Level: 60, Scope: ScopeRestaurant})
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleManager.ID, RestaurantID: ptr[int64](10), IsActive: true, ValidFrom: now.Add(-time.Hour)})
	store.addAssignment(Assignment{ID: 2, UserID: 7, RoleID: roleLocAdmin.ID, RestaurantID: ptr[int64](10), LocationID: ptr[int64](102), IsActive: true, ValidFrom: now.Add(-time.Hour)})

	locations, err := NewLocationResolver(fixedResolver(store, now), store).ResolveAccessibleLocations(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, locations, 2)

	byID := make(map[int64]AccessibleLocation)
	for _, loc := range locations {
		byID[loc.LocationID] = loc
	}
	require.Equal(t, AccessStandard, byID[101].AccessLevel)
	require.Equal(t, roleManager.Name, byID[101].ViaRole)
	require.Equal(t, AccessFull, byID[102].AccessLevel, "admin grant outranks standard on the shared location")
	require.Equal(t, roleLocAdmin.Name, byID[102].ViaRole)
}

func TestAccessibleLocationsGlobalReachesEverything(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleSystemAdmin.ID, IsActive: true, ValidFrom: now.Add(-time.Hour)})

	locations, err := NewLocationResolver(fixedResolver(store, now), store).ResolveAccessibleLocations(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	for _, loc := range locations {
		require.Equal(t, AccessFull, loc.AccessLevel)
	}
}

func TestAccessibleLocationsEmptyIsNotAll(t *testing.T) {
	store := seededStore()
	locations, err := NewLocationResolver(NewResolver(store), store).ResolveAccessibleLocations(context.Background(), 42)
	require.NoError(t, err)
	require.Empty(t, locations, "zero grants must never default to all locations")
}

func TestAccessibleLocationsStoreFailure(t *testing.T) {
	store := seededStore()
	store.err = errors.New("timeout")
	_, err := NewLocationResolver(NewResolver(store), store).ResolveAccessibleLocations(context.Background(), 7)
	require.ErrorIs(t, err, ErrResolutionFailed)
}

func TestPrimaryLocationFromLocationScopedPrimary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleLocAdmin.ID, RestaurantID: ptr[int64](10), LocationID: ptr[int64](102), IsActive: true, ValidFrom: now.Add(-time.Hour)})

	primary, err := NewLocationResolver(fixedResolver(store, now), store).ResolvePrimaryLocation(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, primary)
	require.Equal(t, int64(102), primary.LocationID)
}

func TestPrimaryLocationRestaurantWithSingleLocation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleRestAdmin.ID, RestaurantID: ptr[int64](20), IsActive: true, ValidFrom: now.Add(-time.Hour)})

	primary, err := NewLocationResolver(fixedResolver(store, now), store).ResolvePrimaryLocation(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, primary)
	require.Equal(t, int64(201), primary.LocationID)
}

func TestPrimaryLocationFallsBackToFirstMerged(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore()
	// Restaurant 10 has two locations, so the primary role pins nothing
	// and the first merged entry is the default.
	store.addAssignment(Assignment{ID: 1, UserID: 7, RoleID: roleRestAdmin.ID, RestaurantID: ptr[int64](10), IsActive: true, ValidFrom: now.Add(-time.Hour)})

	primary, err := NewLocationResolver(fixedResolver(store, now), store).ResolvePrimaryLocation(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, primary)
	require.Equal(t, int64(101), primary.LocationID)
}

func TestPrimaryLocationNilWhenUnreachable(t *testing.T) {
	store := seededStore()
	primary, err := NewLocationResolver(NewResolver(store), store).ResolvePrimaryLocation(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, primary)
}

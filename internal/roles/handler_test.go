package roles

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type catalogStore struct {
	roles []authz.Role
	err   error
}

func (s *catalogStore) ListRoles(context.Context) ([]authz.Role, error) {
	return s.roles, s.err
}

func (s *catalogStore) EffectiveGrants(context.Context, int64, time.Time) ([]authz.Grant, error) {
	return nil, nil
}

func (s *catalogStore) AllGrants(context.Context, int64) ([]authz.Grant, error) { return nil, nil }

func (s *catalogStore) RestaurantLocations(context.Context, int64) ([]authz.LocationRow, error) {
	return nil, nil
}

func (s *catalogStore) AllLocations(context.Context) ([]authz.LocationRow, error) { return nil, nil }

func (s *catalogStore) Location(context.Context, int64) (authz.LocationRow, error) {
	return authz.LocationRow{}, shared.ErrNotFound
}

func newTestRouter(store *catalogStore) http.Handler {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	handler := NewHandler(logger, NewService(authz.NewCatalogLoader(store)))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestListRoles(t *testing.T) {
	store := &catalogStore{roles: []authz.Role{
		{ID: 1, Name: "system_administrator", DisplayName: "System Administrator", Level: 100, Scope: authz.ScopeGlobal, IsAdminRole: true},
		{ID: 6, Name: "staff", DisplayName: "Staff", Level: 10, Scope: authz.ScopeRestaurant},
	}}
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Roles []struct {
			Name  string `json:"name"`
			Level int    `json:"level"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Roles, 2)
}

func TestGetRoleByName(t *testing.T) {
	store := &catalogStore{roles: []authz.Role{
		{ID: 6, Name: "staff", DisplayName: "Staff", Level: 10, Scope: authz.ScopeRestaurant},
	}}
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles/staff", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Staff", resp.DisplayName)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles/chef_supreme", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

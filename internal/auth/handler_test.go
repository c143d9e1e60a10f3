package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type fakeRepo struct {
	accounts map[string]Account
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (Account, error) {
	a, ok := f.accounts[email]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

type fakeStore struct {
	grants    map[int64][]authz.Grant
	locations []authz.LocationRow
}

func (f *fakeStore) EffectiveGrants(_ context.Context, userID int64, now time.Time) ([]authz.Grant, error) {
	var out []authz.Grant
	for _, g := range f.grants[userID] {
		if g.EffectiveAt(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) AllGrants(_ context.Context, userID int64) ([]authz.Grant, error) {
	return f.grants[userID], nil
}

func (f *fakeStore) ListRoles(context.Context) ([]authz.Role, error) { return nil, nil }

func (f *fakeStore) RestaurantLocations(_ context.Context, restaurantID int64) ([]authz.LocationRow, error) {
	var out []authz.LocationRow
	for _, l := range f.locations {
		if l.RestaurantID == restaurantID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) AllLocations(context.Context) ([]authz.LocationRow, error) {
	return f.locations, nil
}

func (f *fakeStore) Location(_ context.Context, id int64) (authz.LocationRow, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return authz.LocationRow{}, shared.ErrNotFound
}

func ptr[T any](v T) *T { return &v }

func newTestHandler(t *testing.T, repo Repository, store authz.Store) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "tablekeep_session", "test-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	resolver := authz.NewResolver(store)
	locations := authz.NewLocationResolver(resolver, store)
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewHandler(logger, NewService(repo), resolver, locations, sessions, csrf, nil), sessions
}

func seededFixtures(t *testing.T) (*fakeRepo, *fakeStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("opensesame"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeRepo{accounts: map[string]Account{
		"manager@harbor.test": {
			ID: 7, Email: "manager@harbor.test", Name: "Morgan",
			RestaurantID: ptr(int64(10)), PasswordHash: string(hash), IsActive: true,
		},
	}}
	store := &fakeStore{
		grants: map[int64][]authz.Grant{
			7: {{
				Assignment: authz.Assignment{ID: 1, UserID: 7, RoleID: 2, RestaurantID: ptr(int64(10)), IsActive: true, ValidFrom: time.Now().Add(-time.Hour)},
				Role:       authz.Role{ID: 2, Name: "restaurant_administrator", DisplayName: "Restaurant Administrator", Level: 80, Scope: authz.ScopeRestaurant, IsAdminRole: true},
			}},
		},
		locations: []authz.LocationRow{
			{ID: 101, RestaurantID: 10, Name: "Waterfront"},
			{ID: 102, RestaurantID: 10, Name: "Old Town"},
		},
	}
	return repo, store
}

// commitWriter flushes the session before the first body byte, the same
// ordering the HTTP middleware guarantees in production.
type commitWriter struct {
	http.ResponseWriter
	sess      *shared.Session
	manager   *shared.SessionManager
	req       *http.Request
	committed bool
}

func (w *commitWriter) WriteHeader(code int) {
	if !w.committed {
		w.committed = true
		_ = w.manager.Commit(w.req.Context(), w.ResponseWriter, w.req, w.sess)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func sessionRequest(t *testing.T, sessions *shared.SessionManager, method, target, body string) (*http.Request, *shared.Session) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func loginRequest(t *testing.T, sessions *shared.SessionManager, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, sess := sessionRequest(t, sessions, http.MethodPost, "/login", body)
	rec := httptest.NewRecorder()
	h.login(&commitWriter{ResponseWriter: rec, sess: sess, manager: sessions, req: req}, req)
	return rec
}

func TestLoginResolvesRolesAndLocations(t *testing.T) {
	repo, store := seededFixtures(t)
	h, sessions := newTestHandler(t, repo, store)

	rec := loginRequest(t, sessions, h, `{"email":"manager@harbor.test","password":"opensesame"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID      int64            `json:"user_id"`
		Roles       []authz.RoleView `json:"roles"`
		PrimaryRole *authz.RoleView  `json:"primary_role"`
		IsAdmin     bool             `json:"is_admin"`
		Accessible  []struct {
			LocationID int64 `json:"location_id"`
		} `json:"accessible_locations"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(7), resp.UserID)
	require.True(t, resp.IsAdmin)
	require.NotNil(t, resp.PrimaryRole)
	require.Equal(t, "restaurant_administrator", resp.PrimaryRole.RoleName)
	require.Len(t, resp.Accessible, 2)
	require.NotEmpty(t, resp.CSRFToken)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "tablekeep_session", cookies[0].Name)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo, store := seededFixtures(t)
	h, sessions := newTestHandler(t, repo, store)

	rec := loginRequest(t, sessions, h, `{"email":"manager@harbor.test","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown emails fail identically.
	rec = loginRequest(t, sessions, h, `{"email":"ghost@harbor.test","password":"opensesame"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo, store := seededFixtures(t)
	acct := repo.accounts["manager@harbor.test"]
	acct.IsActive = false
	repo.accounts["manager@harbor.test"] = acct
	h, sessions := newTestHandler(t, repo, store)

	rec := loginRequest(t, sessions, h, `{"email":"manager@harbor.test","password":"opensesame"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo, store := seededFixtures(t)
	h, sessions := newTestHandler(t, repo, store)

	req, sess := sessionRequest(t, sessions, http.MethodPost, "/logout", "")
	sess.SetUser("7")
	rec := httptest.NewRecorder()
	h.logout(&commitWriter{ResponseWriter: rec, sess: sess, manager: sessions, req: req}, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestMeRequiresActor(t *testing.T) {
	repo, store := seededFixtures(t)
	h, _ := newTestHandler(t, repo, store)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	h.me(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReflectsRevocation(t *testing.T) {
	repo, store := seededFixtures(t)
	h, _ := newTestHandler(t, repo, store)

	actor := authz.AuthContext{UserID: 7}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	ctx := authz.ContextWithActor(req.Context(), actor)

	rec := httptest.NewRecorder()
	h.me(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	var before struct {
		Roles []authz.RoleView `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Len(t, before.Roles, 1)

	// Revoke and call again: the grant disappears without any cache lag.
	store.grants[7][0].IsActive = false
	rec = httptest.NewRecorder()
	h.me(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	var after struct {
		Roles []authz.RoleView `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.Empty(t, after.Roles)
}

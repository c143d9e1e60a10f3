package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type memRepo struct {
	users  map[int64]User
	nextID int64
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}, nextID: 1}
}

func (m *memRepo) add(u User) User {
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	} else if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	u.IsActive = true
	m.users[u.ID] = u
	return u
}

func (m *memRepo) List(_ context.Context, filters ListFilters) ([]User, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []User
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		if filters.RestaurantID != nil {
			if u.RestaurantID == nil || *u.RestaurantID != *filters.RestaurantID {
				continue
			}
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(_ context.Context, id int64) (User, error) {
	if m.err != nil {
		return User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) Create(_ context.Context, u User) (User, error) {
	if m.err != nil {
		return User{}, m.err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	return m.add(u), nil
}

func (m *memRepo) Update(_ context.Context, id int64, name, email string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name = name
	u.Email = email
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *memRepo) Deactivate(_ context.Context, id int64) (bool, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return false, nil
	}
	u.IsActive = false
	m.users[id] = u
	return true, nil
}

type memAudit struct {
	entries []shared.AuditLog
}

func (m *memAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func ptr[T any](v T) *T { return &v }

func superAdminActor(userID int64) authz.AuthContext {
	return authz.AuthContext{
		UserID: userID,
		Grants: []authz.Grant{{
			Assignment: authz.Assignment{ID: 1, UserID: userID, RoleID: 1, IsActive: true},
			Role:       authz.Role{ID: 1, Name: "system_administrator", Level: 100, Scope: authz.ScopeGlobal, IsAdminRole: true},
		}},
		IsAdmin:      true,
		IsSuperAdmin: true,
	}
}

func restaurantAdminActor(userID, restaurantID int64) authz.AuthContext {
	return authz.AuthContext{
		UserID:       userID,
		RestaurantID: &restaurantID,
		Grants: []authz.Grant{{
			Assignment: authz.Assignment{ID: 2, UserID: userID, RoleID: 2, RestaurantID: &restaurantID, IsActive: true},
			Role:       authz.Role{ID: 2, Name: "restaurant_administrator", Level: 80, Scope: authz.ScopeRestaurant, IsAdminRole: true},
		}},
		IsAdmin: true,
	}
}

func plainActor(userID int64, restaurantID *int64) authz.AuthContext {
	return authz.AuthContext{UserID: userID, RestaurantID: restaurantID}
}

func newTestService(repo *memRepo) (*Service, *memAudit) {
	audit := &memAudit{}
	return NewService(repo, authz.NewGate(nil), audit), audit
}

func TestServiceRefReturnsTenant(t *testing.T) {
	repo := newMemRepo()
	u := repo.add(User{Email: "cook@harbor.test", Name: "Cook", RestaurantID: ptr(int64(10))})
	svc, _ := newTestService(repo)

	ref, err := svc.Ref(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, ref.ID)
	require.NotNil(t, ref.RestaurantID)
	require.Equal(t, int64(10), *ref.RestaurantID)

	_, err = svc.Ref(context.Background(), 0)
	require.ErrorIs(t, err, authz.ErrInvalidIdentifier)

	_, err = svc.Ref(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceGetAllowsSelfAndAdmin(t *testing.T) {
	repo := newMemRepo()
	target := repo.add(User{Email: "cook@harbor.test", Name: "Cook", RestaurantID: ptr(int64(10))})
	svc, _ := newTestService(repo)

	_, err := svc.Get(context.Background(), plainActor(target.ID, target.RestaurantID), target.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), restaurantAdminActor(50, 10), target.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), restaurantAdminActor(50, 20), target.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestServiceListScopesToActorRestaurant(t *testing.T) {
	repo := newMemRepo()
	repo.add(User{Email: "a@harbor.test", Name: "A", RestaurantID: ptr(int64(10))})
	repo.add(User{Email: "b@cedar.test", Name: "B", RestaurantID: ptr(int64(20))})
	svc, _ := newTestService(repo)

	asked := ptr(int64(20))
	list, total, err := svc.List(context.Background(), restaurantAdminActor(50, 10), ListFilters{RestaurantID: asked})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "a@harbor.test", list[0].Email)

	list, total, err = svc.List(context.Background(), superAdminActor(1), ListFilters{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, list, 2)

	_, _, err = svc.List(context.Background(), plainActor(77, ptr(int64(10))), ListFilters{})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestServiceCreateHashesAndAudits(t *testing.T) {
	repo := newMemRepo()
	svc, audit := newTestService(repo)

	created, err := svc.Create(context.Background(), restaurantAdminActor(50, 10), CreateInput{
		Email:        "  New.Cook@Harbor.Test ",
		Name:         " New Cook ",
		RestaurantID: ptr(int64(10)),
		Password:     "opensesame",
	})
	require.NoError(t, err)
	require.Equal(t, "new.cook@harbor.test", created.Email)
	require.Equal(t, "New Cook", created.Name)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("opensesame")))

	require.Len(t, audit.entries, 1)
	require.Equal(t, "user.create", audit.entries[0].Action)
	require.Equal(t, int64(50), audit.entries[0].ActorID)

	_, err = svc.Create(context.Background(), restaurantAdminActor(50, 10), CreateInput{
		Email: "new.cook@harbor.test", Name: "Dup", RestaurantID: ptr(int64(10)), Password: "opensesame",
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestServiceCreateScopeChecks(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), restaurantAdminActor(50, 10), CreateInput{
		Email: "x@global.test", Name: "X", Password: "opensesame",
	})
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.Create(context.Background(), restaurantAdminActor(50, 10), CreateInput{
		Email: "x@cedar.test", Name: "X", RestaurantID: ptr(int64(20)), Password: "opensesame",
	})
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.Create(context.Background(), superAdminActor(1), CreateInput{
		Email: "x@global.test", Name: "X", Password: "opensesame",
	})
	require.NoError(t, err)
}

func TestServiceUpdateKeepsUnchangedFields(t *testing.T) {
	repo := newMemRepo()
	target := repo.add(User{Email: "cook@harbor.test", Name: "Cook", RestaurantID: ptr(int64(10))})
	svc, _ := newTestService(repo)

	updated, err := svc.Update(context.Background(), plainActor(target.ID, target.RestaurantID), target.ID, UpdateInput{Name: "Head Cook"})
	require.NoError(t, err)
	require.Equal(t, "Head Cook", updated.Name)
	require.Equal(t, "cook@harbor.test", updated.Email)
}

func TestServiceDeactivate(t *testing.T) {
	repo := newMemRepo()
	target := repo.add(User{Email: "cook@harbor.test", Name: "Cook", RestaurantID: ptr(int64(10))})
	svc, audit := newTestService(repo)

	// Self-deactivation is refused even though self-update is allowed,
	// and super-admin rights do not override that.
	err := svc.Deactivate(context.Background(), plainActor(target.ID, target.RestaurantID), target.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)
	err = svc.Deactivate(context.Background(), superAdminActor(target.ID), target.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)

	err = svc.Deactivate(context.Background(), superAdminActor(99), target.ID)
	require.NoError(t, err)
	require.False(t, repo.users[target.ID].IsActive)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "user.deactivate", audit.entries[0].Action)

	err = svc.Deactivate(context.Background(), superAdminActor(99), target.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServicePropagatesRepoFailure(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("connection reset")
	svc, _ := newTestService(repo)

	_, err := svc.Get(context.Background(), superAdminActor(1), 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrNotFound)
}

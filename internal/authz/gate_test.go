package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func restaurantAdminActor(userID, restaurantID int64) AuthContext {
	rid := restaurantID
	return AuthContext{
		UserID:       userID,
		RestaurantID: &rid,
		IsAdmin:      true,
		Grants: []Grant{{
			Assignment: Assignment{ID: 1, UserID: userID, RoleID: roleRestAdmin.ID, RestaurantID: &rid, IsActive: true},
			Role:       roleRestAdmin,
		}},
	}
}

func superAdminActor(userID int64) AuthContext {
	return AuthContext{
		UserID:       userID,
		IsAdmin:      true,
		IsSuperAdmin: true,
		Grants: []Grant{{
			Assignment: Assignment{ID: 1, UserID: userID, RoleID: roleSystemAdmin.ID, IsActive: true},
			Role:       roleSystemAdmin,
		}},
	}
}

func plainActor(userID int64) AuthContext {
	return AuthContext{UserID: userID}
}

func TestCanAccessUserSuperAdmin(t *testing.T) {
	gate := NewGate(nil)
	target := UserRef{ID: 99, RestaurantID: ptr[int64](20)}

	for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
		require.NoError(t, gate.CanAccessUser(superAdminActor(1), target, op))
	}
}

func TestCanAccessUserSelfDeleteAlwaysForbidden(t *testing.T) {
	gate := NewGate(nil)

	err := gate.CanAccessUser(superAdminActor(1), UserRef{ID: 1}, OpDelete)
	require.ErrorIs(t, err, ErrForbidden)

	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, int64(1), fe.ActorID)
	require.Equal(t, OpDelete, fe.Operation)

	err = gate.CanAccessUser(plainActor(5), UserRef{ID: 5}, OpDelete)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCanAccessUserSelfReadAndUpdate(t *testing.T) {
	gate := NewGate(nil)
	actor := plainActor(5)

	require.NoError(t, gate.CanAccessUser(actor, UserRef{ID: 5}, OpRead))
	require.NoError(t, gate.CanAccessUser(actor, UserRef{ID: 5}, OpUpdate))
}

func TestCanAccessUserRestaurantAdminScoping(t *testing.T) {
	gate := NewGate(nil)
	actor := restaurantAdminActor(1, 10)

	sameTenant := UserRef{ID: 99, RestaurantID: ptr[int64](10)}
	for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
		require.NoError(t, gate.CanAccessUser(actor, sameTenant, op))
	}

	otherTenant := UserRef{ID: 99, RestaurantID: ptr[int64](20)}
	for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
		err := gate.CanAccessUser(actor, otherTenant, op)
		require.ErrorIs(t, err, ErrForbidden, "cross-restaurant access must fail for %s", op)
	}
}

func TestCanAccessUserStrangerForbidden(t *testing.T) {
	gate := NewGate(nil)
	err := gate.CanAccessUser(plainActor(5), UserRef{ID: 6}, OpRead)
	require.ErrorIs(t, err, ErrForbidden)

	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "user", fe.TargetKind)
	require.Equal(t, int64(6), fe.TargetID)
	require.NotEmpty(t, fe.Reason)
}

func TestCanAccessRestaurant(t *testing.T) {
	gate := NewGate(nil)

	require.NoError(t, gate.CanAccessRestaurant(superAdminActor(1), 20))
	require.NoError(t, gate.CanAccessRestaurant(restaurantAdminActor(1, 10), 10))
	require.ErrorIs(t, gate.CanAccessRestaurant(restaurantAdminActor(1, 10), 20), ErrForbidden)
	require.ErrorIs(t, gate.CanAccessRestaurant(plainActor(5), 10), ErrForbidden)
	require.ErrorIs(t, gate.CanAccessRestaurant(plainActor(5), 0), ErrInvalidIdentifier)
}

type recordingRecorder struct {
	allowed int
	denied  int
}

func (r *recordingRecorder) Decision(op Operation, allowed bool) {
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}

func TestGateRecordsDecisions(t *testing.T) {
	rec := &recordingRecorder{}
	gate := NewGate(rec)

	require.NoError(t, gate.CanAccessUser(superAdminActor(1), UserRef{ID: 2}, OpRead))
	require.Error(t, gate.CanAccessUser(plainActor(3), UserRef{ID: 4}, OpRead))
	require.Equal(t, 1, rec.allowed)
	require.Equal(t, 1, rec.denied)
}

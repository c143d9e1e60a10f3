package authz

// DecisionRecorder receives gate outcomes, typically for metrics.
type DecisionRecorder interface {
	Decision(op Operation, allowed bool)
}

// Gate answers yes/no authorization questions for the CRUD layer. Checks
// are pure functions of the resolved actor state and arguments; the only
// collaborator is an optional decision recorder.
type Gate struct {
	recorder DecisionRecorder
}

// NewGate constructs a Gate. recorder may be nil.
func NewGate(recorder DecisionRecorder) *Gate {
	return &Gate{recorder: recorder}
}

// CanAccessUser checks whether the actor may perform op on the target
// user. Self-deletion is categorically blocked, even for super-admins.
func (g *Gate) CanAccessUser(actor AuthContext, target UserRef, op Operation) error {
	return g.record(op, g.canAccessUser(actor, target, op))
}

func (g *Gate) canAccessUser(actor AuthContext, target UserRef, op Operation) error {
	if op == OpDelete && actor.UserID == target.ID {
		return forbidden(actor, "user", target.ID, op, "self-deletion is blocked")
	}
	if actor.IsSuperAdmin {
		return nil
	}
	if target.RestaurantID != nil && actor.holdsRestaurantAdmin(*target.RestaurantID) {
		return nil
	}
	if actor.UserID == target.ID {
		// Self-access covers read and profile update only.
		return nil
	}
	return forbidden(actor, "user", target.ID, op, "no grant covers the target's scope")
}

// CanAccessRestaurant checks whether the actor may act within the
// restaurant: super-admins always, otherwise any grant scoped to it.
func (g *Gate) CanAccessRestaurant(actor AuthContext, restaurantID int64) error {
	return g.record(OpRead, g.canAccessRestaurant(actor, restaurantID))
}

func (g *Gate) canAccessRestaurant(actor AuthContext, restaurantID int64) error {
	if restaurantID <= 0 {
		return ErrInvalidIdentifier
	}
	if actor.IsSuperAdmin {
		return nil
	}
	for _, grant := range actor.Grants {
		if grant.RestaurantID != nil && *grant.RestaurantID == restaurantID {
			return nil
		}
	}
	return forbidden(actor, "restaurant", restaurantID, OpRead, "actor is not scoped to this restaurant")
}

func (ac AuthContext) holdsRestaurantAdmin(restaurantID int64) bool {
	for _, g := range ac.Grants {
		if !g.Role.IsAdminRole {
			continue
		}
		if g.RestaurantID != nil && *g.RestaurantID == restaurantID {
			return true
		}
	}
	return false
}

func (g *Gate) record(op Operation, err error) error {
	if g.recorder != nil {
		g.recorder.Decision(op, err == nil)
	}
	return err
}

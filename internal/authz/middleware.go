package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tablekeep/tablekeep/internal/shared"
)

type authContextKey struct{}

// ContextWithActor stores the actor context for downstream handlers.
func ContextWithActor(ctx context.Context, actor AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, actor)
}

// ActorFromContext extracts the actor context placed by the middleware.
func ActorFromContext(ctx context.Context) (AuthContext, bool) {
	actor, ok := ctx.Value(authContextKey{}).(AuthContext)
	return actor, ok
}

// Middleware wires authorization resolution into the HTTP stack.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// WithActor resolves the session user's authorization once per request
// and stores it in the context. Unauthenticated requests pass through
// without an actor.
func (m Middleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := m.Resolver.AuthContext(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("resolve actor", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireAuthenticated rejects requests without a resolved actor.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects actors without any admin-capable role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(next, func(actor AuthContext) bool { return actor.IsAdmin })
}

// RequireSuperAdmin rejects actors without a global admin role.
func (m Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return m.require(next, func(actor AuthContext) bool { return actor.IsSuperAdmin })
}

func (m Middleware) require(next http.Handler, allowed func(AuthContext) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !allowed(actor) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tablekeep/tablekeep/internal/assignments"
	"github.com/tablekeep/tablekeep/internal/auth"
	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/observability"
	"github.com/tablekeep/tablekeep/internal/restaurants"
	"github.com/tablekeep/tablekeep/internal/roles"
	"github.com/tablekeep/tablekeep/internal/shared"
	"github.com/tablekeep/tablekeep/internal/users"
	"github.com/tablekeep/tablekeep/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthzMiddleware    authz.Middleware
	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	RestaurantsHandler *restaurants.Handler
	AssignmentsHandler *assignments.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with tablekeep defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", params.Metrics.Handler())

	// Session endpoints. Login is CSRF-exempt; logout and /me run with
	// a resolved actor when one exists.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthzMiddleware.WithActor)
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(params.AuthzMiddleware.WithActor)
		r.Use(params.AuthzMiddleware.RequireAuthenticated)

		params.RolesHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		params.RestaurantsHandler.MountRoutes(r)
		params.AssignmentsHandler.MountRoutes(r)

		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.AuthzMiddleware.RequireSuperAdmin)
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}

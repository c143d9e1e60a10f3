package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/platform/httpx"
	"github.com/tablekeep/tablekeep/internal/shared"
)

type auditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Handler wires the session endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     *authz.Resolver
	locations *authz.LocationResolver
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	audit     auditRecorder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles *authz.Resolver, locations *authz.LocationResolver, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit auditRecorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		locations: locations,
		sessions:  sessions,
		csrf:      csrf,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers session routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	UserID              int64                      `json:"user_id"`
	Email               string                     `json:"email"`
	Name                string                     `json:"name"`
	RestaurantID        *int64                     `json:"restaurant_id,omitempty"`
	Roles               []authz.RoleView           `json:"roles"`
	PrimaryRole         *authz.RoleView            `json:"primary_role,omitempty"`
	IsAdmin             bool                       `json:"is_admin"`
	IsSuperAdmin        bool                       `json:"is_super_admin"`
	AccessibleLocations []authz.AccessibleLocation `json:"accessible_locations"`
	DefaultLocation     *authz.AccessibleLocation  `json:"default_location,omitempty"`
	CSRFToken           string                     `json:"csrf_token,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	account, err := h.service.Authenticate(r.Context(), Credentials{Email: payload.Email, Password: payload.Password})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	resolved, err := h.roles.ResolveRoles(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("resolve roles at login", "error", err, "user_id", account.ID)
		httpx.RespondError(w, err)
		return
	}
	accessible, err := h.locations.AccessibleLocationsFor(r.Context(), resolved)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	primary, err := h.locations.PrimaryLocationFor(r.Context(), resolved)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(account.ID, 10))
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if h.audit != nil {
		entry := shared.AuditLog{
			ActorID:  account.ID,
			Action:   "auth.login",
			Entity:   "session",
			EntityID: sess.ID,
			Meta:     map[string]any{"email": account.Email},
		}
		if err := h.audit.Record(r.Context(), entry); err != nil {
			h.logger.Warn("record login audit", "error", err, "user_id", account.ID)
		}
	}

	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:              account.ID,
		Email:               account.Email,
		Name:                account.Name,
		RestaurantID:        account.RestaurantID,
		Roles:               resolved.Views(),
		PrimaryRole:         resolved.PrimaryView(),
		IsAdmin:             resolved.IsAdmin,
		IsSuperAdmin:        resolved.IsSuperAdmin,
		AccessibleLocations: accessible,
		DefaultLocation:     primary,
		CSRFToken:           token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// me reports the resolved authorization state for the current session.
// State is recomputed on every call, so a revocation shows up here
// immediately after it lands.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	resolved, err := h.roles.ResolveRoles(r.Context(), actor.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accessible, err := h.locations.AccessibleLocationsFor(r.Context(), resolved)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	primary, err := h.locations.PrimaryLocationFor(r.Context(), resolved)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:              actor.UserID,
		Roles:               resolved.Views(),
		PrimaryRole:         resolved.PrimaryView(),
		IsAdmin:             resolved.IsAdmin,
		IsSuperAdmin:        resolved.IsSuperAdmin,
		AccessibleLocations: accessible,
		DefaultLocation:     primary,
	})
}

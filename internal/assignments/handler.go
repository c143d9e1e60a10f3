package assignments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/platform/httpx"
	"github.com/tablekeep/tablekeep/internal/users"
)

// Handler wires HTTP endpoints for assignment management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	users     *users.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, users *users.Service) *Handler {
	return &Handler{logger: logger, service: service, users: users, validator: validator.New()}
}

// MountRoutes registers assignment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/{id}/assignments", h.list)
	r.Post("/users/{id}/assignments", h.grant)
	r.Delete("/assignments/{id}", h.revoke)
}

type grantPayload struct {
	RoleName            string         `json:"role_name" validate:"required"`
	RestaurantID        *int64         `json:"restaurant_id" validate:"omitempty,gt=0"`
	LocationID          *int64         `json:"location_id" validate:"omitempty,gt=0"`
	ValidFrom           *time.Time     `json:"valid_from"`
	ValidUntil          *time.Time     `json:"valid_until"`
	PermissionsOverride map[string]any `json:"permissions_override"`
}

type assignmentResponse struct {
	ID                  int64          `json:"id"`
	UserID              int64          `json:"user_id"`
	RoleID              int64          `json:"role_id"`
	RoleName            string         `json:"role_name,omitempty"`
	RestaurantID        *int64         `json:"restaurant_id,omitempty"`
	LocationID          *int64         `json:"location_id,omitempty"`
	AssignedBy          *int64         `json:"assigned_by,omitempty"`
	PermissionsOverride map[string]any `json:"permissions_override,omitempty"`
	IsActive            bool           `json:"is_active"`
	ValidFrom           time.Time      `json:"valid_from"`
	ValidUntil          *time.Time     `json:"valid_until,omitempty"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, authz.ErrInvalidIdentifier)
		return
	}

	var payload grantPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	created, err := h.service.Grant(r.Context(), actor, GrantRequest{
		UserID:              userID,
		RoleName:            payload.RoleName,
		RestaurantID:        payload.RestaurantID,
		LocationID:          payload.LocationID,
		ValidFrom:           payload.ValidFrom,
		ValidUntil:          payload.ValidUntil,
		PermissionsOverride: payload.PermissionsOverride,
	})
	if err != nil {
		h.respondServiceError(w, "grant assignment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssignmentResponse(created, ""))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, authz.ErrInvalidIdentifier)
		return
	}
	if err := h.service.Revoke(r.Context(), actor, id); err != nil {
		h.respondServiceError(w, "revoke assignment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, authz.ErrInvalidIdentifier)
		return
	}

	target, err := h.users.Ref(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	grants, err := h.service.ListForUser(r.Context(), actor, target, includeInactive)
	if err != nil {
		h.respondServiceError(w, "list assignments", err)
		return
	}

	out := make([]assignmentResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toAssignmentResponse(g.Assignment, g.Role.Name))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": out})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrScopeMismatch), errors.Is(err, ErrInvalidWindow):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrEscalation):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func toAssignmentResponse(a authz.Assignment, roleName string) assignmentResponse {
	return assignmentResponse{
		ID:                  a.ID,
		UserID:              a.UserID,
		RoleID:              a.RoleID,
		RoleName:            roleName,
		RestaurantID:        a.RestaurantID,
		LocationID:          a.LocationID,
		AssignedBy:          a.AssignedBy,
		PermissionsOverride: a.PermissionsOverride,
		IsActive:            a.IsActive,
		ValidFrom:           a.ValidFrom,
		ValidUntil:          a.ValidUntil,
	}
}

package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/platform/httpx"
	"github.com/tablekeep/tablekeep/internal/shared"
)

// Handler serves the role catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.list)
	r.Get("/roles/{name}", h.get)
}

type roleResponse struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	DisplayName        string      `json:"display_name"`
	Level              int         `json:"level"`
	Scope              authz.Scope `json:"scope"`
	IsAdminRole        bool        `json:"is_admin_role"`
	CanManageUsers     bool        `json:"can_manage_users"`
	CanManageLocations bool        `json:"can_manage_locations"`
}

func toResponse(r authz.Role) roleResponse {
	return roleResponse{
		ID:                 r.ID,
		Name:               r.Name,
		DisplayName:        r.DisplayName,
		Level:              r.Level,
		Scope:              r.Scope,
		IsAdminRole:        r.IsAdminRole,
		CanManageUsers:     r.CanManageUsers,
		CanManageLocations: r.CanManageLocations,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(catalog))
	for _, role := range catalog {
		out = append(out, toResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	role, ok, err := h.service.GetRole(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.logger.Error("get role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

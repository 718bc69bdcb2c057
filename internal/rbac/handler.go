package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/httpx"
	"github.com/atlas-mdm/atlas-mdm/internal/registry"
)

// Handler exposes the RBAC administration API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	navigations *registry.Registry[authz.Navigation]
	actions     *registry.Registry[authz.Action]
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, navigations *registry.Registry[authz.Navigation], actions *registry.Registry[authz.Action]) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		navigations: navigations,
		actions:     actions,
		validator:   validator.New(),
	}
}

// Guard wraps a route group with the authorization middleware for one
// navigation/action pair.
type Guard func(nav authz.Navigation, action authz.Action) func(http.Handler) http.Handler

// Mount registers RBAC admin routes on the provided router.
func (h *Handler) Mount(r chi.Router, guard Guard) {
	r.With(guard(authz.NavRoles, authz.ActionView)).Get("/permissions", h.listCatalog)
	r.With(guard(authz.NavRoles, authz.ActionView)).Get("/roles", h.listRoles)
	r.With(guard(authz.NavRoles, authz.ActionAdd)).Post("/roles", h.createRole)
	r.With(guard(authz.NavRoles, authz.ActionDelete)).Delete("/roles/{roleID}", h.deleteRole)
	r.With(guard(authz.NavRoles, authz.ActionEdit)).Put("/roles/{roleID}/permissions", h.setRolePermissions)
	r.With(guard(authz.NavUsers, authz.ActionEdit)).Put("/users/{userID}/role", h.assignRole)
}

type catalogResponse struct {
	Navigations []catalogEntry `json:"navigations"`
	Actions     []catalogEntry `json:"actions"`
}

type catalogEntry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	var resp catalogResponse
	for _, nav := range authz.Navigations() {
		id, err := h.navigations.Resolve(nav)
		if err != nil {
			h.logger.Error("catalog resolve navigation", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		resp.Navigations = append(resp.Navigations, catalogEntry{ID: id, Name: string(nav)})
	}
	for _, action := range authz.Actions() {
		id, err := h.actions.Resolve(action)
		if err != nil {
			h.logger.Error("catalog resolve action", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		resp.Actions = append(resp.Actions, catalogEntry{ID: id, Name: string(action)})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, ErrDuplicateRole) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "role already exists")
			return
		}
		h.logger.Error("create role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
			return
		}
		h.logger.Error("delete role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPermissionsRequest struct {
	Permissions []permissionPair `json:"permissions" validate:"dive"`
}

type permissionPair struct {
	Navigation string `json:"navigation" validate:"required"`
	Action     string `json:"action" validate:"required"`
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	pairs := make([]authz.Pair, 0, len(req.Permissions))
	for _, entry := range req.Permissions {
		nav, ok := authz.ParseNavigation(entry.Navigation)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown navigation: "+entry.Navigation)
			return
		}
		action, ok := authz.ParseAction(entry.Action)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown action: "+entry.Action)
			return
		}
		navID, err := h.navigations.Resolve(nav)
		if err != nil {
			h.logger.Error("resolve navigation", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		actionID, err := h.actions.Resolve(action)
		if err != nil {
			h.logger.Error("resolve action", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		pairs = append(pairs, authz.Pair{NavigationID: navID, ActionID: actionID})
	}

	if err := h.service.SetRolePermissions(r.Context(), roleID, pairs); err != nil {
		h.logger.Error("set role permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

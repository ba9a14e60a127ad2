package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/platform/httpx"
	"github.com/meridian-saas/meridian/internal/shared"
)

// Handler serves two route families: /users, scoped to the resolved
// company, and /internal-users, the platform-level surface for staff
// accounts and their company allow-lists.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
	val     *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, val: validator.New()}
}

// MountCompanyRoutes registers company-scoped user administration.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("user:read"))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("user:manage"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/activate", h.activate)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/roles", h.assignRole)
		r.Delete("/{id}/roles/{roleId}", h.removeRole)
	})
}

// MountPlatformRoutes registers internal-user administration.
func (h *Handler) MountPlatformRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("platform:users"))
		r.Get("/", h.listInternal)
		r.Post("/", h.createInternal)
		r.Post("/{id}/roles", h.assignPlatformRole)
		r.Delete("/{id}/roles/{roleId}", h.removeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("platform:restrictions"))
		r.Get("/{id}/restrictions", h.listRestrictions)
		r.Post("/{id}/restrictions", h.addRestriction)
		r.Post("/{id}/restrictions/{companyId}/revoke", h.revokeRestriction)
		r.Delete("/{id}/restrictions/{companyId}", h.removeRestriction)
	})
}

type userForm struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userUpdateForm struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

type roleForm struct {
	RoleID int64 `json:"roleId" validate:"required,min=1"`
}

type restrictionForm struct {
	CompanyID int64 `json:"companyId" validate:"required,min=1"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return
	}
	q := shared.ParseListQuery(r)
	items, total, err := h.service.ListCompanyUsers(r.Context(), companyID, q)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetCompanyUser(r.Context(), id, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return
	}
	var form userForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.CreateCompanyUser(r.Context(), companyID, form.Name, form.Email, form.Password)
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var form userUpdateForm
	if !h.decode(w, r, &form) {
		return
	}
	updated, err := h.service.UpdateCompanyUser(r.Context(), id, companyID, form.Name, form.Email)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var err error
	if active {
		err = h.service.ActivateCompanyUser(r.Context(), id, companyID)
	} else {
		err = h.service.DeactivateCompanyUser(r.Context(), id, companyID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.AssignRole(r.Context(), id, companyID, form.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.pathID(w, r, "roleId")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), id, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	// membership check keeps one company from reading another's users
	if _, err := h.service.GetCompanyUser(r.Context(), id, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	roles, err := h.service.Roles(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []RoleRef{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": roles})
}

func (h *Handler) listInternal(w http.ResponseWriter, r *http.Request) {
	q := shared.ParseListQuery(r)
	items, total, err := h.service.ListInternalUsers(r.Context(), q)
	if err != nil {
		h.logger.Error("list internal users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) createInternal(w http.ResponseWriter, r *http.Request) {
	var form userForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.CreateInternalUser(r.Context(), form.Name, form.Email, form.Password)
	if err != nil {
		h.logger.Error("create internal user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) assignPlatformRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.AssignPlatformRole(r.Context(), id, form.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listRestrictions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.service.Restrictions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []Restriction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *Handler) addRestriction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var form restrictionForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.RestrictTo(r.Context(), id, form.CompanyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeRestriction(w http.ResponseWriter, r *http.Request) {
	h.restrictionAction(w, r, h.service.RevokeRestriction)
}

func (h *Handler) removeRestriction(w http.ResponseWriter, r *http.Request) {
	h.restrictionAction(w, r, h.service.RemoveRestriction)
}

func (h *Handler) restrictionAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, companyID int64) error) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	companyID, ok := h.pathID(w, r, "companyId")
	if !ok {
		return
	}
	if err := fn(r.Context(), id, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scopedID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return 0, 0, false
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	return companyID, id, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id < 1 {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Invalid id in path")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, form any) bool {
	if err := httpx.DecodeJSON(r, form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body")
		return false
	}
	if err := h.val.Struct(form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Request body failed validation")
		return false
	}
	return true
}

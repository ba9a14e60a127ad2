package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/platform/httpx"
)

// Handler serves role administration. Company roles ride the resolved
// company scope; platform roles are a platform-only surface.
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

// MountCompanyRoutes registers company-role routes.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.With(h.authz.RequirePermission("user:read")).Get("/", h.listCompany)
	r.With(h.authz.RequirePermission("user:read")).Get("/{id}", h.showCompany)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("user:manage"))
		r.Post("/", h.createCompany)
		r.Put("/{id}", h.updateCompany)
		r.Delete("/{id}", h.deleteCompany)
	})
}

// MountPlatformRoutes registers platform-role routes and the catalog.
func (h *Handler) MountPlatformRoutes(r chi.Router) {
	r.Use(h.authz.RequirePermission("platform:roles"))
	r.Get("/", h.listPlatform)
	r.Post("/", h.createPlatform)
	r.Get("/catalog", h.catalog)
	r.Get("/{id}", h.showPlatform)
	r.Put("/{id}", h.updatePlatform)
	r.Delete("/{id}", h.deletePlatform)
}

type roleForm struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions"`
}

type platformRoleForm struct {
	Name               string   `json:"name" validate:"required,max=200"`
	Description        string   `json:"description" validate:"max=500"`
	Permissions        []string `json:"permissions"`
	CompanyPermissions []string `json:"companyPermissions"`
}

func (h *Handler) listCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListCompanyRoles(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list company roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) showCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetCompanyRole(r.Context(), id, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.CreateCompanyRole(r.Context(), companyID, form.Name, form.Description, form.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	updated, err := h.service.UpdateCompanyRole(r.Context(), id, companyID, form.Name, form.Description, form.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCompanyRole(r.Context(), id, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPlatform(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPlatformRoles(r.Context())
	if err != nil {
		h.logger.Error("list platform roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) showPlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetPlatformRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createPlatform(w http.ResponseWriter, r *http.Request) {
	var form platformRoleForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.CreatePlatformRole(r.Context(), form.Name, form.Description, form.Permissions, form.CompanyPermissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updatePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var form platformRoleForm
	if !h.decode(w, r, &form) {
		return
	}
	updated, err := h.service.UpdatePlatformRole(r.Context(), id, form.Name, form.Description, form.Permissions, form.CompanyPermissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deletePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePlatformRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) catalog(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"items": Catalog()})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return 0, false
	}
	return companyID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Invalid role id")
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

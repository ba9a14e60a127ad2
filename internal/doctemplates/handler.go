package doctemplates

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/platform/httpx"
	"github.com/meridian-saas/meridian/internal/shared"
)

// Handler serves document template administration within the resolved
// company scope.
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

// MountRoutes registers template routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("template:read"))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("template:manage"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type templateForm struct {
	Name string `json:"name" validate:"required,max=200"`
	Kind string `json:"kind" validate:"required,oneof=letter invoice contract"`
	Body string `json:"body" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	q := shared.ParseListQuery(r)
	kind := Kind(r.URL.Query().Get("kind"))
	items, total, err := h.service.List(r.Context(), companyID, kind, q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Template{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	tpl, err := h.service.Get(r.Context(), id, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), companyID, Template{Name: form.Name, Kind: Kind(form.Kind), Body: form.Body})
	if err != nil {
		h.logger.Error("create template", slog.Any("error", err))
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
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, companyID, Template{Name: form.Name, Kind: Kind(form.Kind), Body: form.Body})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return 0, false
	}
	return companyID, true
}

func (h *Handler) scopedID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Invalid template id")
		return 0, 0, false
	}
	return companyID, id, true
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (templateForm, bool) {
	var form templateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body")
		return form, false
	}
	if err := h.val.Struct(form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "name, kind and body are required")
		return form, false
	}
	return form, true
}

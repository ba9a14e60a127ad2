package companies

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

// Handler manages company administration endpoints. All routes are
// platform-scoped: only internal users with platform:companies reach them.
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

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authz.RequirePermission("platform:companies"))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/deactivate", h.deactivate)
}

type companyForm struct {
	Code    string `json:"code" validate:"required,max=16"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := shared.ParseListQuery(r)
	items, total, err := h.service.List(r.Context(), q)
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Company{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), Company{Code: form.Code, Name: form.Name, Address: form.Address})
	if err != nil {
		h.logger.Error("create company", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, Company{Code: form.Code, Name: form.Name, Address: form.Address})
	if err != nil {
		h.logger.Error("update company", slog.Any("error", err), slog.Int64("id", id))
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
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var err error
	if active {
		err = h.service.Activate(r.Context(), id)
	} else {
		err = h.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Invalid company id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (companyForm, bool) {
	var form companyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body")
		return form, false
	}
	if err := h.val.Struct(form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "code and name are required")
		return form, false
	}
	return form, true
}

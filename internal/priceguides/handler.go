package priceguides

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

// Handler serves price guide administration within the resolved company
// scope. Items ride nested routes under their guide.
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

// MountRoutes registers guide and item routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("priceguide:read"))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission("priceguide:manage"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/activate", h.activate)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/items", h.addItem)
		r.Put("/{id}/items/{itemId}", h.updateItem)
		r.Delete("/{id}/items/{itemId}", h.removeItem)
	})
}

type itemForm struct {
	Description    string `json:"description" validate:"required,max=500"`
	Unit           string `json:"unit" validate:"required,max=40"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"min=0"`
}

type guideForm struct {
	Name     string     `json:"name" validate:"required,max=200"`
	Currency string     `json:"currency" validate:"required,len=3"`
	Items    []itemForm `json:"items" validate:"dive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	q := shared.ParseListQuery(r)
	items, total, err := h.service.List(r.Context(), companyID, q)
	if err != nil {
		h.logger.Error("list price guides", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Guide{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	guide, err := h.service.Get(r.Context(), id, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guide)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var form guideForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.Create(r.Context(), companyID, guideFromForm(form))
	if err != nil {
		h.logger.Error("create price guide", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	var form guideForm
	if !h.decode(w, r, &form) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, companyID, Guide{Name: form.Name, Currency: form.Currency})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	companyID, id, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	var err error
	if active {
		err = h.service.Activate(r.Context(), id, companyID)
	} else {
		err = h.service.Deactivate(r.Context(), id, companyID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	companyID, guideID, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	var form itemForm
	if !h.decode(w, r, &form) {
		return
	}
	created, err := h.service.AddItem(r.Context(), guideID, companyID, itemFromForm(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	companyID, guideID, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemId")
	if !ok {
		return
	}
	var form itemForm
	if !h.decode(w, r, &form) {
		return
	}
	updated, err := h.service.UpdateItem(r.Context(), itemID, guideID, companyID, itemFromForm(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	companyID, guideID, ok := h.scopedID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemId")
	if !ok {
		return
	}
	if err := h.service.RemoveItem(r.Context(), itemID, guideID, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func guideFromForm(form guideForm) Guide {
	guide := Guide{Name: form.Name, Currency: form.Currency}
	for _, it := range form.Items {
		guide.Items = append(guide.Items, itemFromForm(it))
	}
	return guide
}

func itemFromForm(form itemForm) Item {
	return Item{Description: form.Description, Unit: form.Unit, UnitPriceCents: form.UnitPriceCents}
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, ok := authz.ScopeFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "No active company selected. Switch to a company first.")
		return 0, false
	}
	return companyID, true
}

func (h *Handler) scopedID(w http.ResponseWriter, r *http.Request, param string) (int64, int64, bool) {
	companyID, ok := h.scope(w, r)
	if !ok {
		return 0, 0, false
	}
	id, ok := h.pathID(w, r, param)
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

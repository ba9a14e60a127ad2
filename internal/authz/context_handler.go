package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-saas/meridian/internal/platform/httpx"
	"github.com/meridian-saas/meridian/internal/shared"
)

// ContextHandler exposes the company-context operations for internal
// users: inspect, switch, exit.
type ContextHandler struct {
	logger    *slog.Logger
	resolver  *Resolver
	companies CompanyRepository
}

// NewContextHandler constructs a ContextHandler.
func NewContextHandler(logger *slog.Logger, resolver *Resolver, companies CompanyRepository) *ContextHandler {
	return &ContextHandler{logger: logger, resolver: resolver, companies: companies}
}

// MountRoutes registers context routes.
func (h *ContextHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.current)
	r.Post("/switch", h.switchCompany)
	r.Post("/exit", h.exit)
}

type companyResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type currentContextResponse struct {
	Company *companyResponse `json:"company"`
	Fixed   bool             `json:"fixed"`
}

type switchRequest struct {
	CompanyID int64 `json:"companyId"`
}

func (h *ContextHandler) current(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Authentication required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	res, resolved, err := h.resolver.Resolve(r.Context(), actor, sess)
	if err != nil {
		h.logger.Error("resolve context", slog.Any("error", err), slog.Int64("actor_id", actor.ActorID()))
		httpx.Error(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if !resolved {
		httpx.JSON(w, http.StatusOK, currentContextResponse{})
		return
	}
	company, err := h.companies.Get(r.Context(), res.CompanyID)
	if err != nil {
		h.logger.Error("load context company", slog.Any("error", err), slog.Int64("company_id", res.CompanyID))
		httpx.Error(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, currentContextResponse{
		Company: &companyResponse{ID: company.ID, Name: company.Name, IsActive: company.IsActive},
		Fixed:   res.Fixed,
	})
}

func (h *ContextHandler) switchCompany(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Authentication required")
		return
	}
	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.CompanyID == 0 {
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "companyId is required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	company, err := h.resolver.SwitchCompany(r.Context(), actor, sess, req.CompanyID)
	if err != nil {
		h.respondSwitchError(w, r, actor, req.CompanyID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, companyResponse{ID: company.ID, Name: company.Name, IsActive: company.IsActive})
}

func (h *ContextHandler) exit(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Authentication required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	h.resolver.ExitCompany(actor, sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContextHandler) respondSwitchError(w http.ResponseWriter, r *http.Request, actor Actor, target int64, err error) {
	switch {
	case errors.Is(err, ErrNotInternal):
		writeForbiddenMessage(w, "Company switching requires an internal account")
	case errors.Is(err, ErrCompanyNotFound):
		httpx.Error(w, http.StatusNotFound, "Not Found", "Company not found")
	case errors.Is(err, ErrCompanyInactive):
		httpx.Error(w, http.StatusBadRequest, "Bad Request", "Company is not active")
	case errors.Is(err, ErrCompanyRestricted):
		httpx.JSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "You do not have access to this company"})
	default:
		h.logger.Error("switch company",
			slog.Any("error", err),
			slog.Int64("actor_id", actor.ActorID()),
			slog.Int64("target_company_id", target))
		httpx.Error(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-saas/meridian/internal/auth"
	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/companies"
	"github.com/meridian-saas/meridian/internal/doctemplates"
	"github.com/meridian-saas/meridian/internal/observability"
	"github.com/meridian-saas/meridian/internal/offices"
	"github.com/meridian-saas/meridian/internal/priceguides"
	"github.com/meridian-saas/meridian/internal/roles"
	"github.com/meridian-saas/meridian/internal/shared"
	"github.com/meridian-saas/meridian/internal/users"
	"github.com/meridian-saas/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler    *auth.Handler
	AuthMiddleware auth.Middleware
	ContextHandler *authz.ContextHandler

	CompaniesHandler    *companies.Handler
	UsersHandler        *users.Handler
	RolesHandler        *roles.Handler
	OfficesHandler      *offices.Handler
	DocTemplatesHandler *doctemplates.Handler
	PriceGuidesHandler  *priceguides.Handler

	JobsHandler *jobs.Handler
	Metrics     *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.AuthMiddleware.Authenticate)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/context", params.ContextHandler.MountRoutes)
	r.Route("/companies", params.CompaniesHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountCompanyRoutes)
	r.Route("/internal-users", params.UsersHandler.MountPlatformRoutes)
	r.Route("/roles", params.RolesHandler.MountCompanyRoutes)
	r.Route("/platform-roles", params.RolesHandler.MountPlatformRoutes)
	r.Route("/offices", params.OfficesHandler.MountRoutes)
	r.Route("/document-templates", params.DocTemplatesHandler.MountRoutes)
	r.Route("/price-guides", params.PriceGuidesHandler.MountRoutes)

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

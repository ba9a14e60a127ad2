package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-saas/meridian/internal/app"
	"github.com/meridian-saas/meridian/internal/auth"
	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/companies"
	"github.com/meridian-saas/meridian/internal/doctemplates"
	"github.com/meridian-saas/meridian/internal/observability"
	"github.com/meridian-saas/meridian/internal/offices"
	"github.com/meridian-saas/meridian/internal/platform/cache"
	"github.com/meridian-saas/meridian/internal/platform/db"
	"github.com/meridian-saas/meridian/internal/priceguides"
	"github.com/meridian-saas/meridian/internal/roles"
	"github.com/meridian-saas/meridian/internal/shared"
	"github.com/meridian-saas/meridian/internal/users"
	"github.com/meridian-saas/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdle: cfg.PGMaxConnIdle})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	roleRepo := authz.NewRoleRepository(dbpool)
	companyRepo := authz.NewCompanyRepository(dbpool)
	restrictionRepo := authz.NewAccessRestrictionRepository(dbpool)
	aggregator := authz.NewAggregator(roleRepo)
	resolver := authz.NewResolver(companyRepo, restrictionRepo)
	authzMiddleware := authz.Middleware{
		Aggregator: aggregator,
		Resolver:   resolver,
		Logger:     logger,
		Decisions:  metrics,
	}
	contextHandler := authz.NewContextHandler(logger, resolver, companyRepo)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, sessionManager)
	authHandler.LoginLimiter = app.LoginRateLimiter(cfg)

	companiesHandler := companies.NewHandler(logger, companies.NewService(companies.NewRepository(dbpool)), authzMiddleware)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), authzMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), authzMiddleware)
	officesHandler := offices.NewHandler(logger, offices.NewService(offices.NewRepository(dbpool)), authzMiddleware)
	templatesHandler := doctemplates.NewHandler(logger, doctemplates.NewService(doctemplates.NewRepository(dbpool)), authzMiddleware)
	guidesHandler := priceguides.NewHandler(logger, priceguides.NewService(priceguides.NewRepository(dbpool)), authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		ContextHandler:      contextHandler,
		CompaniesHandler:    companiesHandler,
		UsersHandler:        usersHandler,
		RolesHandler:        rolesHandler,
		OfficesHandler:      officesHandler,
		DocTemplatesHandler: templatesHandler,
		PriceGuidesHandler:  guidesHandler,
		JobsHandler:         jobsHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

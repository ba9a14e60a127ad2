package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-saas/meridian/internal/app"
	"github.com/meridian-saas/meridian/internal/auth"
	jobmetrics "github.com/meridian-saas/meridian/internal/jobs"
	"github.com/meridian-saas/meridian/internal/platform/db"
	"github.com/meridian-saas/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdle: cfg.PGMaxConnIdle})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	tasks := &jobs.Tasks{
		Pool:     pool,
		Sessions: auth.NewRepository(pool),
		Logger:   logger,
		Metrics:  jobmetrics.NewMetrics(nil),
	}

	purgeTask, err := jobs.NewPurgeSessionsTask(jobs.PurgeSessionsPayload{})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	reportTask, err := jobs.NewRestrictionReportTask(jobs.RestrictionReportPayload{StaleAfterDays: 90})
	if err != nil {
		logger.Error("build report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Tasks:     tasks,
		Cron: []jobs.CronRegistration{
			{Spec: "15 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 4 * * 1", Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/aulanet/aulanet/internal/app"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/observability"
	"github.com/aulanet/aulanet/internal/platform/cache"
	"github.com/aulanet/aulanet/internal/platform/db"
	"github.com/aulanet/aulanet/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authzRepo := authz.NewRepository(pool)
	snapshotCache := authz.NewSnapshotCache(redisClient, authzRepo, cfg.SnapshotTTL, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSnapshotRefresh, Handler: jobs.NewSnapshotRefreshHandler(snapshotCache, logger, metrics)},
			{Type: jobs.TaskTypeSnapshotSweep, Handler: jobs.NewSnapshotSweepHandler(redisClient, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SnapshotSweepSpec, Task: jobs.NewSnapshotSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dos-laredos/dos-laredos/internal/app"
	"github.com/dos-laredos/dos-laredos/internal/inventory"
	jobmetrics "github.com/dos-laredos/dos-laredos/internal/jobs"
	"github.com/dos-laredos/dos-laredos/internal/observability"
	"github.com/dos-laredos/dos-laredos/internal/platform/db"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	"github.com/dos-laredos/dos-laredos/internal/store/postgres"
	"github.com/dos-laredos/dos-laredos/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	retry := db.DefaultRetryPolicy
	if cfg.TxMaxRetries > 0 {
		retry.MaxRetries = cfg.TxMaxRetries
	}
	store := postgres.New(pool, retry)
	ledger := inventory.NewLedger(nil, observability.NewFulfillment(prometheus.DefaultRegisterer))
	inventoryService := inventory.NewService(store.Inventory(), ledger, shared.NewAuditLogger(pool), nil, logger)

	jobMetrics := jobmetrics.NewMetrics(nil)
	reconcileJob := jobs.NewPalletReconcileJob(inventoryService, logger, jobMetrics)
	cleanupJob := &jobs.IdempotencyCleanupJob{
		Purger:    shared.NewIdempotencyStore(pool),
		Retention: cfg.IdempotencyRetention,
		Logger:    logger,
		Metrics:   jobMetrics,
	}
	reconcileTask, err := jobs.NewPalletReconcileTask(time.Now().UTC(), "scheduled")
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPalletReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdempotencyCleanupCron, Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

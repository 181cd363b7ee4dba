package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dos-laredos/dos-laredos/cmd/laredos/cli"
	"github.com/dos-laredos/dos-laredos/internal/app"
	"github.com/dos-laredos/dos-laredos/internal/audit"
	audithttp "github.com/dos-laredos/dos-laredos/internal/audit/http"
	"github.com/dos-laredos/dos-laredos/internal/catalog"
	"github.com/dos-laredos/dos-laredos/internal/integration/kafka"
	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/observability"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/platform/cache"
	"github.com/dos-laredos/dos-laredos/internal/platform/db"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	"github.com/dos-laredos/dos-laredos/internal/store/postgres"
	"github.com/dos-laredos/dos-laredos/jobs"
	"github.com/dos-laredos/dos-laredos/migrations"
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

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "serve" {
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := runCommand(ctx, cfg, logger, args); err != nil {
		logger.Error("command failed", slog.String("command", args[0]), slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", slog.Any("files", applied))
		return nil
	case "jobs":
		if len(args) < 2 {
			return errors.New("usage: laredos jobs trigger <name> | laredos jobs stats")
		}
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		switch args[1] {
		case "trigger":
			if len(args) < 3 {
				return errors.New("usage: laredos jobs trigger <name>")
			}
			info, err := jobsCLI.Trigger(ctx, args[2])
			if err != nil {
				return err
			}
			logger.Info("job enqueued", slog.String("id", info.ID), slog.String("queue", info.Queue))
			return nil
		case "stats":
			stats, err := jobsCLI.InspectQueue(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		}
		return fmt.Errorf("unknown jobs command %q", args[1])
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	fulfillment := observability.NewFulfillment(metrics.Registerer())

	var sink orders.EventSink
	if cfg.KafkaEnabled() {
		publisher := kafka.New(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka close", slog.Any("error", err))
			}
		}()
		sink = publisher
	}

	svc := buildServices(pool, redisClient, cfg, logger, fulfillment, sink)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, svc.inventory),
		OrdersHandler:    orders.NewHandler(logger, svc.orders),
		PaymentsHandler:  payments.NewHandler(logger, svc.payments),
		AuditHandler:     audithttp.NewHandler(logger, audit.NewService(audit.NewPostgresRepository(pool))),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
		Metrics:          metrics,
		Ready:            pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLocker(cfg *app.Config, redisClient *redis.Client) shared.Locker {
	if cfg.LockBackend == app.LockBackendLocal || redisClient == nil {
		return shared.NewLocalLocker()
	}
	return cache.NewLocker(redisClient, cfg.LockRetries)
}

type services struct {
	inventory *inventory.Service
	orders    *orders.Service
	payments  *payments.Service
}

func buildServices(pool *pgxpool.Pool, redisClient *redis.Client, cfg *app.Config, logger *slog.Logger, metrics *observability.Fulfillment, sink orders.EventSink) services {
	retry := db.DefaultRetryPolicy
	if cfg.TxMaxRetries > 0 {
		retry.MaxRetries = cfg.TxMaxRetries
	}
	store := postgres.New(pool, retry)
	audit := shared.NewAuditLogger(pool)
	locker := newLocker(cfg, redisClient)

	var numberer orders.Numberer = postgres.NewSequence(pool)
	if cfg.OrderNumberSource == app.NumberSourceRedis {
		numberer = cache.NewSequence(redisClient, "laredos:order_number")
	}

	ledger := inventory.NewLedger(nil, metrics)
	var ledgerSink inventory.EventSink
	if sink != nil {
		ledgerSink = sink
	}
	allocator := orders.NewAllocator(ledger, catalog.NewPostgres(pool))

	return services{
		inventory: inventory.NewService(store.Inventory(), ledger, audit, ledgerSink, logger),
		orders: orders.NewService(store.Orders(), ledger, allocator, numberer, orders.ServiceConfig{
			Locker:  locker,
			LockTTL: cfg.LockTTL,
			Audit:   audit,
			Sink:    sink,
			Metrics: metrics,
		}, logger),
		payments: payments.NewService(store.Payments(), payments.ServiceConfig{
			Locker:  locker,
			LockTTL: cfg.LockTTL,
			Audit:   audit,
			Metrics: metrics,
		}, logger),
	}
}

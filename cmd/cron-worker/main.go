package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/cron"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
	"github.com/angelmondragon/retailpos-backend/pkg/migrate"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
	"github.com/angelmondragon/retailpos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	lock, closeLock, err := buildLock(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	defer closeLock()

	conn := dbClient.DB()
	salesMetrics := metrics.NewSalesMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(conn)
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		TxRunner:  dbClient,
		Products:  catalog.NewRepository(conn),
		Movements: inventory.NewMovementRepository(conn),
		Outbox:    outbox.NewService(outboxRepo, logg),
		Metrics:   salesMetrics,
		Logger:    logg,
		Config:    cfg.Inventory,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:    logg,
		Inventory: inventorySvc,
		Metrics:   salesMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low-stock job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(lowStockJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildLock returns a redis lock when redis is configured and a process-local lock otherwise.
func buildLock(cfg *config.Config, logg *logger.Logger) (cron.Lock, func(), error) {
	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if errors.Is(err, redis.ErrDisabled) {
		logg.Warn(context.Background(), "redis not configured; cron lock is process-local")
		return cron.NewLocalLock(), func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+env), 0)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return lock, closeFn, nil
}

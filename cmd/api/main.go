package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/retailpos-backend/api/routes"
	"github.com/angelmondragon/retailpos-backend/internal/seed"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/migrate"
	"github.com/angelmondragon/retailpos-backend/pkg/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedSampleData {
		result, err := seed.Run(context.Background(), dbClient, logg, time.Now().UTC())
		if err != nil {
			logg.Error(context.Background(), "failed to seed sample data", err)
			os.Exit(1)
		}
		logg.Info(logg.WithFields(context.Background(), map[string]any{
			"products":  result.Products,
			"customers": result.Customers,
		}), "sample data seeded")
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	switch {
	case errors.Is(err, redis.ErrDisabled):
		logg.Warn(context.Background(), "redis not configured; idempotent sales disabled")
		redisClient = nil
	case err != nil:
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	svc, err := buildServices(cfg, logg, dbClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	deps := routes.Dependencies{
		DB:       dbClient,
		Gatherer: prometheus.DefaultGatherer,
	}
	if redisClient != nil {
		deps.Redis = redisClient
		deps.Idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// One operation so the server drains before its backing stores close.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"api": func(shutdownCtx context.Context) error {
				logg.Info(ctx, "api server shutting down gracefully")
				err := server.Shutdown(shutdownCtx)
				err = multierr.Append(err, dbClient.Close())
				if redisClient != nil {
					err = multierr.Append(err, redisClient.Close())
				}
				return err
			},
		},
	)

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		os.Exit(<-wait)
	case code := <-wait:
		os.Exit(code)
	}
}

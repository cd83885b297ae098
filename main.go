package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-booking/cmd"
	"parking-booking/internal/data/repository"
	"parking-booking/internal/usecase"
	"parking-booking/internal/wire"
	"parking-booking/pkg/cache"
	"parking-booking/pkg/database"
	"parking-booking/pkg/telemetry"
	"parking-booking/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	if err := run(config, logger); err != nil {
		logger.Fatal("Application stopped", zap.Error(err))
	}
}

func run(config *utils.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	shutdownTracing, err := telemetry.InitTracing(ctx, config.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if err := database.RunMigrations(ctx, db, logger); err != nil {
		return err
	}

	var opts []usecase.Option
	if rdb := cache.NewRedisClient(config.Redis); rdb != nil {
		defer func() { _ = rdb.Close() }()
		if err := cache.Ping(ctx, rdb); err != nil {
			// sweeps still run without the lock, only less efficiently
			logger.Warn("Redis unreachable at startup", zap.Error(err))
		}
		opts = append(opts, usecase.WithSweepGuard(cache.NewSweepLock(rdb, config.Redis.SweepLockTTL, logger)))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, config, logger, registry, opts...)

	return cmd.APIServer(ctx, app.Router, config.App.Port, 10*time.Second, logger)
}

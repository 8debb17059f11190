package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/config"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/cache"
	"github.com/vsinha/bomcheck/pkg/infrastructure/events"
	"github.com/vsinha/bomcheck/pkg/infrastructure/logger"
	"github.com/vsinha/bomcheck/pkg/infrastructure/metrics"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/bomcheck/pkg/interfaces/api"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	store, health, closeStore, err := initStore(ctx, cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Database.SeedScenario != "" {
		scenario, err := csv.NewLoader().LoadScenario(cfg.Database.SeedScenario)
		if err != nil {
			return fmt.Errorf("load seed scenario: %w", err)
		}
		if err := scenario.Populate(ctx, store); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		zapLogger.Info("Seed scenario loaded",
			zap.String("dir", cfg.Database.SeedScenario),
			zap.Int("items", len(scenario.Items)),
			zap.Int("edges", len(scenario.Edges)))
	}

	costCache, closeCache := initCache(ctx, cfg.Redis, zapLogger)
	defer closeCache()

	var m *metrics.Metrics
	var recorder production.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
	}

	resolver := bom.NewResolver(store, cfg.BOM.MaxDepth, zapLogger.Named("bom")).
		WithMaxTreeNodes(cfg.BOM.MaxTreeNodes)
	analyzer := feasibility.NewAnalyzer(resolver, store, zapLogger.Named("feasibility"))
	calculator := costing.NewCalculator(resolver, store, store, costCache, cfg.Cache.CostTTL, zapLogger.Named("costing"))
	eventLog := events.NewMemoryLog(zapLogger.Named("events"))
	processor := production.NewProcessor(store, store, analyzer, eventLog, recorder, zapLogger.Named("production"))

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Dependencies{
		Items:        store,
		Transactions: store,
		Resolver:     resolver,
		Analyzer:     analyzer,
		Calculator:   calculator,
		Processor:    processor,
		Metrics:      m,
		Health:       health,
		Logger:       zapLogger.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("Server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zapLogger.Info("Server exited")
	return nil
}

// initStore opens Postgres when a DSN is configured and falls back to the
// in-memory store otherwise
func initStore(ctx context.Context, cfg config.DatabaseConfig, zapLogger *zap.Logger) (repositories.Store, func(context.Context) error, func(), error) {
	if cfg.DSN == "" {
		zapLogger.Warn("No database DSN configured, using in-memory store")
		return memory.NewStore(0, 0), nil, func() {}, nil
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.DSN); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		zapLogger.Info("Database migrations applied")
	}

	pool, err := postgres.Connect(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, nil, err
	}
	zapLogger.Info("Database connected", zap.Int32("max_conns", cfg.MaxConns))

	store := postgres.NewStore(pool, zapLogger.Named("postgres"))
	return store, store.Ping, pool.Close, nil
}

// initCache connects to Redis when enabled. A failed ping degrades to the
// in-memory cache instead of refusing to start.
func initCache(ctx context.Context, cfg config.RedisConfig, zapLogger *zap.Logger) (cache.Cache, func()) {
	if !cfg.Enabled {
		return cache.NewMemoryCache(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, using in-memory cost cache",
			zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemoryCache(), func() {}
	}

	zapLogger.Info("Redis connected", zap.String("addr", cfg.Addr))
	return cache.NewRedisCache(client, "bomcheck:cost:"), func() { _ = client.Close() }
}

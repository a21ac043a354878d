// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
	"github.com/your-org/marketplace-backend/internal/interfaces/http"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/routes"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/retry"
	"github.com/your-org/marketplace-backend/internal/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := applogger.New(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting API")

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, "marketplace-api", cfg.App, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise tracing")
	}

	// Connect to database
	db, err := postgres.NewConnection(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redisClient.Close()

	// Health check
	if err := db.Health(ctx); err != nil {
		logger.WithError(err).Fatal("database health check failed")
	}
	if err := redisClient.Health(ctx); err != nil {
		logger.WithError(err).Fatal("Redis health check failed")
	}

	// Run database migrations
	if cfg.Database.AutoMigrate {
		migration := postgres.NewMigration(db.GetDB(), logger)
		if err := migration.RunAutoMigrations(); err != nil {
			logger.WithError(err).Fatal("database migration failed")
		}
		if err := migration.CreateIndexes(); err != nil {
			logger.WithError(err).Warn("index creation failed")
		}

		// Seed initial data in development
		if cfg.IsDevelopment() {
			if err := migration.SeedInitialData(); err != nil {
				logger.WithError(err).Warn("data seeding failed")
			}
			migration.GetTableInfo()
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	gdb := db.GetDB()
	policy := retry.Policy{
		MaxAttempts:    cfg.Inventory.RetryAttempts,
		InitialBackoff: cfg.Inventory.RetryBaseDelay,
		MaximumBackoff: cfg.Inventory.RetryMaxDelay,
	}

	// Ledger and stock changes queue background reconcile/repair tasks
	queue := inventory.NewTaskQueue(redisClient, cfg.Inventory.QueueKey, cfg.Inventory.QueueDedupTTL, inventoryMetrics)
	notifier := inventory.NewNotifier(queue, logger)

	categories := product.NewCategoryService(gdb)
	products := product.NewService(gdb)
	stock := inventory.NewStockService(gdb, inventory.StockConfig{
		MaxAdjustment: cfg.Inventory.MaxAdjustment,
		Retry:         policy,
	}, inventoryMetrics, logger).WithStockListener(notifier)
	reconciler := inventory.NewReconciler(gdb, inventory.ReconcilerConfig{
		PageSize: cfg.Inventory.PageSize,
		Workers:  cfg.Inventory.ReconcileWorkers,
	}, inventoryMetrics, logger)
	repairer := inventory.NewRepairer(gdb, cfg.Inventory.PageSize, reconciler, inventoryMetrics, logger)
	carts := cart.NewService(gdb, logger).WithReservationListener(notifier)
	orders := order.NewService(gdb, stock, policy, logger).
		WithDemandListener(notifier).
		WithStockListener(notifier)

	server := http.NewServer(http.ServerParams{
		Config: cfg,
		DB:     gdb,
		Redis:  redisClient.Redis,
		Logger: logger,
		Handlers: routes.Handlers{
			Products:   handlers.NewProductHandler(products),
			Categories: handlers.NewCategoryHandler(categories),
			Inventory: handlers.NewInventoryHandler(handlers.InventoryHandlerParams{
				Stats:      inventory.NewStatsService(gdb, cfg.Inventory.PageSize, cfg.Inventory.MovementListLimit),
				Stock:      stock,
				Products:   products,
				Reconciler: reconciler,
				Repairer:   repairer,
				Tasks:      queue,
				Scopes:     handlers.NewScopeResolver(categories),
				Logger:     logger,
			}),
			Carts:  handlers.NewCartHandler(carts),
			Orders: handlers.NewOrderHandler(orders),
		},
		Gatherer: registry,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}

	logger.Info("server shutdown completed")
}

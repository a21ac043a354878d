// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
	"github.com/your-org/marketplace-backend/internal/jobs"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := applogger.New(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"interval":    cfg.Worker.Interval,
	}).Info("starting inventory worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "marketplace-worker", cfg.App, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise tracing")
	}

	db, err := postgres.NewConnection(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	gdb := db.GetDB()
	reconciler := inventory.NewReconciler(gdb, inventory.ReconcilerConfig{
		PageSize: cfg.Inventory.PageSize,
		Workers:  cfg.Inventory.ReconcileWorkers,
	}, inventoryMetrics, logger)
	repairer := inventory.NewRepairer(gdb, cfg.Inventory.PageSize, reconciler, inventoryMetrics, logger)
	queue := inventory.NewTaskQueue(redisClient, cfg.Inventory.QueueKey, cfg.Inventory.QueueDedupTTL, inventoryMetrics)

	registryJobs := jobs.NewRegistry()
	reconcileJob, err := jobs.NewReconcileJob(reconciler, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build reconcile job")
	}
	registryJobs.Register(reconcileJob)
	if cfg.Worker.RepairOnSchedule {
		repairJob, err := jobs.NewRepairJob(repairer, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to build repair job")
		}
		registryJobs.Register(repairJob)
	}

	lock, err := jobs.NewRedisLock(redisClient, cfg.Worker.LockKey, cfg.Worker.LockTTL)
	if err != nil {
		logger.WithError(err).Fatal("failed to build scheduler lock")
	}

	scheduler, err := jobs.NewScheduler(jobs.SchedulerParams{
		Logger:   logger,
		Registry: registryJobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Worker.Interval,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to build scheduler")
	}

	consumer, err := jobs.NewConsumer(jobs.ConsumerParams{
		Logger:     logger,
		Source:     queue,
		Reconciler: reconciler,
		Repairer:   repairer,
		Metrics:    jobMetrics,
		PollWait:   cfg.Worker.QueuePollWait,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to build task consumer")
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return scheduler.Run(groupCtx)
	})
	group.Go(func() error {
		return consumer.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("worker stopped with error")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}

	logger.Info("worker stopped")
}

// internal/jobs/scheduler.go
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// SchedulerParams configure the scheduler
type SchedulerParams struct {
	Logger   logrus.FieldLogger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Scheduler runs registered jobs on a fixed cadence while holding the lock
type Scheduler struct {
	logger   logrus.FieldLogger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewScheduler builds a scheduler
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		logger:   params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run runs a cycle immediately and then on every tick until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to acquire scheduler lock")
		return
	}
	if !locked {
		s.logger.Info("another worker holds the scheduler lock; skipping this cycle")
		s.metrics.IncSkipped()
		return
	}
	defer func() {
		// Release even when ctx was cancelled mid-cycle.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithError(err).Error("failed to release scheduler lock")
		}
	}()

	s.logger.Info("scheduled run starting")
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, job)
	}
	s.logger.Info("scheduled run complete")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	log := s.logger.WithField("job", job.Name())
	log.Info("job start")

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	log = log.WithField("duration_ms", duration.Milliseconds())
	if err != nil {
		log.WithError(err).Error("job failed")
		s.metrics.IncFailure(job.Name())
		return
	}
	log.Info("job completed")
	s.metrics.IncSuccess(job.Name())
}

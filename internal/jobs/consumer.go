// internal/jobs/consumer.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
)

const (
	defaultPollWait  = 5 * time.Second
	consumerBackoff  = time.Second
	consumerJobLabel = "queue"
)

// TaskSource yields queued inventory tasks
type TaskSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*inventory.Task, error)
}

// ConsumerParams configure the task consumer
type ConsumerParams struct {
	Logger     logrus.FieldLogger
	Source     TaskSource
	Reconciler AvailabilityReconciler
	Repairer   OverReservationRepairer
	Metrics    *metrics.JobMetrics
	PollWait   time.Duration
}

// Consumer drains the inventory task queue, one task at a time
type Consumer struct {
	logger     logrus.FieldLogger
	source     TaskSource
	reconciler AvailabilityReconciler
	repairer   OverReservationRepairer
	metrics    *metrics.JobMetrics
	pollWait   time.Duration
}

// NewConsumer builds a consumer
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Source == nil {
		return nil, errors.New("task source required")
	}
	if params.Reconciler == nil || params.Repairer == nil {
		return nil, errors.New("reconciler and repairer required")
	}
	pollWait := params.PollWait
	if pollWait <= 0 {
		pollWait = defaultPollWait
	}
	return &Consumer{
		logger:     params.Logger,
		source:     params.Source,
		reconciler: params.Reconciler,
		repairer:   params.Repairer,
		metrics:    params.Metrics,
		pollWait:   pollWait,
	}, nil
}

// Run consumes tasks until ctx is done
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("task consumer stopped")
			return err
		}

		task, err := c.source.Dequeue(ctx, c.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.WithError(err).Warn("failed to dequeue inventory task")
			if task == nil {
				sleep(ctx, consumerBackoff)
				continue
			}
		}
		if task == nil {
			continue
		}

		_ = c.Handle(ctx, task)
	}
}

// Handle runs a single task and records its outcome
func (c *Consumer) Handle(ctx context.Context, task *inventory.Task) error {
	label := consumerJobLabel + ":" + string(task.Kind)
	log := c.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"kind":    task.Kind,
		"scope":   task.Scope.Key(),
	})

	start := time.Now()
	err := c.dispatch(ctx, task)
	c.metrics.ObserveDuration(label, time.Since(start))

	if err != nil {
		log.WithError(err).Error("inventory task failed")
		c.metrics.IncFailure(label)
		return err
	}
	log.WithField("latency_ms", time.Since(task.EnqueuedAt).Milliseconds()).Debug("inventory task done")
	c.metrics.IncSuccess(label)
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, task *inventory.Task) error {
	switch task.Kind {
	case inventory.TaskReconcile:
		summary, err := c.reconciler.ReconcileProductAvailability(ctx, task.Scope)
		if err != nil {
			return err
		}
		return summary.Err()
	case inventory.TaskRepair:
		summary, err := c.repairer.RepairAllOverReserved(ctx, task.Scope)
		if err != nil {
			return err
		}
		return summary.Err()
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

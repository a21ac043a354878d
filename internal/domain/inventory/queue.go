// internal/domain/inventory/queue.go
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
)

// TaskKind names the background work a task asks for
type TaskKind string

const (
	TaskReconcile TaskKind = "reconcile"
	TaskRepair    TaskKind = "repair"
)

// Task is a unit of deferred inventory work
type Task struct {
	ID         string        `json:"id"`
	Kind       TaskKind      `json:"kind"`
	Scope      product.Scope `json:"scope"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// QueueStore is the list and key primitives the task queue needs.
// BRPop returns an empty slice when the wait times out.
type QueueStore interface {
	LPush(ctx context.Context, key string, values ...interface{}) error
	BRPop(ctx context.Context, timeout time.Duration, key string) ([]string, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// TaskQueue is a FIFO of inventory tasks. A task for the same kind and scope
// is enqueued at most once until a consumer picks it up.
type TaskQueue struct {
	store    QueueStore
	key      string
	dedupTTL time.Duration
	metrics  *metrics.InventoryMetrics
}

// NewTaskQueue creates a task queue on the given list key
func NewTaskQueue(store QueueStore, key string, dedupTTL time.Duration, m *metrics.InventoryMetrics) *TaskQueue {
	if dedupTTL <= 0 {
		dedupTTL = 5 * time.Minute
	}
	return &TaskQueue{
		store:    store,
		key:      key,
		dedupTTL: dedupTTL,
		metrics:  m,
	}
}

// Enqueue pushes task unless an identical one is already waiting. It reports
// whether the task was pushed.
func (q *TaskQueue) Enqueue(ctx context.Context, task Task) (bool, error) {
	if task.Scope.Empty() {
		return false, nil
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	dedupKey := q.dedupKey(task)
	ok, err := q.store.SetNX(ctx, dedupKey, task.ID, q.dedupTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim task slot: %w", err)
	}
	if !ok {
		return false, nil
	}

	payload, err := json.Marshal(task)
	if err != nil {
		_ = q.store.Del(ctx, dedupKey)
		return false, fmt.Errorf("failed to encode task: %w", err)
	}
	if err := q.store.LPush(ctx, q.key, payload); err != nil {
		_ = q.store.Del(ctx, dedupKey)
		return false, fmt.Errorf("failed to push task: %w", err)
	}

	q.metrics.IncTaskEnqueued(string(task.Kind))
	return true, nil
}

// Dequeue waits up to timeout for a task. It returns nil when none arrived.
// The task's dedup slot is released so changes made while it runs queue a
// fresh task.
func (q *TaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	values, err := q.store.BRPop(ctx, timeout, q.key)
	if err != nil {
		return nil, fmt.Errorf("failed to pop task: %w", err)
	}
	// BRPOP replies with the key followed by the value.
	if len(values) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(values[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	if err := q.store.Del(ctx, q.dedupKey(task)); err != nil {
		return &task, fmt.Errorf("failed to release task slot: %w", err)
	}
	return &task, nil
}

func (q *TaskQueue) dedupKey(task Task) string {
	return q.key + ":dedup:" + string(task.Kind) + ":" + task.Scope.Key()
}

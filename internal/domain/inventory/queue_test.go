package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
)

type memoryQueueStore struct {
	mu      sync.Mutex
	lists   map[string][]string
	keys    map[string]interface{}
	pushErr error
}

func newMemoryQueueStore() *memoryQueueStore {
	return &memoryQueueStore{lists: map[string][]string{}, keys: map[string]interface{}{}}
}

func (m *memoryQueueStore) LPush(_ context.Context, key string, values ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	for _, v := range values {
		var s string
		switch tv := v.(type) {
		case []byte:
			s = string(tv)
		case string:
			s = tv
		}
		m.lists[key] = append([]string{s}, m.lists[key]...)
	}
	return nil
}

func (m *memoryQueueStore) BRPop(_ context.Context, _ time.Duration, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if len(list) == 0 {
		return nil, nil
	}
	last := list[len(list)-1]
	m.lists[key] = list[:len(list)-1]
	return []string{key, last}, nil
}

func (m *memoryQueueStore) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	return true, nil
}

func (m *memoryQueueStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestTaskQueueDeduplicatesWaitingTasks(t *testing.T) {
	store := newMemoryQueueStore()
	queue := NewTaskQueue(store, "inventory:tasks", time.Minute, nil)
	ctx := context.Background()

	pushed, err := queue.Enqueue(ctx, Task{Kind: TaskReconcile, Scope: product.ProductScope(2, 1)})
	require.NoError(t, err)
	assert.True(t, pushed)

	pushed, err = queue.Enqueue(ctx, Task{Kind: TaskReconcile, Scope: product.ProductScope(1, 2)})
	require.NoError(t, err)
	assert.False(t, pushed)

	// A different kind for the same scope is a different task.
	pushed, err = queue.Enqueue(ctx, Task{Kind: TaskRepair, Scope: product.ProductScope(1, 2)})
	require.NoError(t, err)
	assert.True(t, pushed)

	assert.Len(t, store.lists["inventory:tasks"], 2)
}

func TestTaskQueueIsFIFOAndReleasesSlotOnDequeue(t *testing.T) {
	store := newMemoryQueueStore()
	queue := NewTaskQueue(store, "inventory:tasks", time.Minute, nil)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, Task{Kind: TaskReconcile, Scope: product.SellerScope(4)})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, Task{Kind: TaskRepair, Scope: product.AllProducts()})
	require.NoError(t, err)

	task, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, TaskReconcile, task.Kind)
	assert.Equal(t, "seller=4", task.Scope.Key())
	assert.NotEmpty(t, task.ID)

	pushed, err := queue.Enqueue(ctx, Task{Kind: TaskReconcile, Scope: product.SellerScope(4)})
	require.NoError(t, err)
	assert.True(t, pushed, "slot should be free once the task was picked up")

	task, err = queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskRepair, task.Kind)
}

func TestTaskQueueDequeueTimeout(t *testing.T) {
	queue := NewTaskQueue(newMemoryQueueStore(), "inventory:tasks", time.Minute, nil)

	task, err := queue.Dequeue(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTaskQueueReleasesSlotWhenPushFails(t *testing.T) {
	store := newMemoryQueueStore()
	store.pushErr = errors.New("connection refused")
	queue := NewTaskQueue(store, "inventory:tasks", time.Minute, nil)

	_, err := queue.Enqueue(context.Background(), Task{Kind: TaskReconcile, Scope: product.ProductScope(1)})
	require.Error(t, err)
	assert.Empty(t, store.keys)
}

func TestTaskQueueIgnoresEmptyScope(t *testing.T) {
	store := newMemoryQueueStore()
	queue := NewTaskQueue(store, "inventory:tasks", time.Minute, nil)

	pushed, err := queue.Enqueue(context.Background(), Task{Kind: TaskReconcile, Scope: product.CategoryScope(nil)})
	require.NoError(t, err)
	assert.False(t, pushed)
	assert.Empty(t, store.lists)
}

func TestNotifierQueuesTasks(t *testing.T) {
	store := newMemoryQueueStore()
	queue := NewTaskQueue(store, "inventory:tasks", time.Minute, nil)
	notifier := NewNotifier(queue, applogger.Discard())
	ctx := context.Background()

	notifier.ReservationsChanged(ctx, []uint{3, 1, 3})
	notifier.DemandChanged(ctx, []uint{1, 3})
	notifier.StockReduced(ctx, []uint{3})
	notifier.DemandChanged(ctx, nil)

	first, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskReconcile, first.Kind)
	assert.Equal(t, []uint{1, 3}, first.Scope.ProductIDs)

	second, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskRepair, second.Kind)
	assert.Equal(t, []uint{1, 3}, second.Scope.ProductIDs)

	third, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, TaskRepair, third.Kind)
	assert.Equal(t, []uint{3}, third.Scope.ProductIDs)

	fourth, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, fourth)
}

func TestNotifierSurvivesQueueFailure(t *testing.T) {
	store := newMemoryQueueStore()
	store.pushErr = errors.New("connection refused")
	notifier := NewNotifier(NewTaskQueue(store, "inventory:tasks", time.Minute, nil), applogger.Discard())

	assert.NotPanics(t, func() {
		notifier.ReservationsChanged(context.Background(), []uint{1})
	})
}

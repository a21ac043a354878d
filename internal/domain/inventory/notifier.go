// internal/domain/inventory/notifier.go
package inventory

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
)

// Notifier turns committed ledger and stock changes into queued tasks.
// Enqueue failures are logged; the scheduled full pass covers anything lost.
type Notifier struct {
	queue  *TaskQueue
	logger logrus.FieldLogger
}

// NewNotifier creates a notifier on queue
func NewNotifier(queue *TaskQueue, logger logrus.FieldLogger) *Notifier {
	return &Notifier{queue: queue, logger: logger}
}

// ReservationsChanged queues a reconcile of products whose reserved demand
// moved, followed by a repair since new reservations may exceed stock.
func (n *Notifier) ReservationsChanged(ctx context.Context, productIDs []uint) {
	n.enqueue(ctx, TaskReconcile, productIDs)
	n.enqueue(ctx, TaskRepair, productIDs)
}

// DemandChanged queues a reconcile of products whose in-flight demand moved
func (n *Notifier) DemandChanged(ctx context.Context, productIDs []uint) {
	n.enqueue(ctx, TaskReconcile, productIDs)
}

// StockReduced queues a repair of products that may now be over-reserved
func (n *Notifier) StockReduced(ctx context.Context, productIDs []uint) {
	n.enqueue(ctx, TaskRepair, productIDs)
}

func (n *Notifier) enqueue(ctx context.Context, kind TaskKind, productIDs []uint) {
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return
	}

	task := Task{Kind: kind, Scope: product.ProductScope(ids...)}
	pushed, err := n.queue.Enqueue(context.WithoutCancel(ctx), task)
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"kind":        kind,
			"product_ids": ids,
		}).WithError(err).Warn("failed to queue inventory task")
		return
	}
	if pushed {
		n.logger.WithFields(logrus.Fields{
			"kind":        kind,
			"product_ids": ids,
		}).Debug("inventory task queued")
	}
}

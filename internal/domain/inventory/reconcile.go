// internal/domain/inventory/reconcile.go
package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ReconcileSummary reports the outcome of one reconciliation pass
type ReconcileSummary struct {
	Scope         string   `json:"scope"`
	Scanned       int      `json:"scanned"`
	Corrected     int      `json:"corrected"`
	Unchanged     int      `json:"unchanged"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	LastProductID uint     `json:"last_product_id"`
	Completed     bool     `json:"completed"`
	Errors        []string `json:"errors,omitempty"`

	errs []error
}

// Err combines the per-product failures of the pass
func (s *ReconcileSummary) Err() error {
	if s == nil {
		return nil
	}
	return multierr.Combine(s.errs...)
}

func (s *ReconcileSummary) fail(err error) {
	s.Failed++
	s.errs = append(s.errs, err)
	s.Errors = append(s.Errors, err.Error())
}

type reconcileOutcome int

const (
	outcomeUnchanged reconcileOutcome = iota
	outcomeCorrected
	outcomeSkipped
)

// ReconcilerConfig tunes paging and parallelism
type ReconcilerConfig struct {
	PageSize int
	Workers  int
}

// Reconciler aligns the stored availability flag with the computed status
type Reconciler struct {
	db       *gorm.DB
	ledger   *LedgerReader
	metrics  *metrics.InventoryMetrics
	logger   logrus.FieldLogger
	pageSize int
	workers  int
}

// NewReconciler creates a reconciler
func NewReconciler(db *gorm.DB, cfg ReconcilerConfig, m *metrics.InventoryMetrics, logger logrus.FieldLogger) *Reconciler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Reconciler{
		db:       db,
		ledger:   NewLedgerReader(db),
		metrics:  m,
		logger:   logger,
		pageSize: cfg.PageSize,
		workers:  workers,
	}
}

// ReconcileProductAvailability walks every product in scope and rewrites the
// stored availability where it differs from the computed status. Consistent
// products are not written, so repeated passes are idempotent. A write that
// loses a version race is skipped; the next pass picks it up. Per-product
// failures are recorded in the summary and do not stop the pass.
// The returned error is non-nil only when the walk itself stopped, e.g. on
// cancellation; LastProductID then marks where to resume via Scope.AfterID.
func (r *Reconciler) ReconcileProductAvailability(ctx context.Context, scope product.Scope) (*ReconcileSummary, error) {
	ctx, span := tracing.Tracer("inventory").Start(ctx, "inventory.reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("inventory.scope", scope.Key()))

	summary := &ReconcileSummary{Scope: scope.Key()}
	log := r.logger.WithField("scope", summary.Scope)

	lastID, err := walkProducts(ctx, r.db, scope, r.pageSize, func(ctx context.Context, page []product.Product) error {
		return r.reconcilePage(ctx, page, summary)
	})
	summary.LastProductID = lastID
	summary.Completed = err == nil

	r.metrics.AddCorrections(summary.Corrected)
	r.metrics.AddReconcileErrors(summary.Failed)
	r.metrics.AddRaceSkips(summary.Skipped)

	span.SetAttributes(
		attribute.Int("inventory.scanned", summary.Scanned),
		attribute.Int("inventory.corrected", summary.Corrected),
		attribute.Int("inventory.failed", summary.Failed),
	)

	fields := logrus.Fields{
		"scanned":         summary.Scanned,
		"corrected":       summary.Corrected,
		"unchanged":       summary.Unchanged,
		"skipped":         summary.Skipped,
		"failed":          summary.Failed,
		"last_product_id": summary.LastProductID,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithFields(fields).WithError(err).Warn("availability reconciliation stopped early")
		return summary, err
	}

	log.WithFields(fields).Info("availability reconciliation finished")
	return summary, nil
}

func (r *Reconciler) reconcilePage(ctx context.Context, page []product.Product, summary *ReconcileSummary) error {
	ids := productIDs(page)

	reserved, err := r.ledger.ReservedByProduct(ctx, ids)
	if err != nil {
		return r.failPage(ctx, page, err, summary)
	}
	inFlight, err := r.ledger.InFlightByProduct(ctx, ids)
	if err != nil {
		return r.failPage(ctx, page, err, summary)
	}
	return r.applyPage(ctx, page, reserved, inFlight, summary)
}

// failPage counts every product of a page whose demand could not be read as
// failed so the walk can continue with the next page.
func (r *Reconciler) failPage(ctx context.Context, page []product.Product, err error, summary *ReconcileSummary) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	summary.Scanned += len(page)
	for _, p := range page {
		summary.fail(fmt.Errorf("product %d: %w", p.ID, err))
	}
	return nil
}

func (r *Reconciler) applyPage(ctx context.Context, page []product.Product, reserved, inFlight map[uint]int, summary *ReconcileSummary) error {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.workers)

	for i := range page {
		p := page[i]
		g.Go(func() error {
			outcome, err := r.reconcileOne(ctx, &p, reserved[p.ID], inFlight[p.ID])

			mu.Lock()
			defer mu.Unlock()
			summary.Scanned++
			if err != nil {
				summary.fail(fmt.Errorf("product %d: %w", p.ID, err))
				return nil
			}
			switch outcome {
			case outcomeCorrected:
				summary.Corrected++
			case outcomeSkipped:
				summary.Skipped++
			default:
				summary.Unchanged++
			}
			return nil
		})
	}
	_ = g.Wait()

	// Do not advance the cursor past a page that was cut short.
	return ctx.Err()
}

func (r *Reconciler) reconcileOne(ctx context.Context, p *product.Product, reserved, inFlight int) (reconcileOutcome, error) {
	computed := ComputeAvailability(p.StockQuantity, reserved, inFlight)
	if computed.Status == p.Availability {
		return outcomeUnchanged, nil
	}

	result := r.db.WithContext(ctx).Model(&product.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"availability": computed.Status,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return outcomeUnchanged, fmt.Errorf("failed to update availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.WithField("product_id", p.ID).Debug("availability write lost a version race, skipping")
		return outcomeSkipped, nil
	}

	r.logger.WithFields(logrus.Fields{
		"product_id": p.ID,
		"from":       p.Availability,
		"to":         computed.Status,
		"available":  computed.AvailableStock,
	}).Info("availability corrected")
	return outcomeCorrected, nil
}

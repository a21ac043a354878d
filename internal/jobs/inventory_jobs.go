// internal/jobs/inventory_jobs.go
package jobs

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"go.uber.org/multierr"
)

// Job names
const (
	ReconcileJobName = "reconcile-availability"
	RepairJobName    = "repair-over-reservation"
)

// AvailabilityReconciler rewrites stale availability flags in a scope
type AvailabilityReconciler interface {
	ReconcileProductAvailability(ctx context.Context, scope product.Scope) (*inventory.ReconcileSummary, error)
}

// OverReservationRepairer trims reservations beyond stock in a scope
type OverReservationRepairer interface {
	RepairAllOverReserved(ctx context.Context, scope product.Scope) (*inventory.RepairSummary, error)
}

// NewReconcileJob builds the full availability pass
func NewReconcileJob(reconciler AvailabilityReconciler, logger logrus.FieldLogger) (Job, error) {
	if reconciler == nil {
		return nil, errors.New("reconciler required")
	}
	if logger == nil {
		return nil, errors.New("logger required")
	}
	return &reconcileJob{reconciler: reconciler, logger: logger}, nil
}

type reconcileJob struct {
	reconciler AvailabilityReconciler
	logger     logrus.FieldLogger
}

func (j *reconcileJob) Name() string { return ReconcileJobName }

func (j *reconcileJob) Run(ctx context.Context) error {
	summary, err := j.reconciler.ReconcileProductAvailability(ctx, product.AllProducts())
	if summary != nil {
		j.logger.WithFields(logrus.Fields{
			"job":       ReconcileJobName,
			"scanned":   summary.Scanned,
			"corrected": summary.Corrected,
			"failed":    summary.Failed,
		}).Info("availability pass summary")
	}
	if err != nil {
		return err
	}
	return summary.Err()
}

// NewRepairJob builds the full over-reservation repair pass
func NewRepairJob(repairer OverReservationRepairer, logger logrus.FieldLogger) (Job, error) {
	if repairer == nil {
		return nil, errors.New("repairer required")
	}
	if logger == nil {
		return nil, errors.New("logger required")
	}
	return &repairJob{repairer: repairer, logger: logger}, nil
}

type repairJob struct {
	repairer OverReservationRepairer
	logger   logrus.FieldLogger
}

func (j *repairJob) Name() string { return RepairJobName }

func (j *repairJob) Run(ctx context.Context) error {
	summary, err := j.repairer.RepairAllOverReserved(ctx, product.AllProducts())
	if summary != nil {
		j.logger.WithFields(logrus.Fields{
			"job":               RepairJobName,
			"products_checked":  summary.ProductsChecked,
			"products_repaired": summary.ProductsRepaired,
			"failed":            summary.Failed,
		}).Info("repair pass summary")
	}
	return multierr.Append(err, summary.Err())
}

// internal/domain/inventory/repair.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepairSummary reports the outcome of an over-reservation repair
type RepairSummary struct {
	Scope            string   `json:"scope"`
	ProductsChecked  int      `json:"products_checked"`
	ProductsRepaired int      `json:"products_repaired"`
	ItemsCapped      int      `json:"items_capped"`
	ItemsRemoved     int      `json:"items_removed"`
	CartsUpdated     int      `json:"carts_updated"`
	CartsDeleted     int      `json:"carts_deleted"`
	Failed           int      `json:"failed"`
	LastProductID    uint     `json:"last_product_id"`
	Completed        bool     `json:"completed"`
	Errors           []string `json:"errors,omitempty"`

	errs []error
}

// Err combines the per-product and per-cart failures of the run
func (s *RepairSummary) Err() error {
	if s == nil {
		return nil
	}
	return multierr.Combine(s.errs...)
}

func (s *RepairSummary) fail(err error) {
	s.Failed++
	s.errs = append(s.errs, err)
	s.Errors = append(s.Errors, err.Error())
}

// reservation is one abandoned cart item competing for a product's stock
type reservation struct {
	ItemID    uint
	CartID    uint
	Quantity  int
	UnitPrice decimal.Decimal
}

// repairAction is the change planned for one reservation
type repairAction struct {
	ItemID      uint
	CartID      uint
	NewQuantity int
	Remove      bool
}

// planRepair honours reservations first come first served. Items must be in
// ascending id order. Items that fit are left alone, the first item that does
// not fit is capped to the remaining capacity and every later item is removed.
func planRepair(items []reservation, capacity int) []repairAction {
	var actions []repairAction
	remaining := capacity

	for _, item := range items {
		switch {
		case remaining <= 0:
			actions = append(actions, repairAction{ItemID: item.ItemID, CartID: item.CartID, Remove: true})
		case item.Quantity > remaining:
			actions = append(actions, repairAction{ItemID: item.ItemID, CartID: item.CartID, NewQuantity: remaining})
			remaining = 0
		default:
			remaining -= item.Quantity
		}
	}
	return actions
}

// productRepair is the outcome of repairing one product
type productRepair struct {
	Repaired bool
	Capped   int
	Removed  int
	Carts    []uint
}

// Repairer trims abandoned cart reservations that exceed a product's stock
type Repairer struct {
	db         *gorm.DB
	ledger     *LedgerReader
	reconciler *Reconciler
	metrics    *metrics.InventoryMetrics
	logger     logrus.FieldLogger
	pageSize   int
}

// NewRepairer creates a repairer. When reconciler is non-nil the availability
// of repaired products is refreshed after the carts are settled.
func NewRepairer(db *gorm.DB, pageSize int, reconciler *Reconciler, m *metrics.InventoryMetrics, logger logrus.FieldLogger) *Repairer {
	return &Repairer{
		db:         db,
		ledger:     NewLedgerReader(db),
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
		pageSize:   pageSize,
	}
}

// RepairOverReservedCart repairs a single product. A missing product or a
// failed repair is returned as an error.
func (r *Repairer) RepairOverReservedCart(ctx context.Context, productID uint) (*RepairSummary, error) {
	ctx, span := tracing.Tracer("inventory").Start(ctx, "inventory.repair_product")
	defer span.End()
	span.SetAttributes(attribute.Int64("inventory.product_id", int64(productID)))

	summary := &RepairSummary{Scope: product.ProductScope(productID).Key(), ProductsChecked: 1}

	outcome, err := r.repairProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	touched := map[uint]struct{}{}
	var repaired []uint
	r.tally(summary, productID, outcome, touched, &repaired)
	r.settle(ctx, summary, touched, repaired)
	summary.LastProductID = productID
	summary.Completed = true

	if summary.Failed > 0 {
		return summary, summary.Err()
	}
	return summary, nil
}

// RepairAllOverReserved repairs every product in scope whose reserved demand
// exceeds its stock. Failures are isolated per product and per cart.
func (r *Repairer) RepairAllOverReserved(ctx context.Context, scope product.Scope) (*RepairSummary, error) {
	ctx, span := tracing.Tracer("inventory").Start(ctx, "inventory.repair_all")
	defer span.End()
	span.SetAttributes(attribute.String("inventory.scope", scope.Key()))

	summary := &RepairSummary{Scope: scope.Key()}
	touched := map[uint]struct{}{}
	var repaired []uint

	lastID, walkErr := walkProducts(ctx, r.db, scope, r.pageSize, func(ctx context.Context, page []product.Product) error {
		summary.ProductsChecked += len(page)

		reserved, err := r.ledger.ReservedByProduct(ctx, productIDs(page))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			summary.fail(fmt.Errorf("page after product %d: %w", page[0].ID-1, err))
			return nil
		}

		for _, p := range page {
			if reserved[p.ID] <= p.StockQuantity {
				continue
			}
			outcome, err := r.repairProduct(ctx, p.ID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				summary.fail(fmt.Errorf("product %d: %w", p.ID, err))
				continue
			}
			r.tally(summary, p.ID, outcome, touched, &repaired)
		}
		return nil
	})
	summary.LastProductID = lastID

	// Carts touched so far are settled even when the walk stopped early.
	settleCtx := ctx
	if walkErr != nil {
		settleCtx = context.WithoutCancel(ctx)
	}
	r.settle(settleCtx, summary, touched, repaired)
	summary.Completed = walkErr == nil

	r.logger.WithFields(logrus.Fields{
		"scope":             summary.Scope,
		"products_checked":  summary.ProductsChecked,
		"products_repaired": summary.ProductsRepaired,
		"items_capped":      summary.ItemsCapped,
		"items_removed":     summary.ItemsRemoved,
		"carts_deleted":     summary.CartsDeleted,
		"failed":            summary.Failed,
	}).Info("over-reservation repair finished")

	if walkErr != nil {
		span.RecordError(walkErr)
		return summary, walkErr
	}
	return summary, nil
}

func (r *Repairer) tally(summary *RepairSummary, productID uint, outcome productRepair, touched map[uint]struct{}, repaired *[]uint) {
	if !outcome.Repaired {
		return
	}
	summary.ProductsRepaired++
	summary.ItemsCapped += outcome.Capped
	summary.ItemsRemoved += outcome.Removed
	for _, id := range outcome.Carts {
		touched[id] = struct{}{}
	}
	*repaired = append(*repaired, productID)
}

// repairProduct trims one product's reservations inside a transaction that
// holds row locks on the product and its competing cart items.
func (r *Repairer) repairProduct(ctx context.Context, productID uint) (productRepair, error) {
	var outcome productRepair

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p product.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock_quantity").
			First(&p, productID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("product", productID)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		var items []cart.AbandonedCartItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Joins("JOIN abandoned_carts ON abandoned_carts.id = abandoned_cart_items.cart_id").
			Where("abandoned_cart_items.product_id = ? AND abandoned_carts.status = ?", productID, cart.StatusAbandoned).
			Order("abandoned_cart_items.id ASC").
			Find(&items).Error
		if err != nil {
			return fmt.Errorf("failed to load reservations: %w", err)
		}

		total := 0
		reservations := make([]reservation, len(items))
		prices := make(map[uint]decimal.Decimal, len(items))
		for i, item := range items {
			total += item.Quantity
			reservations[i] = reservation{ItemID: item.ID, CartID: item.CartID, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
			prices[item.ID] = item.UnitPrice
		}
		if total <= p.StockQuantity {
			return nil
		}

		carts := map[uint]struct{}{}
		for _, action := range planRepair(reservations, p.StockQuantity) {
			if action.Remove {
				if err := tx.Delete(&cart.AbandonedCartItem{}, action.ItemID).Error; err != nil {
					return fmt.Errorf("failed to remove cart item %d: %w", action.ItemID, err)
				}
				outcome.Removed++
			} else {
				err := tx.Model(&cart.AbandonedCartItem{}).
					Where("id = ?", action.ItemID).
					Updates(map[string]interface{}{
						"quantity":    action.NewQuantity,
						"total_price": cart.LineTotal(action.NewQuantity, prices[action.ItemID]),
					}).Error
				if err != nil {
					return fmt.Errorf("failed to cap cart item %d: %w", action.ItemID, err)
				}
				outcome.Capped++
			}
			carts[action.CartID] = struct{}{}
		}

		outcome.Repaired = true
		for id := range carts {
			outcome.Carts = append(outcome.Carts, id)
		}

		r.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"stock":      p.StockQuantity,
			"reserved":   total,
			"capped":     outcome.Capped,
			"removed":    outcome.Removed,
		}).Info("over-reserved product repaired")
		return nil
	})
	if err != nil {
		return productRepair{}, err
	}
	return outcome, nil
}

// settle recomputes the totals of every touched cart, deleting carts left
// empty, then refreshes the availability of the repaired products.
func (r *Repairer) settle(ctx context.Context, summary *RepairSummary, touched map[uint]struct{}, repaired []uint) {
	cartIDs := make([]uint, 0, len(touched))
	for id := range touched {
		cartIDs = append(cartIDs, id)
	}
	slices.Sort(cartIDs)

	for _, cartID := range cartIDs {
		var totals *cart.Totals
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			totals, err = cart.RecomputeTotals(ctx, tx, cartID)
			return err
		})
		if err != nil {
			summary.fail(fmt.Errorf("cart %d: %w", cartID, err))
			continue
		}
		if totals.Deleted {
			summary.CartsDeleted++
		} else {
			summary.CartsUpdated++
		}
	}

	r.metrics.ObserveRepair(summary.ItemsCapped, summary.ItemsRemoved, summary.CartsDeleted)

	if r.reconciler == nil || len(repaired) == 0 {
		return
	}
	if _, err := r.reconciler.ReconcileProductAvailability(ctx, product.ProductScope(repaired...)); err != nil {
		r.logger.WithError(err).Warn("availability refresh after repair failed")
	}
}

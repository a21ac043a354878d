// internal/domain/inventory/stock.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/retry"
	"gorm.io/gorm"
)

// StockAdjustment is a signed change to a product's total stock
type StockAdjustment struct {
	ProductID uint           `json:"product_id"`
	Delta     int            `json:"adjustment"`
	Reason    MovementReason `json:"reason"`
	Notes     string         `json:"notes"`
	ActorID   uint           `json:"-"`
}

// StockResult is the product after an adjustment and the movement it wrote
type StockResult struct {
	Product  *product.Product   `json:"product"`
	Movement *InventoryMovement `json:"movement"`
}

// DefaultMaxAdjustment bounds manual adjustments when no limit is configured
const DefaultMaxAdjustment = 100_000

// StockConfig bounds manual adjustments and concurrency retries
type StockConfig struct {
	MaxAdjustment int
	Retry         retry.Policy
}

// StockListener is told when products lost stock
type StockListener interface {
	StockReduced(ctx context.Context, productIDs []uint)
}

// StockService is the single path that changes a product's stock quantity
type StockService struct {
	db       *gorm.DB
	cfg      StockConfig
	metrics  *metrics.InventoryMetrics
	logger   logrus.FieldLogger
	listener StockListener
}

// NewStockService creates a stock service
func NewStockService(db *gorm.DB, cfg StockConfig, m *metrics.InventoryMetrics, logger logrus.FieldLogger) *StockService {
	if cfg.MaxAdjustment <= 0 {
		cfg.MaxAdjustment = DefaultMaxAdjustment
	}
	return &StockService{
		db:      db,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// WithStockListener registers a listener notified after committed decreases
func (s *StockService) WithStockListener(listener StockListener) *StockService {
	s.listener = listener
	return s
}

// AdjustStock validates and applies an adjustment in its own transaction,
// retrying when the product changed concurrently.
func (s *StockService) AdjustStock(ctx context.Context, adj StockAdjustment) (*StockResult, error) {
	if adj.Reason == "" {
		adj.Reason = ReasonAdjustment
	}
	if err := s.validate(adj); err != nil {
		return nil, err
	}

	policy := s.cfg.Retry
	policy.OnRetry = func(attempt int, err error) {
		s.metrics.IncRetry("adjust_stock")
		s.logger.WithFields(logrus.Fields{
			"product_id": adj.ProductID,
			"attempt":    attempt,
		}).WithError(err).Debug("retrying stock adjustment")
	}

	var result *StockResult
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.AdjustStockInTx(ctx, tx, adj)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdjustment(string(result.Movement.Type))
	if result.Movement.NewStock < result.Movement.PreviousStock && s.listener != nil {
		s.listener.StockReduced(ctx, []uint{adj.ProductID})
	}
	return result, nil
}

// AdjustForOrder applies an order-driven delta inside the order transition's
// transaction. Retrying is left to the caller.
func (s *StockService) AdjustForOrder(ctx context.Context, tx *gorm.DB, productID uint, delta int, reason string, actorID uint) error {
	adj := StockAdjustment{
		ProductID: productID,
		Delta:     delta,
		Reason:    MovementReason(reason),
		ActorID:   actorID,
	}
	if !adj.Reason.Valid() {
		return apperrors.Validation(fmt.Sprintf("unknown movement reason %q", reason))
	}
	result, err := s.AdjustStockInTx(ctx, tx, adj)
	if err != nil {
		return err
	}
	s.metrics.IncAdjustment(string(result.Movement.Type))
	return nil
}

// AdjustStockInTx applies an adjustment within tx. The new quantity is clamped
// at zero, availability is derived from current demand, and exactly one
// movement row is appended. A lost version race returns a
// CONCURRENT_MODIFICATION error.
func (s *StockService) AdjustStockInTx(ctx context.Context, tx *gorm.DB, adj StockAdjustment) (*StockResult, error) {
	tx = tx.WithContext(ctx)

	var p product.Product
	if err := tx.First(&p, adj.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", adj.ProductID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	previous := p.StockQuantity
	next := previous + adj.Delta
	clamped := false
	if next < 0 {
		next = 0
		clamped = true
	}

	ledger := NewLedgerReader(tx)
	reserved, err := ledger.ReservedQuantity(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	inFlight, err := ledger.InFlightQuantity(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	computed := ComputeAvailability(next, reserved, inFlight)

	result := tx.Model(&product.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"stock_quantity": next,
			"availability":   computed.Status,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ConcurrentModification("product", p.ID)
	}
	p.StockQuantity = next
	p.Availability = computed.Status
	p.Version++

	quantity := adj.Delta
	if quantity < 0 {
		quantity = -quantity
	}
	movement := &InventoryMovement{
		ProductID:     p.ID,
		Type:          movementTypeFor(adj.Delta),
		Reason:        adj.Reason,
		Quantity:      quantity,
		PreviousStock: previous,
		NewStock:      next,
		Clamped:       clamped,
		Notes:         adj.Notes,
		CreatedBy:     adj.ActorID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}

	if err := syncAlerts(tx, &p, computed.AvailableStock); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id":     p.ID,
		"delta":          adj.Delta,
		"previous_stock": previous,
		"new_stock":      next,
		"clamped":        clamped,
		"availability":   computed.Status,
		"reason":         adj.Reason,
	}).Info("stock adjusted")

	return &StockResult{Product: &p, Movement: movement}, nil
}

func (s *StockService) validate(adj StockAdjustment) error {
	if adj.ProductID == 0 {
		return apperrors.Validation("product id is required")
	}
	if !adj.Reason.Valid() {
		return apperrors.Validation(fmt.Sprintf("unknown movement reason %q", adj.Reason))
	}
	if adj.Delta > s.cfg.MaxAdjustment || adj.Delta < -s.cfg.MaxAdjustment {
		return apperrors.Validation(fmt.Sprintf("adjustment must be between -%d and %d", s.cfg.MaxAdjustment, s.cfg.MaxAdjustment)).
			WithDetails(map[string]interface{}{"adjustment": adj.Delta})
	}
	return nil
}

// syncAlerts keeps at most one open alert per product, matching its current
// stock level, and resolves open alerts once the product is healthy again.
func syncAlerts(tx *gorm.DB, p *product.Product, available int) error {
	var want AlertType
	var message string
	switch {
	case p.StockQuantity <= 0:
		want = AlertTypeOutOfStock
		message = fmt.Sprintf("Product %d is out of stock", p.ID)
	case IsLowStock(available, p.LowStockThreshold):
		want = AlertTypeLowStock
		message = fmt.Sprintf("Product %d is running low (Available: %d, Threshold: %d)", p.ID, available, p.LowStockThreshold)
	}

	var open []StockAlert
	if err := tx.Where("product_id = ? AND is_resolved = ?", p.ID, false).Find(&open).Error; err != nil {
		return fmt.Errorf("failed to load stock alerts: %w", err)
	}

	var stale []uint
	exists := false
	for _, alert := range open {
		if alert.AlertType == want {
			exists = true
			continue
		}
		stale = append(stale, alert.ID)
	}

	if len(stale) > 0 {
		now := time.Now()
		err := tx.Model(&StockAlert{}).
			Where("id IN ?", stale).
			Updates(map[string]interface{}{"is_resolved": true, "resolved_at": now}).Error
		if err != nil {
			return fmt.Errorf("failed to resolve stock alerts: %w", err)
		}
	}

	if want == "" || exists {
		return nil
	}
	alert := StockAlert{ProductID: p.ID, AlertType: want, Message: message}
	if err := tx.Create(&alert).Error; err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}
	return nil
}

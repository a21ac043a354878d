// internal/domain/inventory/stats.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// InventoryStats aggregates stock and demand over a scope
type InventoryStats struct {
	TotalProducts      int `json:"total_products"`
	TotalStockQuantity int `json:"total_stock_quantity"`
	DeliveredQuantity  int `json:"delivered_quantity"`
	ReservedQuantity   int `json:"reserved_quantity"`
	ShippingQuantity   int `json:"shipping_quantity"`
	LowStockProducts   int `json:"low_stock_products"`
}

// ProductInventory is the computed inventory detail of one product
type ProductInventory struct {
	ProductID         uint                 `json:"product_id"`
	TotalStock        int                  `json:"total_stock"`
	AvailableStock    int                  `json:"available_stock"`
	DeliveredQuantity int                  `json:"delivered_quantity"`
	ReservedQuantity  int                  `json:"reserved_quantity"`
	ShippingQuantity  int                  `json:"shipping_quantity"`
	Status            product.Availability `json:"status"`
	StoredStatus      product.Availability `json:"stored_status"`
	LowStock          bool                 `json:"low_stock"`
	LowStockThreshold int                  `json:"low_stock_threshold"`
}

// StatsService answers read-only inventory queries. Reads never write.
type StatsService struct {
	db            *gorm.DB
	ledger        *LedgerReader
	pageSize      int
	movementLimit int
}

// NewStatsService creates a stats service
func NewStatsService(db *gorm.DB, pageSize, movementLimit int) *StatsService {
	if movementLimit <= 0 {
		movementLimit = 50
	}
	return &StatsService{
		db:            db,
		ledger:        NewLedgerReader(db),
		pageSize:      pageSize,
		movementLimit: movementLimit,
	}
}

// InventoryStats sums stock and demand for every product in scope
func (s *StatsService) InventoryStats(ctx context.Context, scope product.Scope) (*InventoryStats, error) {
	stats := &InventoryStats{}

	_, err := walkProducts(ctx, s.db, scope, s.pageSize, func(ctx context.Context, page []product.Product) error {
		demand, err := s.ledger.DemandByProduct(ctx, productIDs(page))
		if err != nil {
			return err
		}
		for _, p := range page {
			d := demand[p.ID]
			stats.TotalProducts++
			stats.TotalStockQuantity += p.StockQuantity
			stats.DeliveredQuantity += d.Delivered
			stats.ReservedQuantity += d.Reserved
			stats.ShippingQuantity += d.InFlight

			computed := ComputeAvailability(p.StockQuantity, d.Reserved, d.InFlight)
			if IsLowStock(computed.AvailableStock, p.LowStockThreshold) {
				stats.LowStockProducts++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ProductInventory computes the inventory detail of one product
func (s *StatsService) ProductInventory(ctx context.Context, productID uint) (*ProductInventory, error) {
	p, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	demand, err := s.ledger.Demand(ctx, productID)
	if err != nil {
		return nil, err
	}
	computed := ComputeAvailability(p.StockQuantity, demand.Reserved, demand.InFlight)

	return &ProductInventory{
		ProductID:         p.ID,
		TotalStock:        p.StockQuantity,
		AvailableStock:    computed.AvailableStock,
		DeliveredQuantity: demand.Delivered,
		ReservedQuantity:  demand.Reserved,
		ShippingQuantity:  demand.InFlight,
		Status:            computed.Status,
		StoredStatus:      p.Availability,
		LowStock:          IsLowStock(computed.AvailableStock, p.LowStockThreshold),
		LowStockThreshold: p.LowStockThreshold,
	}, nil
}

// Movements lists a product's movements newest first
func (s *StatsService) Movements(ctx context.Context, productID uint, limit int) ([]InventoryMovement, error) {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.movementLimit {
		limit = s.movementLimit
	}

	var movements []InventoryMovement
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// Alerts lists stock alerts for products in scope
func (s *StatsService) Alerts(ctx context.Context, scope product.Scope, unresolvedOnly bool) ([]StockAlert, error) {
	query := s.db.WithContext(ctx).Model(&StockAlert{}).
		Joins("JOIN products ON products.id = stock_alerts.product_id AND products.deleted_at IS NULL")
	query = scope.Apply(query)
	if unresolvedOnly {
		query = query.Where("stock_alerts.is_resolved = ?", false)
	}

	var alerts []StockAlert
	if err := query.Order("stock_alerts.created_at DESC, stock_alerts.id DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock alerts: %w", err)
	}
	return alerts, nil
}

func (s *StatsService) loadProduct(ctx context.Context, productID uint) (*product.Product, error) {
	var p product.Product
	err := s.db.WithContext(ctx).
		Select("id", "stock_quantity", "low_stock_threshold", "availability").
		First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}

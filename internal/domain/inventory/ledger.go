// internal/domain/inventory/ledger.go
package inventory

import (
	"context"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"gorm.io/gorm"
)

// LedgerReader sums demand from the order-item and abandoned-cart-item
// ledgers. Missing rows sum to zero.
type LedgerReader struct {
	db *gorm.DB
}

// NewLedgerReader creates a ledger reader over db
func NewLedgerReader(db *gorm.DB) *LedgerReader {
	return &LedgerReader{db: db}
}

// WithTx returns a reader bound to tx
func (l *LedgerReader) WithTx(tx *gorm.DB) *LedgerReader {
	return &LedgerReader{db: tx}
}

// Demand holds the three demand sums for one product
type Demand struct {
	Reserved  int `json:"reserved_quantity"`
	InFlight  int `json:"shipping_quantity"`
	Delivered int `json:"delivered_quantity"`
}

type productQuantity struct {
	ProductID uint
	Total     int64
}

// ReservedQuantity sums item quantities of abandoned carts
func (l *LedgerReader) ReservedQuantity(ctx context.Context, productID uint) (int, error) {
	var total int64
	err := l.reservedQuery(ctx).
		Where("abandoned_cart_items.product_id = ?", productID).
		Select("COALESCE(SUM(abandoned_cart_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum reserved quantity: %w", err)
	}
	return int(total), nil
}

// InFlightQuantity sums item quantities of pending, processing and shipped orders
func (l *LedgerReader) InFlightQuantity(ctx context.Context, productID uint) (int, error) {
	return l.orderQuantity(ctx, productID, order.InFlightStatuses())
}

// DeliveredQuantity sums item quantities of delivered orders
func (l *LedgerReader) DeliveredQuantity(ctx context.Context, productID uint) (int, error) {
	return l.orderQuantity(ctx, productID, []order.OrderStatus{order.OrderStatusDelivered})
}

// Demand returns all three sums for one product
func (l *LedgerReader) Demand(ctx context.Context, productID uint) (Demand, error) {
	var d Demand
	var err error
	if d.Reserved, err = l.ReservedQuantity(ctx, productID); err != nil {
		return Demand{}, err
	}
	if d.InFlight, err = l.InFlightQuantity(ctx, productID); err != nil {
		return Demand{}, err
	}
	if d.Delivered, err = l.DeliveredQuantity(ctx, productID); err != nil {
		return Demand{}, err
	}
	return d, nil
}

// ReservedByProduct sums reserved quantities for a batch of products
func (l *LedgerReader) ReservedByProduct(ctx context.Context, productIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []productQuantity
	err := l.reservedQuery(ctx).
		Where("abandoned_cart_items.product_id IN ?", productIDs).
		Select("abandoned_cart_items.product_id AS product_id, SUM(abandoned_cart_items.quantity) AS total").
		Group("abandoned_cart_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum reserved quantities: %w", err)
	}
	for _, row := range rows {
		out[row.ProductID] = int(row.Total)
	}
	return out, nil
}

// InFlightByProduct sums in-flight quantities for a batch of products
func (l *LedgerReader) InFlightByProduct(ctx context.Context, productIDs []uint) (map[uint]int, error) {
	return l.orderQuantities(ctx, productIDs, order.InFlightStatuses())
}

// DeliveredByProduct sums delivered quantities for a batch of products
func (l *LedgerReader) DeliveredByProduct(ctx context.Context, productIDs []uint) (map[uint]int, error) {
	return l.orderQuantities(ctx, productIDs, []order.OrderStatus{order.OrderStatusDelivered})
}

// DemandByProduct returns all three sums for a batch of products
func (l *LedgerReader) DemandByProduct(ctx context.Context, productIDs []uint) (map[uint]Demand, error) {
	reserved, err := l.ReservedByProduct(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	inFlight, err := l.InFlightByProduct(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	delivered, err := l.DeliveredByProduct(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[uint]Demand, len(productIDs))
	for _, id := range productIDs {
		out[id] = Demand{
			Reserved:  reserved[id],
			InFlight:  inFlight[id],
			Delivered: delivered[id],
		}
	}
	return out, nil
}

func (l *LedgerReader) reservedQuery(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).
		Model(&cart.AbandonedCartItem{}).
		Joins("JOIN abandoned_carts ON abandoned_carts.id = abandoned_cart_items.cart_id").
		Where("abandoned_carts.status = ?", cart.StatusAbandoned)
}

func (l *LedgerReader) orderQuery(ctx context.Context, statuses []order.OrderStatus) *gorm.DB {
	return l.db.WithContext(ctx).
		Model(&order.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", statuses)
}

func (l *LedgerReader) orderQuantity(ctx context.Context, productID uint, statuses []order.OrderStatus) (int, error) {
	var total int64
	err := l.orderQuery(ctx, statuses).
		Where("order_items.product_id = ?", productID).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum order quantity: %w", err)
	}
	return int(total), nil
}

func (l *LedgerReader) orderQuantities(ctx context.Context, productIDs []uint, statuses []order.OrderStatus) (map[uint]int, error) {
	out := make(map[uint]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []productQuantity
	err := l.orderQuery(ctx, statuses).
		Where("order_items.product_id IN ?", productIDs).
		Select("order_items.product_id AS product_id, SUM(order_items.quantity) AS total").
		Group("order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum order quantities: %w", err)
	}
	for _, row := range rows {
		out[row.ProductID] = int(row.Total)
	}
	return out, nil
}

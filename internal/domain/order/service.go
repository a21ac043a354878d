// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/pagination"
	"github.com/your-org/marketplace-backend/internal/pkg/retry"
	"gorm.io/gorm"
)

// Stock movement reasons used by order fulfilment
const (
	StockReasonSale   = "sale"
	StockReasonReturn = "return"
)

// StockAdjuster applies a signed stock delta inside the caller's transaction
type StockAdjuster interface {
	AdjustForOrder(ctx context.Context, tx *gorm.DB, productID uint, delta int, reason string, actorID uint) error
}

// DemandListener is told which products' in-flight demand changed
type DemandListener interface {
	DemandChanged(ctx context.Context, productIDs []uint)
}

// StockListener is told which products lost stock through delivery
type StockListener interface {
	StockReduced(ctx context.Context, productIDs []uint)
}

// Service handles order business logic
type Service struct {
	db       *gorm.DB
	stock    StockAdjuster
	listener DemandListener
	reduced  StockListener
	retry    retry.Policy
	logger   logrus.FieldLogger
}

// NewService creates a new order service
func NewService(db *gorm.DB, stock StockAdjuster, policy retry.Policy, logger logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		stock:  stock,
		retry:  policy,
		logger: logger,
	}
}

// WithDemandListener registers a listener notified after committed changes
func (s *Service) WithDemandListener(listener DemandListener) *Service {
	s.listener = listener
	return s
}

// WithStockListener registers a listener notified after a committed delivery
func (s *Service) WithStockListener(listener StockListener) *Service {
	s.reduced = listener
	return s
}

// CreateOrderRequest records an order placed by the external checkout flow
type CreateOrderRequest struct {
	SellerID      uint              `json:"seller_id" binding:"required"`
	CustomerEmail string            `json:"customer_email" binding:"required,email"`
	Status        OrderStatus       `json:"status" binding:"omitempty,order_status"`
	Notes         string            `json:"notes" binding:"max=2000"`
	Items         []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItem is one line of a new order
type CreateOrderItem struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdateStatusRequest represents a status transition
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required,order_status"`
	Comment string      `json:"comment" binding:"max=1000"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page     int         `form:"page,default=1"`
	Limit    int         `form:"limit,default=20"`
	SellerID uint        `form:"seller_id"`
	Status   OrderStatus `form:"status"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Create records a new order with its items. New orders may only start in an
// in-flight status; delivery has to go through UpdateStatus so stock moves.
func (s *Service) Create(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	status := req.Status
	if status == "" {
		status = OrderStatusPending
	}
	if !status.InFlight() {
		return nil, apperrors.Validation(fmt.Sprintf("orders cannot be created in status %s", status))
	}

	var created Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		items := make([]OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			if line.UnitPrice.IsNegative() {
				return apperrors.Validation("unit_price must not be negative")
			}

			var p product.Product
			if err := tx.Select("id", "sku", "name").First(&p, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("product", line.ProductID)
				}
				return fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
			}

			lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, OrderItem{
				ProductID:  p.ID,
				SKU:        p.SKU,
				Name:       p.Name,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				TotalPrice: lineTotal,
			})
		}

		now := time.Now().UTC()
		created = Order{
			OrderNumber:   "ORD-PENDING-" + uuid.NewString(),
			SellerID:      req.SellerID,
			CustomerEmail: req.CustomerEmail,
			Status:        status,
			TotalAmount:   total,
			Notes:         req.Notes,
			Items:         items,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		created.OrderNumber = generateOrderNumber(created.ID, now)
		if err := tx.Model(&created).Update("order_number", created.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to update order number: %w", err)
		}

		history := OrderStatusHistory{
			OrderID:   created.ID,
			Status:    status,
			Comment:   "Order created",
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order.Items)
	return order, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	page, limit := pagination.Normalize(req.Page, req.Limit)

	query := s.db.WithContext(ctx).Model(&Order{})
	if req.SellerID > 0 {
		query = query.Where("seller_id = ?", req.SellerID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.Session(&gorm.Session{}).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination.New(page, limit, total),
	}, nil
}

// UpdateStatus moves an order to a new status. Entering delivered removes
// the items from on-hand stock; delivered -> returned puts them back. The
// transition and its stock movements commit together or not at all.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, req *UpdateStatusRequest, actorID uint) (*Order, error) {
	if !req.Status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown order status %q", req.Status))
	}

	policy := s.retry
	policy.OnRetry = func(attempt int, err error) {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"attempt":  attempt,
			"error":    err,
		}).Warn("retrying order status update")
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.transition(ctx, tx, orderID, req, actorID)
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated.Items)
	if req.Status == OrderStatusDelivered && s.reduced != nil {
		s.reduced.StockReduced(ctx, productIDsOf(updated.Items))
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   req.Status,
		"actor_id": actorID,
	}).Info("order status updated")

	return updated, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, orderID uint, req *UpdateStatusRequest, actorID uint) error {
	var order Order
	if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	from, to := order.Status, req.Status
	if !from.CanTransitionTo(to) {
		return apperrors.Newf(apperrors.CodeConflict, "invalid status transition from %s to %s", from, to)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": to}
	switch to {
	case OrderStatusProcessing:
		updates["processed_at"] = now
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	case OrderStatusReturned:
		updates["returned_at"] = now
	}

	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ConcurrentModification("order", orderID)
	}

	// Stock moves after the status write so availability is derived from the
	// post-transition in-flight demand.
	switch {
	case to == OrderStatusDelivered:
		if err := s.moveStock(ctx, tx, order.Items, -1, StockReasonSale, actorID); err != nil {
			return err
		}
	case from == OrderStatusDelivered && to == OrderStatusReturned:
		if err := s.moveStock(ctx, tx, order.Items, 1, StockReasonReturn, actorID); err != nil {
			return err
		}
	}

	history := OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		Status:     to,
		Comment:    req.Comment,
		CreatedBy:  actorID,
		CreatedAt:  now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, items []OrderItem) {
	if s.listener == nil || len(items) == 0 {
		return
	}
	s.listener.DemandChanged(ctx, productIDsOf(items))
}

func productIDsOf(items []OrderItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// moveStock applies sign*quantity per product, one adjustment per product in
// ascending product id order.
func (s *Service) moveStock(ctx context.Context, tx *gorm.DB, items []OrderItem, sign int, reason string, actorID uint) error {
	if s.stock == nil {
		return fmt.Errorf("order service has no stock adjuster")
	}

	quantities := make(map[uint]int, len(items))
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}
	productIDs := make([]uint, 0, len(quantities))
	for id := range quantities {
		productIDs = append(productIDs, id)
	}
	slices.Sort(productIDs)

	for _, id := range productIDs {
		if err := s.stock.AdjustForOrder(ctx, tx, id, sign*quantities[id], reason, actorID); err != nil {
			return fmt.Errorf("failed to adjust stock for product %d: %w", id, err)
		}
	}
	return nil
}

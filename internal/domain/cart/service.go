// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// ReservationListener is told which products' reserved demand changed
type ReservationListener interface {
	ReservationsChanged(ctx context.Context, productIDs []uint)
}

// Service handles abandoned cart business logic
type Service struct {
	db       *gorm.DB
	listener ReservationListener
	logger   logrus.FieldLogger
}

// NewService creates a new abandoned cart service
func NewService(db *gorm.DB, logger logrus.FieldLogger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// WithReservationListener registers a listener notified after committed changes
func (s *Service) WithReservationListener(listener ReservationListener) *Service {
	s.listener = listener
	return s
}

// SyncCartRequest creates or replaces an abandoned cart and its items
type SyncCartRequest struct {
	CartNumber    string         `json:"cart_number" binding:"omitempty,max=64"`
	SellerID      uint           `json:"seller_id"`
	CustomerID    *uint          `json:"customer_id"`
	CustomerName  string         `json:"customer_name" binding:"max=255"`
	CustomerEmail string         `json:"customer_email" binding:"required,email"`
	Notes         string         `json:"notes" binding:"max=2000"`
	Items         []SyncCartItem `json:"items" binding:"required,min=1,dive"`
}

// SyncCartItem is one line of a synced cart
type SyncCartItem struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdateStatusRequest represents a cart status change
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,cart_status"`
}

// ListRequest represents cart list query parameters
type ListRequest struct {
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=20"`
	SellerID uint   `form:"seller_id"`
	Status   Status `form:"status"`
	Search   string `form:"search"`
}

// ListResponse represents cart list response with pagination
type ListResponse struct {
	Carts      []AbandonedCart       `json:"carts"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Sync upserts a cart by cart number and replaces its items. Capacity is not
// checked here; over-reservation is repaired separately.
func (s *Service) Sync(ctx context.Context, req *SyncCartRequest) (*AbandonedCart, error) {
	if req.SellerID == 0 {
		return nil, apperrors.Validation("seller_id is required")
	}

	cartNumber := req.CartNumber
	if cartNumber == "" {
		cartNumber = "AC-" + strings.ToUpper(uuid.NewString()[:12])
	}

	var cartID uint
	var touched []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AbandonedCart
		err := tx.Where("cart_number = ?", cartNumber).First(&existing).Error
		switch {
		case err == nil:
			if existing.SellerID != req.SellerID {
				return apperrors.Validation("cart number belongs to another seller")
			}
			if existing.Status != StatusAbandoned {
				return apperrors.Newf(apperrors.CodeConflict, "cart %s is %s and can no longer be synced", cartNumber, existing.Status)
			}
			var previous []uint
			if err := tx.Model(&AbandonedCartItem{}).Where("cart_id = ?", existing.ID).Pluck("product_id", &previous).Error; err != nil {
				return fmt.Errorf("failed to load cart items: %w", err)
			}
			touched = append(touched, previous...)
			if err := tx.Where("cart_id = ?", existing.ID).Delete(&AbandonedCartItem{}).Error; err != nil {
				return fmt.Errorf("failed to clear cart items: %w", err)
			}
			updates := map[string]interface{}{
				"customer_id":    req.CustomerID,
				"customer_name":  req.CustomerName,
				"customer_email": req.CustomerEmail,
				"notes":          req.Notes,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update cart: %w", err)
			}
			cartID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := AbandonedCart{
				CartNumber:    cartNumber,
				SellerID:      req.SellerID,
				CustomerID:    req.CustomerID,
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
				Status:        StatusAbandoned,
				CartValue:     decimal.Zero,
				Notes:         req.Notes,
			}
			if err := tx.Create(&created).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
			cartID = created.ID
		default:
			return fmt.Errorf("failed to load cart: %w", err)
		}

		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return apperrors.Validation("quantity must be positive")
			}
			if line.UnitPrice.IsNegative() {
				return apperrors.Validation("unit_price must not be negative")
			}

			var p product.Product
			if err := tx.Select("id", "name", "seller_id").First(&p, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("product", line.ProductID)
				}
				return fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
			}
			if p.SellerID != req.SellerID {
				return apperrors.Validation(fmt.Sprintf("product %d does not belong to seller %d", p.ID, req.SellerID))
			}

			item := AbandonedCartItem{
				CartID:      cartID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				TotalPrice:  LineTotal(line.Quantity, line.UnitPrice),
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
			touched = append(touched, p.ID)
		}

		_, err = RecomputeTotals(ctx, tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"cart_id":     cartID,
		"cart_number": cartNumber,
		"items":       len(req.Items),
	}).Debug("abandoned cart synced")

	s.notify(ctx, touched)
	return s.Get(ctx, cartID)
}

// Get retrieves a cart with its items
func (s *Service) Get(ctx context.Context, id uint) (*AbandonedCart, error) {
	var cart AbandonedCart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&cart, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("cart", id)
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return &cart, nil
}

// List retrieves carts with filtering and pagination
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	page, limit := pagination.Normalize(req.Page, req.Limit)

	query := s.db.WithContext(ctx).Model(&AbandonedCart{})
	if req.SellerID > 0 {
		query = query.Where("seller_id = ?", req.SellerID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(cart_number) LIKE ?", search, search, search)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count carts: %w", err)
	}

	var carts []AbandonedCart
	err := query.Session(&gorm.Session{}).
		Preload("Items").
		Order("updated_at DESC, id DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&carts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve carts: %w", err)
	}

	return &ListResponse{
		Carts:      carts,
		Pagination: pagination.New(page, limit, total),
	}, nil
}

// UpdateStatus moves an abandoned cart to recovered or expired
func (s *Service) UpdateStatus(ctx context.Context, id uint, status Status) (*AbandonedCart, error) {
	if !status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown cart status %q", status))
	}

	var touched []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart AbandonedCart
		if err := tx.First(&cart, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("cart", id)
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if cart.Status == status {
			return nil
		}
		if cart.Status != StatusAbandoned {
			return apperrors.Newf(apperrors.CodeConflict, "cart %d is already %s", id, cart.Status)
		}

		updates := map[string]interface{}{"status": status}
		if status == StatusRecovered {
			updates["recovered_at"] = time.Now().UTC()
		}
		result := tx.Model(&AbandonedCart{}).
			Where("id = ? AND status = ?", id, cart.Status).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update cart status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ConcurrentModification("cart", id)
		}

		return tx.Model(&AbandonedCartItem{}).Where("cart_id = ?", id).Pluck("product_id", &touched).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, touched)
	return s.Get(ctx, id)
}

// Delete removes a cart and its items
func (s *Service) Delete(ctx context.Context, id uint) error {
	var touched []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart AbandonedCart
		if err := tx.Select("id", "status").First(&cart, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("cart", id)
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if cart.Status == StatusAbandoned {
			if err := tx.Model(&AbandonedCartItem{}).Where("cart_id = ?", id).Pluck("product_id", &touched).Error; err != nil {
				return fmt.Errorf("failed to load cart items: %w", err)
			}
		}
		if err := tx.Where("cart_id = ?", id).Delete(&AbandonedCartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		if err := tx.Delete(&AbandonedCart{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithField("cart_id", id).Info("abandoned cart deleted")
	s.notify(ctx, touched)
	return nil
}

func (s *Service) notify(ctx context.Context, productIDs []uint) {
	if s.listener == nil || len(productIDs) == 0 {
		return
	}
	s.listener.ReservationsChanged(ctx, productIDs)
}

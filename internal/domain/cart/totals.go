// internal/domain/cart/totals.go
package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals is the outcome of a recompute
type Totals struct {
	CartID    uint            `json:"cart_id"`
	ItemCount int             `json:"item_count"`
	CartValue decimal.Decimal `json:"cart_value"`
	Deleted   bool            `json:"deleted"`
}

// RecomputeTotals re-derives ItemCount and CartValue from the cart's current
// items inside tx. A cart left with no items is deleted.
func RecomputeTotals(ctx context.Context, tx *gorm.DB, cartID uint) (*Totals, error) {
	var items []AbandonedCartItem
	if err := tx.WithContext(ctx).Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}

	totals := &Totals{CartID: cartID, CartValue: decimal.Zero}

	if len(items) == 0 {
		if err := tx.WithContext(ctx).Delete(&AbandonedCart{}, cartID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete empty cart: %w", err)
		}
		totals.Deleted = true
		return totals, nil
	}

	for _, item := range items {
		totals.ItemCount += item.Quantity
		totals.CartValue = totals.CartValue.Add(item.TotalPrice)
	}

	err := tx.WithContext(ctx).Model(&AbandonedCart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"item_count": totals.ItemCount,
			"cart_value": totals.CartValue,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update cart totals: %w", err)
	}

	return totals, nil
}

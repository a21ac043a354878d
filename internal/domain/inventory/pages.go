// internal/domain/inventory/pages.go
package inventory

import (
	"context"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/domain/product"
	"gorm.io/gorm"
)

const defaultPageSize = 200

// walkProducts visits the products in scope in ascending id order, one keyset
// page at a time, starting after scope.AfterID. It stops between pages when
// ctx is cancelled and returns the last id fully handed to fn.
func walkProducts(ctx context.Context, db *gorm.DB, scope product.Scope, pageSize int, fn func(ctx context.Context, page []product.Product) error) (uint, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	cursor := scope.AfterID

	for {
		if err := ctx.Err(); err != nil {
			return cursor, err
		}

		var page []product.Product
		err := scope.Apply(db.WithContext(ctx).Model(&product.Product{})).
			Select("id", "seller_id", "category_id", "stock_quantity", "low_stock_threshold", "availability", "version").
			Where("products.id > ?", cursor).
			Order("products.id ASC").
			Limit(pageSize).
			Find(&page).Error
		if err != nil {
			return cursor, fmt.Errorf("failed to load product page after %d: %w", cursor, err)
		}
		if len(page) == 0 {
			return cursor, nil
		}

		if err := fn(ctx, page); err != nil {
			return cursor, err
		}
		cursor = page[len(page)-1].ID

		if len(page) < pageSize {
			return cursor, nil
		}
	}
}

func productIDs(page []product.Product) []uint {
	ids := make([]uint, len(page))
	for i := range page {
		ids[i] = page[i].ID
	}
	return ids
}

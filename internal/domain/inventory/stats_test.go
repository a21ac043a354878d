package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

func TestInventoryStatsAggregatesScope(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, SellerID: 1, Stock: 10})
	seedProduct(t, db, productSeed{ID: 2, SellerID: 1, Stock: 20})
	seedProduct(t, db, productSeed{ID: 3, SellerID: 1, Stock: 3})
	seedProduct(t, db, productSeed{ID: 4, SellerID: 2, Stock: 100})
	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 1, Quantity: 3}, line{ProductID: 4, Quantity: 1})
	seedOrder(t, db, order.OrderStatusShipped, line{ProductID: 1, Quantity: 4})
	seedOrder(t, db, order.OrderStatusDelivered, line{ProductID: 2, Quantity: 6})

	stats, err := NewStatsService(db, 2, 50).InventoryStats(context.Background(), product.SellerScope(1))
	require.NoError(t, err)

	assert.Equal(t, &InventoryStats{
		TotalProducts:      3,
		TotalStockQuantity: 33,
		DeliveredQuantity:  6,
		ReservedQuantity:   3,
		ShippingQuantity:   4,
		// Product 1 has 3 available and product 3 has 3 on hand.
		LowStockProducts: 2,
	}, stats)
}

func TestInventoryStatsOfEmptyScope(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 10})

	stats, err := NewStatsService(db, 2, 50).InventoryStats(context.Background(), product.CategoryScope(nil))
	require.NoError(t, err)
	assert.Equal(t, &InventoryStats{}, stats)
}

func TestProductInventoryDoesNotWrite(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 10, Availability: product.AvailabilityUnavailable})
	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 1, Quantity: 3})
	seedOrder(t, db, order.OrderStatusPending, line{ProductID: 1, Quantity: 4})
	seedOrder(t, db, order.OrderStatusDelivered, line{ProductID: 1, Quantity: 2})
	before := loadProduct(t, db, 1)

	detail, err := NewStatsService(db, 2, 50).ProductInventory(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 10, detail.TotalStock)
	assert.Equal(t, 3, detail.AvailableStock)
	assert.Equal(t, 3, detail.ReservedQuantity)
	assert.Equal(t, 4, detail.ShippingQuantity)
	assert.Equal(t, 2, detail.DeliveredQuantity)
	assert.Equal(t, product.AvailabilityAvailable, detail.Status)
	assert.Equal(t, product.AvailabilityUnavailable, detail.StoredStatus)
	assert.True(t, detail.LowStock)

	after := loadProduct(t, db, 1)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Availability, after.Availability)
}

func TestProductInventoryUnknownProduct(t *testing.T) {
	db := newTestDB(t)

	_, err := NewStatsService(db, 2, 50).ProductInventory(context.Background(), 5)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMovementsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 5})
	stock := newTestStockService(db)
	ctx := context.Background()
	for _, delta := range []int{1, 2, 3} {
		_, err := stock.AdjustStock(ctx, StockAdjustment{ProductID: 1, Delta: delta})
		require.NoError(t, err)
	}
	stats := NewStatsService(db, 2, 2)

	movements, err := stats.Movements(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, 3, movements[0].Quantity)
	assert.Equal(t, 2, movements[1].Quantity)

	_, err = stats.Movements(ctx, 2, 10)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAlertsFilteredByScope(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, SellerID: 1, Stock: 10})
	seedProduct(t, db, productSeed{ID: 2, SellerID: 2, Stock: 10})
	stock := newTestStockService(db)
	ctx := context.Background()
	_, err := stock.AdjustStock(ctx, StockAdjustment{ProductID: 1, Delta: -10})
	require.NoError(t, err)
	_, err = stock.AdjustStock(ctx, StockAdjustment{ProductID: 2, Delta: -10})
	require.NoError(t, err)

	alerts, err := NewStatsService(db, 2, 50).Alerts(ctx, product.SellerScope(1), true)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, uint(1), alerts[0].ProductID)
	assert.Equal(t, AlertTypeOutOfStock, alerts[0].AlertType)
}

package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

func TestLedgerSumsAreZeroWithoutRows(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 4})
	ledger := NewLedgerReader(db)

	demand, err := ledger.Demand(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Demand{}, demand)

	// Unknown products also sum to zero.
	reserved, err := ledger.ReservedQuantity(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestLedgerFiltersByStatus(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 50})
	seedProduct(t, db, productSeed{ID: 2, Stock: 50})

	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 1, Quantity: 2}, line{ProductID: 2, Quantity: 1})
	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 1, Quantity: 3})
	seedCart(t, db, cart.StatusRecovered, line{ProductID: 1, Quantity: 7})
	seedCart(t, db, cart.StatusExpired, line{ProductID: 1, Quantity: 11})

	seedOrder(t, db, order.OrderStatusPending, line{ProductID: 1, Quantity: 1})
	seedOrder(t, db, order.OrderStatusProcessing, line{ProductID: 1, Quantity: 2})
	seedOrder(t, db, order.OrderStatusShipped, line{ProductID: 1, Quantity: 4}, line{ProductID: 2, Quantity: 6})
	seedOrder(t, db, order.OrderStatusDelivered, line{ProductID: 1, Quantity: 8})
	seedOrder(t, db, order.OrderStatusCancelled, line{ProductID: 1, Quantity: 16})
	seedOrder(t, db, order.OrderStatusReturned, line{ProductID: 1, Quantity: 32})

	ledger := NewLedgerReader(db)
	ctx := context.Background()

	demand, err := ledger.Demand(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Demand{Reserved: 5, InFlight: 7, Delivered: 8}, demand)

	byProduct, err := ledger.DemandByProduct(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, Demand{Reserved: 5, InFlight: 7, Delivered: 8}, byProduct[1])
	assert.Equal(t, Demand{Reserved: 1, InFlight: 6}, byProduct[2])
	assert.Equal(t, Demand{}, byProduct[3])

	reserved, err := ledger.ReservedByProduct(ctx, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{1: 5, 2: 1}, reserved)
}

func TestLedgerByProductWithNoIDs(t *testing.T) {
	db := newTestDB(t)

	reserved, err := NewLedgerReader(db).ReservedByProduct(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reserved)
}

package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
)

func TestReconcileCorrectsStaleFlags(t *testing.T) {
	db := newTestDB(t)
	// Stored available, but 5 - 2 - 3 leaves nothing.
	seedProduct(t, db, productSeed{ID: 1, Stock: 5, Availability: product.AvailabilityAvailable})
	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 1, Quantity: 2})
	seedOrder(t, db, order.OrderStatusShipped, line{ProductID: 1, Quantity: 3})
	// Stored unavailable, but 10 - 3 - 4 leaves 3.
	seedProduct(t, db, productSeed{ID: 2, Stock: 10, Availability: product.AvailabilityUnavailable})
	seedCart(t, db, cart.StatusAbandoned, line{ProductID: 2, Quantity: 3})
	seedOrder(t, db, order.OrderStatusPending, line{ProductID: 2, Quantity: 4})
	// Already consistent.
	seedProduct(t, db, productSeed{ID: 3, Stock: 0, Availability: product.AvailabilityUnavailable})

	summary, err := newTestReconciler(db).ReconcileProductAvailability(context.Background(), product.AllProducts())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Corrected)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Zero(t, summary.Failed)
	assert.True(t, summary.Completed)
	assert.Equal(t, uint(3), summary.LastProductID)

	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 1).Availability)
	assert.Equal(t, product.AvailabilityAvailable, loadProduct(t, db, 2).Availability)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 3).Availability)
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	for id := uint(1); id <= 5; id++ {
		seedProduct(t, db, productSeed{ID: id, Stock: int(id) - 1})
	}
	reconciler := newTestReconciler(db)

	first, err := reconciler.ReconcileProductAvailability(context.Background(), product.AllProducts())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Corrected)

	versions := map[uint]int{}
	for id := uint(1); id <= 5; id++ {
		versions[id] = loadProduct(t, db, id).Version
	}

	second, err := reconciler.ReconcileProductAvailability(context.Background(), product.AllProducts())
	require.NoError(t, err)
	assert.Zero(t, second.Corrected)
	assert.Equal(t, 5, second.Unchanged)

	for id := uint(1); id <= 5; id++ {
		assert.Equal(t, versions[id], loadProduct(t, db, id).Version, "product %d was rewritten", id)
	}
}

func TestReconcileHonoursScope(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, SellerID: 1, CategoryID: 1, Stock: 3})
	seedProduct(t, db, productSeed{ID: 2, SellerID: 2, CategoryID: 1, Stock: 3})
	seedProduct(t, db, productSeed{ID: 3, SellerID: 2, CategoryID: 2, Stock: 3})
	reconciler := newTestReconciler(db)
	ctx := context.Background()

	summary, err := reconciler.ReconcileProductAvailability(ctx, product.SellerScope(1))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Corrected)
	assert.Equal(t, "seller=1", summary.Scope)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 2).Availability)

	summary, err = reconciler.ReconcileProductAvailability(ctx, product.CategoryScope([]uint{2}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Corrected)
	assert.Equal(t, product.AvailabilityAvailable, loadProduct(t, db, 3).Availability)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 2).Availability)

	summary, err = reconciler.ReconcileProductAvailability(ctx, product.CategoryScope(nil))
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}

func TestReconcileResumesAfterCursor(t *testing.T) {
	db := newTestDB(t)
	for id := uint(1); id <= 4; id++ {
		seedProduct(t, db, productSeed{ID: id, Stock: 1})
	}

	scope := product.AllProducts()
	scope.AfterID = 2
	summary, err := newTestReconciler(db).ReconcileProductAvailability(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 1).Availability)
	assert.Equal(t, product.AvailabilityAvailable, loadProduct(t, db, 3).Availability)
	assert.Equal(t, uint(4), summary.LastProductID)
}

func TestReconcileStopsOnCancellation(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestReconciler(db).ReconcileProductAvailability(ctx, product.AllProducts())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, summary.Completed)
	assert.Zero(t, summary.LastProductID)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 1).Availability)
}

func TestReconcileSkipsWriteAfterVersionRace(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 4})
	reconciler := newTestReconciler(db)

	stale := loadProduct(t, db, 1)
	// A concurrent writer bumps the version after the page was read.
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", 1).
		Update("version", stale.Version+1).Error)

	outcome, err := reconciler.reconcileOne(context.Background(), &stale, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, outcomeSkipped, outcome)
	assert.Equal(t, product.AvailabilityUnavailable, loadProduct(t, db, 1).Availability)

	// The next pass picks it up.
	summary, err := reconciler.ReconcileProductAvailability(context.Background(), product.ProductScope(1))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Corrected)
	assert.Equal(t, product.AvailabilityAvailable, loadProduct(t, db, 1).Availability)
}

func TestReconcileIgnoresSoftDeletedProducts(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, productSeed{ID: 1, Stock: 4})
	require.NoError(t, db.Delete(&product.Product{}, 1).Error)

	summary, err := newTestReconciler(db).ReconcileProductAvailability(context.Background(), product.AllProducts())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}

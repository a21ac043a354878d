package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/retry"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type mockStockAdjuster struct {
	mock.Mock
}

func (m *mockStockAdjuster) AdjustForOrder(ctx context.Context, tx *gorm.DB, productID uint, delta int, reason string, actorID uint) error {
	args := m.Called(productID, delta, reason, actorID)
	return args.Error(0)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:order_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&product.Product{}, &Order{}, &OrderItem{}, &OrderStatusHistory{}))
	return db
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaximumBackoff: time.Millisecond}
}

func seedProducts(t *testing.T, db *gorm.DB, ids ...uint) {
	t.Helper()
	for _, id := range ids {
		p := product.Product{
			ID:         id,
			SellerID:   1,
			CategoryID: 1,
			SKU:        "SKU-" + uuid.NewString()[:8],
			Name:       "Item",
			Price:      decimal.NewFromInt(10),
		}
		require.NoError(t, db.Create(&p).Error)
	}
}

func createOrder(t *testing.T, svc *Service, items ...CreateOrderItem) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), &CreateOrderRequest{
		SellerID:      1,
		CustomerEmail: "buyer@example.com",
		Items:         items,
	})
	require.NoError(t, err)
	return o
}

func TestCreateComputesTotals(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1, 2)
	svc := NewService(db, &mockStockAdjuster{}, testPolicy(), applogger.Discard())

	o := createOrder(t, svc,
		CreateOrderItem{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("4.50")},
		CreateOrderItem{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("1.25")},
	)

	assert.Equal(t, OrderStatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("10.25")))
	assert.Regexp(t, `^ORD-\d{8}-\d{5}$`, o.OrderNumber)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].TotalPrice.Equal(decimal.RequireFromString("9")))
	require.Len(t, o.StatusHistory, 1)
}

func TestCreateRejectsUnknownProductAndDeliveredStatus(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	svc := NewService(db, &mockStockAdjuster{}, testPolicy(), applogger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateOrderRequest{
		SellerID:      1,
		CustomerEmail: "buyer@example.com",
		Items:         []CreateOrderItem{{ProductID: 99, Quantity: 1}},
	})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Create(ctx, &CreateOrderRequest{
		SellerID:      1,
		CustomerEmail: "buyer@example.com",
		Status:        OrderStatusDelivered,
		Items:         []CreateOrderItem{{ProductID: 1, Quantity: 1}},
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDeliveryDecrementsStockOncePerProduct(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1, 2)
	stock := &mockStockAdjuster{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard())

	o := createOrder(t, svc,
		CreateOrderItem{ProductID: 2, Quantity: 1},
		CreateOrderItem{ProductID: 1, Quantity: 2},
		CreateOrderItem{ProductID: 1, Quantity: 3},
	)

	stock.On("AdjustForOrder", uint(1), -5, StockReasonSale, uint(42)).Return(nil).Once()
	stock.On("AdjustForOrder", uint(2), -1, StockReasonSale, uint(42)).Return(nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 42)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDelivered, updated.Status)
	assert.NotNil(t, updated.DeliveredAt)
	stock.AssertExpectations(t)
}

func TestReturnAfterDeliveryRestocks(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	stock := &mockStockAdjuster{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard())
	ctx := context.Background()

	o := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 4})

	stock.On("AdjustForOrder", uint(1), -4, StockReasonSale, uint(1)).Return(nil).Once()
	stock.On("AdjustForOrder", uint(1), 4, StockReasonReturn, uint(1)).Return(nil).Once()

	_, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 1)
	require.NoError(t, err)
	returned, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusReturned}, 1)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusReturned, returned.Status)
	assert.Len(t, returned.StatusHistory, 3)
	stock.AssertExpectations(t)
}

func TestNonStockTransitionsDoNotTouchStock(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	stock := &mockStockAdjuster{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard())
	ctx := context.Background()

	o := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})

	_, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusProcessing}, 1)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, 1)
	require.NoError(t, err)

	stock.AssertNotCalled(t, "AdjustForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	svc := NewService(db, &mockStockAdjuster{}, testPolicy(), applogger.Discard())
	ctx := context.Background()

	o := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})
	_, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, 1)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusProcessing}, 1)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	_, err = svc.UpdateStatus(ctx, 999, &UpdateStatusRequest{Status: OrderStatusProcessing}, 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStockFailureRollsBackTransition(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	stock := &mockStockAdjuster{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard())
	ctx := context.Background()

	o := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})
	stock.On("AdjustForOrder", uint(1), -1, StockReasonSale, uint(1)).Return(errors.New("disk full")).Once()

	_, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 1)
	require.Error(t, err)

	reloaded, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, reloaded.Status)
	assert.Len(t, reloaded.StatusHistory, 1)
}

func TestConcurrentModificationIsRetried(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	stock := &mockStockAdjuster{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard())

	o := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 2})
	stock.On("AdjustForOrder", uint(1), -2, StockReasonSale, uint(1)).
		Return(apperrors.ConcurrentModification("product", 1)).Once()
	stock.On("AdjustForOrder", uint(1), -2, StockReasonSale, uint(1)).Return(nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 1)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDelivered, updated.Status)
	stock.AssertExpectations(t)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusDelivered.CanTransitionTo(OrderStatusReturned))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPending))
	assert.True(t, OrderStatusShipped.InFlight())
	assert.False(t, OrderStatusDelivered.InFlight())
}

func TestGetOrdersFilters(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1)
	svc := NewService(db, &mockStockAdjuster{}, testPolicy(), applogger.Discard())
	ctx := context.Background()

	first := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})
	createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})
	_, err := svc.UpdateStatus(ctx, first.ID, &UpdateStatusRequest{Status: OrderStatusProcessing}, 1)
	require.NoError(t, err)

	resp, err := svc.GetOrders(ctx, &OrderListRequest{Status: OrderStatusProcessing})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, first.ID, resp.Orders[0].ID)
}

type recordingListener struct {
	calls [][]uint
}

func (r *recordingListener) DemandChanged(_ context.Context, productIDs []uint) {
	r.calls = append(r.calls, productIDs)
}

func TestDemandListenerNotifiedAfterCommit(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1, 2)
	listener := &recordingListener{}
	svc := NewService(db, &mockStockAdjuster{}, testPolicy(), applogger.Discard()).WithDemandListener(listener)
	ctx := context.Background()

	o := createOrder(t, svc,
		CreateOrderItem{ProductID: 1, Quantity: 1},
		CreateOrderItem{ProductID: 2, Quantity: 1},
	)
	_, err := svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, 1)
	require.NoError(t, err)

	require.Len(t, listener.calls, 2)
	assert.ElementsMatch(t, []uint{1, 2}, listener.calls[1])

	_, err = svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusPending}, 1)
	require.Error(t, err)
	assert.Len(t, listener.calls, 2)
}

type recordingStockListener struct {
	reduced [][]uint
}

func (r *recordingStockListener) StockReduced(_ context.Context, productIDs []uint) {
	r.reduced = append(r.reduced, productIDs)
}

func TestDeliveryReportsReducedStock(t *testing.T) {
	db := newTestDB(t)
	seedProducts(t, db, 1, 2)
	stock := &mockStockAdjuster{}
	listener := &recordingStockListener{}
	svc := NewService(db, stock, testPolicy(), applogger.Discard()).WithStockListener(listener)
	ctx := context.Background()

	cancelled := createOrder(t, svc, CreateOrderItem{ProductID: 1, Quantity: 1})
	_, err := svc.UpdateStatus(ctx, cancelled.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, 1)
	require.NoError(t, err)
	assert.Empty(t, listener.reduced)

	failed := createOrder(t, svc, CreateOrderItem{ProductID: 2, Quantity: 1})
	stock.On("AdjustForOrder", uint(2), -1, StockReasonSale, uint(1)).Return(errors.New("boom")).Once()
	_, err = svc.UpdateStatus(ctx, failed.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 1)
	require.Error(t, err)
	assert.Empty(t, listener.reduced)

	delivered := createOrder(t, svc,
		CreateOrderItem{ProductID: 1, Quantity: 2},
		CreateOrderItem{ProductID: 2, Quantity: 1},
	)
	stock.On("AdjustForOrder", uint(1), -2, StockReasonSale, uint(1)).Return(nil).Once()
	stock.On("AdjustForOrder", uint(2), -1, StockReasonSale, uint(1)).Return(nil).Once()
	_, err = svc.UpdateStatus(ctx, delivered.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, 1)
	require.NoError(t, err)

	require.Len(t, listener.reduced, 1)
	assert.ElementsMatch(t, []uint{1, 2}, listener.reduced[0])
	stock.AssertExpectations(t)
}

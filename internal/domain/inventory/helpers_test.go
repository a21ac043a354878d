package inventory

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/retry"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
		&cart.AbandonedCart{},
		&cart.AbandonedCartItem{},
		&InventoryMovement{},
		&StockAlert{},
	))
	return db
}

type productSeed struct {
	ID           uint
	SellerID     uint
	CategoryID   uint
	Stock        int
	Availability product.Availability
}

func seedProduct(t *testing.T, db *gorm.DB, seed productSeed) *product.Product {
	t.Helper()
	if seed.SellerID == 0 {
		seed.SellerID = 1
	}
	if seed.CategoryID == 0 {
		seed.CategoryID = 1
	}
	if seed.Availability == "" {
		seed.Availability = product.AvailabilityUnavailable
	}
	p := product.Product{
		ID:                seed.ID,
		SellerID:          seed.SellerID,
		CategoryID:        seed.CategoryID,
		SKU:               fmt.Sprintf("SKU-%d", seed.ID),
		Name:              fmt.Sprintf("Product %d", seed.ID),
		Price:             decimal.NewFromInt(10),
		StockQuantity:     seed.Stock,
		LowStockThreshold: 5,
		Availability:      seed.Availability,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

type line struct {
	ProductID uint
	Quantity  int
	UnitPrice string
}

func seedCart(t *testing.T, db *gorm.DB, status cart.Status, lines ...line) *cart.AbandonedCart {
	t.Helper()
	c := cart.AbandonedCart{
		CartNumber:    "CART-" + uuid.NewString(),
		SellerID:      1,
		CustomerEmail: "shopper@example.com",
		Status:        status,
		CartValue:     decimal.Zero,
	}
	for _, l := range lines {
		price := decimal.NewFromInt(10)
		if l.UnitPrice != "" {
			price = decimal.RequireFromString(l.UnitPrice)
		}
		c.ItemCount += l.Quantity
		c.CartValue = c.CartValue.Add(cart.LineTotal(l.Quantity, price))
		c.Items = append(c.Items, cart.AbandonedCartItem{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  price,
			TotalPrice: cart.LineTotal(l.Quantity, price),
		})
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func seedOrder(t *testing.T, db *gorm.DB, status order.OrderStatus, lines ...line) *order.Order {
	t.Helper()
	o := order.Order{
		OrderNumber:   "ORD-" + uuid.NewString(),
		SellerID:      1,
		CustomerEmail: "buyer@example.com",
		Status:        status,
		TotalAmount:   decimal.Zero,
	}
	for _, l := range lines {
		o.Items = append(o.Items, order.OrderItem{
			ProductID:  l.ProductID,
			SKU:        fmt.Sprintf("SKU-%d", l.ProductID),
			Name:       "Item",
			Quantity:   l.Quantity,
			UnitPrice:  decimal.NewFromInt(10),
			TotalPrice: decimal.NewFromInt(int64(10 * l.Quantity)),
		})
	}
	require.NoError(t, db.Create(&o).Error)
	return &o
}

func loadProduct(t *testing.T, db *gorm.DB, id uint) product.Product {
	t.Helper()
	var p product.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaximumBackoff: time.Millisecond}
}

func newTestReconciler(db *gorm.DB) *Reconciler {
	return NewReconciler(db, ReconcilerConfig{PageSize: 2, Workers: 1}, nil, applogger.Discard())
}

// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Product domain
		&product.Category{},
		&product.AdminCategory{},
		&product.Product{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Abandoned carts
		&cart.AbandonedCart{},
		&cart.AbandonedCartItem{},

		// Inventory audit
		&inventory.InventoryMovement{},
		&inventory.StockAlert{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates the indexes behind ledger sums and scoped walks
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_seller_id_id ON products(seller_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_id_id ON products(category_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_products_catalog ON products(is_active, availability, created_at DESC)",

		// Order ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_product_order ON order_items(product_id, order_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_id ON orders(status, id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_seller_status ON orders(seller_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Cart ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_abandoned_cart_items_product_id ON abandoned_cart_items(product_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_abandoned_carts_status_id ON abandoned_carts(status, id)",

		// Alert indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_alerts_product_open ON stock_alerts(product_id, is_resolved)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("database indexes created")
	return nil
}

// SeedInitialData inserts development data into the database
func (m *Migration) SeedInitialData() error {
	m.logger.Info("seeding initial data")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := m.seedSampleProducts(); err != nil {
		return fmt.Errorf("failed to seed sample products: %w", err)
	}

	m.logger.Info("initial data seeded")
	return nil
}

// seedCategories creates default product categories
func (m *Migration) seedCategories() error {
	categories := []product.Category{
		{Name: "Electronics", Slug: "electronics", Description: "Electronic devices, gadgets, and accessories", IsActive: true},
		{Name: "Clothing", Slug: "clothing", Description: "Fashion, apparel, and accessories", IsActive: true},
		{Name: "Books", Slug: "books", Description: "Books, eBooks, and educational materials", IsActive: true},
		{Name: "Home & Garden", Slug: "home-garden", Description: "Home improvement, furniture, and garden supplies", IsActive: true},
	}

	for _, category := range categories {
		var existing product.Category
		err := m.db.Where("slug = ?", category.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to create category %s: %w", category.Name, err)
		}
		m.logger.WithField("category", category.Name).Debug("created category")
	}
	return nil
}

// seedSampleProducts creates a few products for local testing. Stock starts
// unavailable; the first reconciliation pass flips the flags.
func (m *Migration) seedSampleProducts() error {
	var electronics product.Category
	if err := m.db.Where("slug = ?", "electronics").First(&electronics).Error; err != nil {
		return fmt.Errorf("electronics category not found: %w", err)
	}

	products := []product.Product{
		{SellerID: 1, CategoryID: electronics.ID, SKU: "SEED-PHONE-001", Name: "Test Smartphone", Price: decimal.RequireFromString("299.99"), StockQuantity: 50},
		{SellerID: 1, CategoryID: electronics.ID, SKU: "SEED-EARBUD-001", Name: "Wireless Earbuds", Price: decimal.RequireFromString("49.50"), StockQuantity: 4},
		{SellerID: 2, CategoryID: electronics.ID, SKU: "SEED-CABLE-001", Name: "USB-C Cable", Price: decimal.RequireFromString("9.99"), StockQuantity: 0},
	}

	for _, p := range products {
		var count int64
		if err := m.db.Model(&product.Product{}).Where("sku = ?", p.SKU).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := m.db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.SKU, err)
		}
	}
	return nil
}

// GetTableInfo logs row counts of the inventory tables
func (m *Migration) GetTableInfo() {
	tables := []string{"products", "orders", "order_items", "abandoned_carts", "abandoned_cart_items", "inventory_movements", "stock_alerts"}
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", table).Warn("failed to count rows")
			continue
		}
		m.logger.WithFields(logrus.Fields{"table": table, "rows": count}).Debug("table info")
	}
}

// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Availability is the stored, derived sellability flag of a product
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// Valid reports whether a is a known availability value
func (a Availability) Valid() bool {
	return a == AvailabilityAvailable || a == AvailabilityUnavailable
}

// Product represents the product entity.
// Availability is derived from StockQuantity and the cart/order ledgers; it is
// written only by the inventory package and guarded by Version.
type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SellerID          uint            `gorm:"not null;index" json:"seller_id"`
	CategoryID        uint            `gorm:"not null;index" json:"category_id"`
	SKU               string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string          `gorm:"not null;size:255" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive          bool            `gorm:"default:true;index" json:"is_active"`
	StockQuantity     int             `gorm:"not null;default:0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"not null;default:5" json:"low_stock_threshold"`
	Availability      Availability    `gorm:"not null;size:20;default:'unavailable';index" json:"availability"`
	Version           int             `gorm:"not null;default:1" json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// AdminCategory assigns a category to an admin; admins only see products in
// their assigned categories.
type AdminCategory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AdminID    uint      `gorm:"not null;uniqueIndex:idx_admin_category" json:"admin_id"`
	CategoryID uint      `gorm:"not null;uniqueIndex:idx_admin_category" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Table names
func (Product) TableName() string       { return "products" }
func (Category) TableName() string      { return "categories" }
func (AdminCategory) TableName() string { return "admin_categories" }

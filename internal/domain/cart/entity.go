// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of an abandoned cart
type Status string

const (
	StatusAbandoned Status = "abandoned"
	StatusRecovered Status = "recovered"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusAbandoned || s == StatusRecovered || s == StatusExpired
}

// AbandonedCart is a customer cart left before checkout. Items of carts in
// the abandoned status reserve stock.
// ItemCount and CartValue are derived from the items; only RecomputeTotals
// writes them.
type AbandonedCart struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CartNumber    string          `gorm:"uniqueIndex;not null;size:64" json:"cart_number"`
	SellerID      uint            `gorm:"not null;index" json:"seller_id"`
	CustomerID    *uint           `gorm:"index" json:"customer_id,omitempty"`
	CustomerName  string          `gorm:"size:255" json:"customer_name"`
	CustomerEmail string          `gorm:"not null;size:255;index" json:"customer_email"`
	Status        Status          `gorm:"not null;size:20;default:'abandoned';index" json:"status"`
	ItemCount     int             `gorm:"not null;default:0" json:"item_count"`
	CartValue     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cart_value"`
	Notes         string          `gorm:"type:text" json:"notes"`
	RecoveredAt   *time.Time      `json:"recovered_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	Items []AbandonedCartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// AbandonedCartItem is one reserved line of an abandoned cart
type AbandonedCartItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CartID      uint            `gorm:"not null;index" json:"cart_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Table names
func (AbandonedCart) TableName() string     { return "abandoned_carts" }
func (AbandonedCartItem) TableName() string { return "abandoned_cart_items" }

// LineTotal returns quantity x unit price
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

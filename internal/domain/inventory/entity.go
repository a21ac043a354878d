// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of an inventory movement
type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeAdjustment MovementType = "adjustment"
)

// movementTypeFor classifies a signed delta
func movementTypeFor(delta int) MovementType {
	switch {
	case delta > 0:
		return MovementTypeIn
	case delta < 0:
		return MovementTypeOut
	default:
		return MovementTypeAdjustment
	}
}

// MovementReason represents the reason for inventory movement
type MovementReason string

const (
	ReasonSale       MovementReason = "sale"
	ReasonPurchase   MovementReason = "purchase"
	ReasonRestock    MovementReason = "restock"
	ReasonReturn     MovementReason = "return"
	ReasonDamage     MovementReason = "damage"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonCorrection MovementReason = "correction"
)

// Valid reports whether r is a known reason
func (r MovementReason) Valid() bool {
	switch r {
	case ReasonSale, ReasonPurchase, ReasonRestock, ReasonReturn,
		ReasonDamage, ReasonAdjustment, ReasonCorrection:
		return true
	}
	return false
}

// InventoryMovement is an append-only record of a stock quantity change.
// Quantity is the requested magnitude |delta|; Clamped marks movements where
// the zero floor cut the applied change short.
type InventoryMovement struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProductID     uint           `gorm:"not null;index:idx_movements_product_created,priority:1" json:"product_id"`
	Type          MovementType   `gorm:"not null;size:20" json:"type"`
	Reason        MovementReason `gorm:"not null;size:30" json:"reason"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	PreviousStock int            `gorm:"not null" json:"previous_stock"`
	NewStock      int            `gorm:"not null" json:"new_stock"`
	Clamped       bool           `gorm:"not null;default:false" json:"clamped"`
	Notes         string         `gorm:"type:text" json:"notes"`
	CreatedBy     uint           `gorm:"index" json:"created_by"`
	CreatedAt     time.Time      `gorm:"index:idx_movements_product_created,priority:2" json:"created_at"`
}

// AlertType classifies a stock alert
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
)

// StockAlert represents a low or out of stock alert raised by a stock change
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProductID  uint       `gorm:"not null;index" json:"product_id"`
	AlertType  AlertType  `gorm:"not null;size:20" json:"alert_type"`
	Message    string     `gorm:"type:text" json:"message"`
	IsResolved bool       `gorm:"default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Table names
func (InventoryMovement) TableName() string { return "inventory_movements" }
func (StockAlert) TableName() string        { return "stock_alerts" }

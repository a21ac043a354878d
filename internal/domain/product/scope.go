// internal/domain/product/scope.go
package product

import (
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
)

// Scope restricts a product set by seller, category or explicit ids.
// The zero value covers every product.
type Scope struct {
	SellerID    *uint  `json:"seller_id,omitempty"`
	CategoryIDs []uint `json:"category_ids,omitempty"`
	ProductIDs  []uint `json:"product_ids,omitempty"`
	// AfterID resumes a keyset walk after the given product id.
	AfterID uint `json:"after_id,omitempty"`
	// None marks a scope that matches nothing, e.g. an admin with no
	// assigned categories.
	None bool `json:"none,omitempty"`
}

// AllProducts is the unrestricted scope
func AllProducts() Scope {
	return Scope{}
}

// SellerScope restricts to one seller's products
func SellerScope(sellerID uint) Scope {
	return Scope{SellerID: &sellerID}
}

// CategoryScope restricts to the given categories; an empty list matches nothing
func CategoryScope(categoryIDs []uint) Scope {
	if len(categoryIDs) == 0 {
		return Scope{None: true}
	}
	return Scope{CategoryIDs: categoryIDs}
}

// ProductScope restricts to explicit product ids
func ProductScope(productIDs ...uint) Scope {
	if len(productIDs) == 0 {
		return Scope{None: true}
	}
	return Scope{ProductIDs: productIDs}
}

// Empty reports whether the scope can match no product
func (s Scope) Empty() bool {
	return s.None
}

// Apply adds the scope's predicates on the products table to db.
// AfterID is not applied here; keyset walkers start from it.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.None {
		return db.Where("1 = 0")
	}
	if s.SellerID != nil {
		db = db.Where("products.seller_id = ?", *s.SellerID)
	}
	if len(s.CategoryIDs) > 0 {
		db = db.Where("products.category_id IN ?", s.CategoryIDs)
	}
	if len(s.ProductIDs) > 0 {
		db = db.Where("products.id IN ?", s.ProductIDs)
	}
	return db
}

// Key is a stable identifier for the scope, used for task deduplication
func (s Scope) Key() string {
	if s.None {
		return "none"
	}
	var parts []string
	if s.SellerID != nil {
		parts = append(parts, fmt.Sprintf("seller=%d", *s.SellerID))
	}
	if len(s.CategoryIDs) > 0 {
		parts = append(parts, "categories="+joinIDs(s.CategoryIDs))
	}
	if len(s.ProductIDs) > 0 {
		parts = append(parts, "products="+joinIDs(s.ProductIDs))
	}
	if s.AfterID > 0 {
		parts = append(parts, fmt.Sprintf("after=%d", s.AfterID))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ";")
}

func joinIDs(ids []uint) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]string, len(sorted))
	for i, id := range sorted {
		out[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(out, ",")
}

// Contains reports whether p falls inside the scope. AfterID is ignored.
func (s Scope) Contains(p *Product) bool {
	if s.None || p == nil {
		return false
	}
	if s.SellerID != nil && p.SellerID != *s.SellerID {
		return false
	}
	if len(s.CategoryIDs) > 0 && !slices.Contains(s.CategoryIDs, p.CategoryID) {
		return false
	}
	if len(s.ProductIDs) > 0 && !slices.Contains(s.ProductIDs, p.ID) {
		return false
	}
	return true
}

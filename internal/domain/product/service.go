// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service handles product read paths
type Service struct {
	db *gorm.DB
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CatalogRequest represents public catalog query parameters
type CatalogRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	SellerID   uint   `form:"seller_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product             `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// ListCatalog returns active products whose stored availability is
// "available". Products are never shown on the strength of raw stock alone.
func (s *Service) ListCatalog(ctx context.Context, req *CatalogRequest) (*ProductResponse, error) {
	query := s.db.WithContext(ctx).Model(&Product{}).
		Where("products.is_active = ? AND products.availability = ?", true, AvailabilityAvailable)

	if req.CategoryID > 0 {
		query = query.Where("products.category_id = ?", req.CategoryID)
	}
	if req.SellerID > 0 {
		query = query.Where("products.seller_id = ?", req.SellerID)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ?", search, search)
	}

	return s.page(query, req.Page, req.Limit, buildOrderClause(req.SortBy, req.SortOrder))
}

// ListUnavailable returns products in scope whose stored flag is "unavailable"
func (s *Service) ListUnavailable(ctx context.Context, scope Scope, page, limit int) (*ProductResponse, error) {
	query := scope.Apply(s.db.WithContext(ctx).Model(&Product{})).
		Where("products.availability = ?", AvailabilityUnavailable)

	return s.page(query, page, limit, "products.updated_at desc")
}

// GetProduct retrieves a single product by id
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

func (s *Service) page(query *gorm.DB, page, limit int, order string) (*ProductResponse, error) {
	page, limit = pagination.Normalize(page, limit)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	err := query.Session(&gorm.Session{}).
		Preload("Category").
		Order(order).
		Order("products.id asc").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductResponse{
		Products:   products,
		Pagination: pagination.New(page, limit, total),
	}, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":           true,
		"price":          true,
		"created_at":     true,
		"updated_at":     true,
		"stock_quantity": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("products.%s %s", sortBy, sortOrder)
}

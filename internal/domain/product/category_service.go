// internal/domain/product/category_service.go
package product

import (
	"context"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// CategoryService handles categories and admin category assignments
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// GetCategories retrieves all categories with optional filtering
func (s *CategoryService) GetCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	var categories []Category
	query := s.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// AssignedCategoryIDs returns the categories an admin manages
func (s *CategoryService) AssignedCategoryIDs(ctx context.Context, adminID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&AdminCategory{}).
		Where("admin_id = ?", adminID).
		Order("category_id ASC").
		Pluck("category_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load admin categories: %w", err)
	}
	return ids, nil
}

// AssignCategories replaces an admin's category assignments
func (s *CategoryService) AssignCategories(ctx context.Context, adminID uint, categoryIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(categoryIDs) > 0 {
			var found int64
			if err := tx.Model(&Category{}).Where("id IN ?", categoryIDs).Count(&found).Error; err != nil {
				return fmt.Errorf("failed to verify categories: %w", err)
			}
			if int(found) != len(uniqueIDs(categoryIDs)) {
				return apperrors.Validation("one or more categories do not exist")
			}
		}

		if err := tx.Where("admin_id = ?", adminID).Delete(&AdminCategory{}).Error; err != nil {
			return fmt.Errorf("failed to clear admin categories: %w", err)
		}

		for _, id := range uniqueIDs(categoryIDs) {
			if err := tx.Create(&AdminCategory{AdminID: adminID, CategoryID: id}).Error; err != nil {
				return fmt.Errorf("failed to assign category %d: %w", id, err)
			}
		}
		return nil
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

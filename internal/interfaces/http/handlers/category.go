// internal/interfaces/http/handlers/category.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/product"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	categoryService *product.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *product.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// AssignCategoriesRequest replaces an admin's category assignments
type AssignCategoriesRequest struct {
	CategoryIDs []uint `json:"category_ids" binding:"max=500"`
}

// GetCategories handles GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.GetCategories(c.Request.Context(), false)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Categories retrieved successfully", categories)
}

// GetAdminCategories handles GET /admin/admins/:id/categories
func (h *CategoryHandler) GetAdminCategories(c *gin.Context) {
	adminID, ok := parseID(c, "id")
	if !ok {
		return
	}

	ids, err := h.categoryService.AssignedCategoryIDs(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Admin categories retrieved successfully", gin.H{
		"admin_id":     adminID,
		"category_ids": ids,
	})
}

// AssignAdminCategories handles PUT /admin/admins/:id/categories
func (h *CategoryHandler) AssignAdminCategories(c *gin.Context) {
	adminID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AssignCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request data")
		return
	}

	if err := h.categoryService.AssignCategories(c.Request.Context(), adminID, req.CategoryIDs); err != nil {
		respondError(c, err)
		return
	}

	ids, err := h.categoryService.AssignedCategoryIDs(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Admin categories updated successfully", gin.H{
		"admin_id":     adminID,
		"category_ids": ids,
	})
}

// internal/interfaces/http/handlers/access.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
)

// CategoryAssignments resolves the categories an admin manages
type CategoryAssignments interface {
	AssignedCategoryIDs(ctx context.Context, adminID uint) ([]uint, error)
}

// ScopeResolver turns the caller's claims into the product scope they may see:
// sellers their own products, admins their assigned categories, super admins
// everything.
type ScopeResolver struct {
	categories CategoryAssignments
}

// NewScopeResolver creates a scope resolver
func NewScopeResolver(categories CategoryAssignments) *ScopeResolver {
	return &ScopeResolver{categories: categories}
}

// Resolve returns the caller's scope
func (r *ScopeResolver) Resolve(c *gin.Context) (product.Scope, error) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return product.Scope{None: true}, apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	role, _ := middleware.GetRoleFromContext(c)

	switch role {
	case auth.RoleSuperAdmin:
		return product.AllProducts(), nil
	case auth.RoleAdmin:
		ids, err := r.categories.AssignedCategoryIDs(c.Request.Context(), userID)
		if err != nil {
			return product.Scope{None: true}, err
		}
		return product.CategoryScope(ids), nil
	case auth.RoleSeller:
		return product.SellerScope(userID), nil
	default:
		return product.Scope{None: true}, apperrors.New(apperrors.CodeForbidden, "access denied")
	}
}

// authorizeProduct checks p against the caller's scope
func authorizeProduct(scope product.Scope, p *product.Product) error {
	if !scope.Contains(p) {
		return apperrors.New(apperrors.CodeForbidden, "product is outside your scope")
	}
	return nil
}

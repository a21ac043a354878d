// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
)

// CartHandler handles abandoned cart endpoints. Sellers only see their own
// carts; admins see every cart.
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// SyncCart handles POST /carts/sync
func (h *CartHandler) SyncCart(c *gin.Context) {
	var req cart.SyncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request data")
		return
	}
	if sellerID, ok := sellerOf(c); ok {
		req.SellerID = sellerID
	}

	synced, err := h.cartService.Sync(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart synced successfully", synced)
}

// GetCarts handles GET /carts
func (h *CartHandler) GetCarts(c *gin.Context) {
	var req cart.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		respondError(c, apperrors.Validation("invalid cart status"))
		return
	}
	if sellerID, ok := sellerOf(c); ok {
		req.SellerID = sellerID
	}

	response, err := h.cartService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Carts retrieved successfully", response)
}

// GetCart handles GET /carts/:id
func (h *CartHandler) GetCart(c *gin.Context) {
	found, ok := h.ownedCart(c)
	if !ok {
		return
	}

	respondOK(c, http.StatusOK, "Cart retrieved successfully", found)
}

// UpdateCartStatus handles PATCH /carts/:id/status
func (h *CartHandler) UpdateCartStatus(c *gin.Context) {
	found, ok := h.ownedCart(c)
	if !ok {
		return
	}

	var req cart.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request data")
		return
	}

	updated, err := h.cartService.UpdateStatus(c.Request.Context(), found.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart status updated successfully", updated)
}

// DeleteCart handles DELETE /carts/:id
func (h *CartHandler) DeleteCart(c *gin.Context) {
	found, ok := h.ownedCart(c)
	if !ok {
		return
	}

	if err := h.cartService.Delete(c.Request.Context(), found.ID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart deleted successfully", nil)
}

// ownedCart loads :id and hides other sellers' carts as missing
func (h *CartHandler) ownedCart(c *gin.Context) (*cart.AbandonedCart, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	found, err := h.cartService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if sellerID, isSeller := sellerOf(c); isSeller && found.SellerID != sellerID {
		respondError(c, apperrors.NotFound("cart", id))
		return nil, false
	}
	return found, true
}

// sellerOf returns the caller's id when the caller is a seller
func sellerOf(c *gin.Context) (uint, bool) {
	role, _ := middleware.GetRoleFromContext(c)
	if role != auth.RoleSeller {
		return 0, false
	}
	return middleware.GetUserIDFromContext(c)
}

// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
)

// TaskEnqueuer queues deferred inventory work
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task inventory.Task) (bool, error)
}

// InventoryHandlerParams wires the inventory handler
type InventoryHandlerParams struct {
	Stats      *inventory.StatsService
	Stock      *inventory.StockService
	Products   *product.Service
	Reconciler *inventory.Reconciler
	Repairer   *inventory.Repairer
	Tasks      TaskEnqueuer
	Scopes     *ScopeResolver
	Logger     logrus.FieldLogger
}

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	stats      *inventory.StatsService
	stock      *inventory.StockService
	products   *product.Service
	reconciler *inventory.Reconciler
	repairer   *inventory.Repairer
	tasks      TaskEnqueuer
	scopes     *ScopeResolver
	logger     logrus.FieldLogger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(p InventoryHandlerParams) *InventoryHandler {
	return &InventoryHandler{
		stats:      p.Stats,
		stock:      p.Stock,
		products:   p.Products,
		reconciler: p.Reconciler,
		repairer:   p.Repairer,
		tasks:      p.Tasks,
		scopes:     p.Scopes,
		logger:     p.Logger,
	}
}

// AdjustStockRequest represents a manual stock adjustment. Adjustment is a
// pointer so an explicit 0 is accepted and a missing field is not.
type AdjustStockRequest struct {
	Adjustment *int                     `json:"adjustment" binding:"required"`
	Reason     inventory.MovementReason `json:"reason" binding:"required,movement_reason"`
	Notes      string                   `json:"notes" binding:"max=1000"`
}

// ScopeRequest narrows an admin pass to explicit products
type ScopeRequest struct {
	ProductIDs []uint `json:"product_ids"`
}

// UnavailableRequest represents unavailable listing query parameters
type UnavailableRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// GetInventoryStats handles GET /inventory/stats. The numbers are computed
// from the ledgers; stored flags are corrected later by a queued reconcile.
func (h *InventoryHandler) GetInventoryStats(c *gin.Context) {
	scope, err := h.scopes.Resolve(c)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.stats.InventoryStats(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}

	h.queueReconcile(c, scope)

	respondOK(c, http.StatusOK, "Inventory statistics retrieved successfully", stats)
}

func (h *InventoryHandler) queueReconcile(c *gin.Context, scope product.Scope) {
	if h.tasks == nil {
		return
	}
	task := inventory.Task{Kind: inventory.TaskReconcile, Scope: scope}
	if _, err := h.tasks.Enqueue(context.WithoutCancel(c.Request.Context()), task); err != nil {
		applogger.FromContext(c.Request.Context(), h.logger).
			WithField("scope", scope.Key()).
			WithError(err).
			Warn("failed to queue reconcile task")
	}
}

// GetProductInventory handles GET /inventory/products/:id
func (h *InventoryHandler) GetProductInventory(c *gin.Context) {
	id, ok := h.authorizedProduct(c)
	if !ok {
		return
	}

	detail, err := h.stats.ProductInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product inventory retrieved successfully", detail)
}

// GetMovements handles GET /inventory/products/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	id, ok := h.authorizedProduct(c)
	if !ok {
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	movements, err := h.stats.Movements(c.Request.Context(), id, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Inventory movements retrieved successfully", movements)
}

// AdjustStock handles POST /inventory/products/:id/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := h.authorizedProduct(c)
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request data")
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	result, err := h.stock.AdjustStock(c.Request.Context(), inventory.StockAdjustment{
		ProductID: id,
		Delta:     *req.Adjustment,
		Reason:    req.Reason,
		Notes:     req.Notes,
		ActorID:   actorID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock adjusted successfully", result)
}

// GetUnavailableProducts handles GET /inventory/unavailable
func (h *InventoryHandler) GetUnavailableProducts(c *gin.Context) {
	scope, err := h.scopes.Resolve(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req UnavailableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	response, err := h.products.ListUnavailable(c.Request.Context(), scope, req.Page, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Unavailable products retrieved successfully", response)
}

// GetAlerts handles GET /inventory/alerts
func (h *InventoryHandler) GetAlerts(c *gin.Context) {
	scope, err := h.scopes.Resolve(c)
	if err != nil {
		respondError(c, err)
		return
	}

	unresolvedOnly := c.DefaultQuery("resolved", "false") != "true"
	alerts, err := h.stats.Alerts(c.Request.Context(), scope, unresolvedOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock alerts retrieved successfully", alerts)
}

// Reconcile handles POST /admin/inventory/reconcile
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	scope, ok := h.adminScope(c)
	if !ok {
		return
	}

	summary, err := h.reconciler.ReconcileProductAvailability(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Availability reconciled", summary)
}

// RepairReservations handles POST /admin/inventory/repair-reservations
func (h *InventoryHandler) RepairReservations(c *gin.Context) {
	scope, ok := h.adminScope(c)
	if !ok {
		return
	}

	summary, err := h.repairer.RepairAllOverReserved(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Over-reserved carts repaired", summary)
}

// adminScope resolves the caller's scope, narrowed by an optional body
func (h *InventoryHandler) adminScope(c *gin.Context) (product.Scope, bool) {
	scope, err := h.scopes.Resolve(c)
	if err != nil {
		respondError(c, err)
		return scope, false
	}

	var req ScopeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err, "Invalid request data")
			return scope, false
		}
	}
	if len(req.ProductIDs) > 0 {
		scope.ProductIDs = req.ProductIDs
	}
	return scope, true
}

// authorizedProduct parses :id and checks it against the caller's scope
func (h *InventoryHandler) authorizedProduct(c *gin.Context) (uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, false
	}

	scope, err := h.scopes.Resolve(c)
	if err != nil {
		respondError(c, err)
		return 0, false
	}

	p, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	if err := authorizeProduct(scope, p); err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}

// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
)

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Products   *handlers.ProductHandler
	Categories *handlers.CategoryHandler
	Inventory  *handlers.InventoryHandler
	Carts      *handlers.CartHandler
	Orders     *handlers.OrderHandler
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	handlers.RegisterValidators()

	SetupProductRoutes(rg, h)
	SetupInventoryRoutes(rg, h, cfg)
	SetupCartRoutes(rg, h, cfg)
	SetupAdminRoutes(rg, h, cfg)
}

// SetupProductRoutes sets up the public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Products.GetProducts)
		products.GET("/:id", h.Products.GetProduct)
	}

	rg.GET("/categories", h.Categories.GetCategories)
}

// SetupInventoryRoutes sets up seller and admin inventory routes
func SetupInventoryRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	inventory.Use(middleware.RequireRoles(auth.RoleSeller, auth.RoleAdmin, auth.RoleSuperAdmin))
	{
		inventory.GET("/stats", h.Inventory.GetInventoryStats)
		inventory.GET("/unavailable", h.Inventory.GetUnavailableProducts)
		inventory.GET("/alerts", h.Inventory.GetAlerts)
		inventory.GET("/products/:id", h.Inventory.GetProductInventory)
		inventory.GET("/products/:id/movements", h.Inventory.GetMovements)
		inventory.POST("/products/:id/adjust", h.Inventory.AdjustStock)
	}
}

// SetupCartRoutes sets up abandoned cart routes
func SetupCartRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	carts := rg.Group("/carts")
	carts.Use(middleware.AuthMiddleware(cfg))
	carts.Use(middleware.RequireRoles(auth.RoleSeller, auth.RoleAdmin, auth.RoleSuperAdmin))
	{
		carts.POST("/sync", h.Carts.SyncCart)
		carts.GET("", h.Carts.GetCarts)
		carts.GET("/:id", h.Carts.GetCart)
		carts.PATCH("/:id/status", h.Carts.UpdateCartStatus)
		carts.DELETE("/:id", h.Carts.DeleteCart)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleSuperAdmin))
	{
		admin.POST("/inventory/reconcile", h.Inventory.Reconcile)
		admin.POST("/inventory/repair-reservations", h.Inventory.RepairReservations)

		admin.POST("/orders", h.Orders.CreateOrder)
		admin.GET("/orders", h.Orders.GetOrders)
		admin.GET("/orders/:id", h.Orders.GetOrder)
		admin.PUT("/orders/:id/status", h.Orders.UpdateOrderStatus)

		superAdmin := admin.Group("/admins")
		superAdmin.Use(middleware.RequireRoles(auth.RoleSuperAdmin))
		{
			superAdmin.GET("/:id/categories", h.Categories.GetAdminCategories)
			superAdmin.PUT("/:id/categories", h.Categories.AssignAdminCategories)
		}
	}
}

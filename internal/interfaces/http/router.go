package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/purchasing"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/sales"
	"github.com/jhoicas/POS-Sucursales-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine           *inventory.Engine
	StockQuery       *inventory.StockQuery
	Sales            *sales.Service
	Purchasing       *purchasing.Service
	JWTSecret        string
	OperationTimeout time.Duration
	Metrics          prometheus.Gatherer // nil = sin /metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), OperationTimeout(deps.OperationTimeout))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleManager, jwt.RoleCashier)
	managers := RequireRole(jwt.RoleAdmin, jwt.RoleManager)
	admins := RequireRole(jwt.RoleAdmin)

	// Inventario
	inv := api.Group("/inventory")
	invHandler := NewInventoryHandler(deps.Engine, deps.StockQuery)
	inv.Post("/adjustments", managers, invHandler.Adjust)
	inv.Post("/transfers", managers, invHandler.Transfer)
	inv.Get("/stock/:productId/:branchId", anyRole, invHandler.GetStock)
	inv.Get("/stock/:productId/:branchId/verify", managers, invHandler.VerifyPair)
	inv.Get("/branches/:branchId/stock", anyRole, invHandler.BranchStock)
	inv.Get("/branches/:branchId/replenishment", managers, invHandler.Replenishment)
	inv.Get("/movements", managers, invHandler.Movements)

	// Ventas
	sl := api.Group("/sales")
	salesHandler := NewSalesHandler(deps.Sales)
	sl.Post("/", anyRole, salesHandler.Create)
	sl.Get("/", anyRole, salesHandler.List)
	sl.Get("/:id", anyRole, salesHandler.GetByID)
	sl.Get("/:id/receipt", anyRole, salesHandler.Receipt)
	sl.Post("/:id/cancel", managers, salesHandler.Cancel)
	sl.Post("/:id/refund", managers, salesHandler.Refund)

	// Órdenes de compra
	po := api.Group("/purchase-orders", managers)
	poHandler := NewPurchaseOrderHandler(deps.Purchasing)
	po.Post("/", poHandler.Create)
	po.Get("/", poHandler.List)
	po.Get("/:id", poHandler.GetByID)
	po.Put("/:id", poHandler.Update)
	po.Delete("/:id", poHandler.Delete)
	po.Post("/:id/submit", poHandler.Submit)
	po.Post("/:id/approve", admins, poHandler.Approve)
	po.Post("/:id/receive", poHandler.Receive)
	po.Post("/:id/cancel", poHandler.Cancel)
}

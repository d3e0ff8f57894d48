package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/jwt"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog   *inventory.Catalog
	Ledger    *inventory.InventoryLedger
	Workflow  *inventory.TransferWorkflow
	JWTSecret string
	Log       *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleConductor)

	// Inventario de bodega central
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Catalog, deps.Ledger, log)
	invGroup.Get("/", anyRole, inventoryHandler.List)
	invGroup.Post("/", warehouse, inventoryHandler.Create)
	invGroup.Get("/:id", anyRole, inventoryHandler.GetByID)
	invGroup.Delete("/:id", RequireRole(jwt.RoleAdmin), inventoryHandler.Delete)
	invGroup.Post("/:id/replenish", warehouse, inventoryHandler.Replenish)
	invGroup.Get("/:id/movements", anyRole, inventoryHandler.Movements)

	// Vehículos
	vehicles := protected.Group("/vehicles")
	vehicleHandler := NewVehicleHandler(deps.Catalog, deps.Workflow, log)
	vehicles.Post("/", RequireRole(jwt.RoleAdmin), vehicleHandler.Create)
	vehicles.Get("/", anyRole, vehicleHandler.List)
	vehicles.Get("/:id", anyRole, vehicleHandler.GetByID)
	vehicles.Get("/:id/inventory", anyRole, vehicleHandler.Inventory)
	vehicles.Post("/:id/returns", anyRole, vehicleHandler.Return)
	vehicles.Get("/:id/transfers", anyRole, vehicleHandler.Transfers)

	// Transferencias: la bodega crea, aprueba y cancela; el conductor confirma la recogida.
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Workflow, log)
	transfers.Post("/", warehouse, transferHandler.Create)
	transfers.Get("/:id", anyRole, transferHandler.GetByID)
	transfers.Post("/:id/approve", warehouse, transferHandler.Approve)
	transfers.Post("/:id/confirm", RequireRole(jwt.RoleAdmin, jwt.RoleConductor), transferHandler.Confirm)
	transfers.Post("/:id/cancel", warehouse, transferHandler.Cancel)
}

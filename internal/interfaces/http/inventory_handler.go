package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// InventoryHandler maneja el catálogo de la bodega central y sus reposiciones (protegido).
type InventoryHandler struct {
	catalog *inventory.Catalog
	ledger  *inventory.InventoryLedger
	log     *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(catalog *inventory.Catalog, ledger *inventory.InventoryLedger, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{catalog: catalog, ledger: ledger, log: log}
}

// List godoc
// @Summary      Listar inventario de bodega
// @Description  Cada ítem incluye el stock derivado de todas sus capas de empaque.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.InventoryListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	out, err := h.catalog.GetInventory(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener ítem de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.InventoryItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear ítem de inventario
// @Description  packagingStructure acepta arreglo plano, forma {outer, inner} o una unidad suelta.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryItemRequest  true  "Ítem y stock inicial opcional"
// @Success      201   {object}  dto.InventoryItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInventoryItemRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.catalog.CreateItemFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Delete godoc
// @Summary      Eliminar ítem de inventario
// @Description  Se rechaza mientras haya transferencias abiertas o stock cargado en vehículos.
// @Tags         inventory
// @Security     Bearer
// @Param        id   path  string  true  "ID del ítem"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *fiber.Ctx) error {
	if err := h.catalog.DeleteItem(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Replenish godoc
// @Summary      Reponer stock de bodega
// @Description  Suma quantity unidades de la capa indicada; con unitCost recalcula el costo promedio.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del ítem"
// @Param        body  body  dto.ReplenishRequest  true  "Cantidad, capa/unidad y factura"
// @Success      200   {object}  dto.InventoryItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/replenish [post]
func (h *InventoryHandler) Replenish(c *fiber.Ctx) error {
	var in dto.ReplenishRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	item, err := h.ledger.ReplenishFromRequest(c.UserContext(), c.Params("id"), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := dto.NewInventoryItemResponse(item)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Historial de movimientos del ítem
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del ítem"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.MovementListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	list, err := h.ledger.History(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.MovementListResponse{Items: make([]dto.MovementResponse, len(list))}
	for i, m := range list {
		out.Items[i] = dto.NewMovementResponse(m)
	}
	out.Page = dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(list)}
	return c.JSON(out)
}

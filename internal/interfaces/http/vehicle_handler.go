package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// VehicleHandler registro de vehículos, su carga y sus devoluciones (protegido).
type VehicleHandler struct {
	catalog  *inventory.Catalog
	workflow *inventory.TransferWorkflow
	log      *logger.Logger
}

// NewVehicleHandler construye el handler.
func NewVehicleHandler(catalog *inventory.Catalog, workflow *inventory.TransferWorkflow, log *logger.Logger) *VehicleHandler {
	return &VehicleHandler{catalog: catalog, workflow: workflow, log: log}
}

// Create godoc
// @Summary      Registrar vehículo
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateVehicleRequest  true  "Nombre, placa y conductor"
// @Success      201   {object}  dto.VehicleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vehicles [post]
func (h *VehicleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateVehicleRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.catalog.CreateVehicle(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar vehículos
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.VehicleListResponse
// @Router       /api/vehicles [get]
func (h *VehicleHandler) List(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	out, err := h.catalog.ListVehicles(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener vehículo
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del vehículo"
// @Success      200  {object}  dto.VehicleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id} [get]
func (h *VehicleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.catalog.GetVehicle(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Inventory godoc
// @Summary      Inventario cargado en el vehículo
// @Description  Entradas por ítem y capa en unidades de la capa, con su equivalencia en piezas base.
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del vehículo"
// @Success      200  {object}  dto.VehicleInventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/inventory [get]
func (h *VehicleHandler) Inventory(c *fiber.Ctx) error {
	out, err := h.catalog.GetVehicleInventory(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Return godoc
// @Summary      Devolver stock del vehículo a bodega
// @Description  Se aplica de inmediato y queda registrado como transferencia confirmada de dirección return.
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del vehículo"
// @Param        body  body  dto.ReturnStockRequest  true  "Líneas a devolver"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/returns [post]
func (h *VehicleHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnStockRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	doc, err := h.workflow.ReturnStockFromRequest(c.UserContext(), c.Params("id"), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransferResponse(doc))
}

// Transfers godoc
// @Summary      Transferencias del vehículo
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del vehículo"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.TransferListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/transfers [get]
func (h *VehicleHandler) Transfers(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	list, err := h.workflow.ListByVehicle(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.TransferListResponse{Items: make([]dto.TransferResponse, len(list))}
	for i, d := range list {
		out.Items[i] = dto.NewTransferResponse(d)
	}
	out.Page = dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(list)}
	return c.JSON(out)
}

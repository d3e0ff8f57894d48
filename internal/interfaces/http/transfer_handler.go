package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// TransferHandler ciclo de vida de los documentos de transferencia (protegido).
type TransferHandler struct {
	workflow *inventory.TransferWorkflow
	log      *logger.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(workflow *inventory.TransferWorkflow, log *logger.Logger) *TransferHandler {
	return &TransferHandler{workflow: workflow, log: log}
}

// Create godoc
// @Summary      Crear transferencia
// @Description  direction=issue crea el documento pendiente sin mover stock; direction=return devuelve de inmediato.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Vehículo, dirección e ítems por capa"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	doc, err := h.workflow.CreateFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransferResponse(doc))
}

// GetByID godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.workflow.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(doc))
}

// Approve godoc
// @Summary      Aprobar transferencia
// @Description  Revalida el stock de bodega y mueve la carga al vehículo en una sola transacción.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	doc, err := h.workflow.Approve(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(doc))
}

// Confirm godoc
// @Summary      Confirmar recogida
// @Description  Idempotente: confirmar un documento ya confirmado no cambia nada.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/confirm [post]
func (h *TransferHandler) Confirm(c *fiber.Ctx) error {
	doc, err := h.workflow.Confirm(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(doc))
}

// Cancel godoc
// @Summary      Cancelar transferencia pendiente
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true   "ID de la transferencia"
// @Param        body  body  dto.CancelTransferRequest  false  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelTransferRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	doc, err := h.workflow.Cancel(c.UserContext(), c.Params("id"), in.Reason, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(doc))
}

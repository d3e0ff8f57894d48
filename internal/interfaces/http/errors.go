package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// Orden relevante: el primer Kind que coincide con errors.Is gana.
var errorMappings = []errorMapping{
	{domain.ErrInvalidPackagingStructure, fiber.StatusBadRequest, "INVALID_PACKAGING_STRUCTURE", "estructura de empaque inválida"},
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrUnitResolution, fiber.StatusUnprocessableEntity, "UNIT_RESOLUTION", "unidad o capa no reconocida para el ítem"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente en bodega"},
	{domain.ErrExceedsLoadedQuantity, fiber.StatusConflict, "EXCEEDS_LOADED_QUANTITY", "la devolución supera lo cargado en el vehículo"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE", "operación no permitida en el estado actual"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflicto con otra operación en curso"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el recurso ya existe"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado"},
}

// writeError traduce un error de dominio a su respuesta HTTP; lo no reconocido es 500
// y se registra sin exponer el detalle al cliente.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return c.Status(m.status).JSON(dto.ErrorResponse{
				Code:    m.code,
				Message: errorMessage(err, m.message),
				Details: errorDetails(err),
			})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func errorMessage(err error, fallback string) string {
	if de, ok := domain.AsError(err); ok && de.Detail != "" {
		return fallback + ": " + de.Detail
	}
	return fallback
}

func errorDetails(err error) map[string]any {
	de, ok := domain.AsError(err)
	if !ok {
		return nil
	}
	d := map[string]any{}
	if de.ItemID != "" {
		d["inventoryId"] = de.ItemID
	}
	if de.VehicleID != "" {
		d["vehicleId"] = de.VehicleID
	}
	if de.TransferID != "" {
		d["transferId"] = de.TransferID
	}
	if de.LayerIndex != nil {
		d["layerIndex"] = *de.LayerIndex
	}
	if de.Unit != "" {
		d["unit"] = de.Unit
	}
	if de.Requested != 0 || de.Available != 0 {
		d["requested"] = de.Requested
		d["available"] = de.Available
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

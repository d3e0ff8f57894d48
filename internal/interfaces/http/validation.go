package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseBody decodifica el JSON del cuerpo y aplica las reglas `validate` del DTO.
// Si ok es false la respuesta 400 ya está escrita y el handler debe retornar err.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
	}
	return checkStruct(c, out)
}

// parsePage lee limit/offset de la query; limit por defecto 20, máximo 100.
func parsePage(c *fiber.Ctx) (dto.PageRequest, bool, error) {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return page, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit/offset inválidos"})
	}
	ok, err := checkStruct(c, &page)
	if !ok {
		return page, false, err
	}
	page.DefaultPage()
	return page, true, nil
}

func checkStruct(c *fiber.Ctx, out any) (bool, error) {
	err := validate.Struct(out)
	if err == nil {
		return true, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    "VALIDATION",
		Message: "campos inválidos: " + strings.Join(msgs, ", "),
		Details: fields,
	})
}

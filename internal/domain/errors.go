package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                  = errors.New("recurso no encontrado")
	ErrValidation                = errors.New("entrada inválida")
	ErrInvalidPackagingStructure = errors.New("estructura de empaque inválida")
	ErrUnitResolution            = errors.New("unidad no reconocida")
	ErrInsufficientStock         = errors.New("stock insuficiente")
	ErrExceedsLoadedQuantity     = errors.New("la cantidad excede lo cargado en el vehículo")
	ErrInvalidState              = errors.New("transición de estado inválida")
	ErrConflict                  = errors.New("conflicto con el estado actual")
	ErrDuplicate                 = errors.New("recurso duplicado")
	ErrUnauthorized              = errors.New("no autorizado")
	ErrForbidden                 = errors.New("acceso denegado")
)

// Error describe un fallo de dominio con la llave afectada (ítem, vehículo, capa, documento)
// para que la capa HTTP pueda construir un mensaje preciso. Unwrap devuelve Kind.
type Error struct {
	Kind       error
	ItemID     string
	VehicleID  string
	TransferID string
	LayerIndex *int
	Unit       string
	Requested  int64
	Available  int64
	Detail     string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	var keys []string
	if e.TransferID != "" {
		keys = append(keys, "transfer="+e.TransferID)
	}
	if e.VehicleID != "" {
		keys = append(keys, "vehicle="+e.VehicleID)
	}
	if e.ItemID != "" {
		keys = append(keys, "item="+e.ItemID)
	}
	if e.LayerIndex != nil {
		keys = append(keys, fmt.Sprintf("layer=%d", *e.LayerIndex))
	}
	if e.Unit != "" {
		keys = append(keys, "unit="+e.Unit)
	}
	if e.Requested != 0 || e.Available != 0 {
		keys = append(keys, fmt.Sprintf("requested=%d", e.Requested), fmt.Sprintf("available=%d", e.Available))
	}
	if len(keys) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(keys, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

func layerPtr(layer int) *int {
	l := layer
	return &l
}

// Validation construye un ErrValidation con detalle.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// InvalidPackaging construye un ErrInvalidPackagingStructure para la capa indicada.
func InvalidPackaging(layer int, format string, args ...any) error {
	return &Error{Kind: ErrInvalidPackagingStructure, LayerIndex: layerPtr(layer), Detail: fmt.Sprintf(format, args...)}
}

// UnitResolution indica que la unidad o el índice de capa no se pudo resolver para el ítem.
func UnitResolution(itemID, unit string, layerIndex *int) error {
	return &Error{Kind: ErrUnitResolution, ItemID: itemID, Unit: unit, LayerIndex: layerIndex}
}

// InsufficientStock indica que la bodega no alcanza para la salida solicitada (en piezas base).
func InsufficientStock(itemID string, layer int, requested, available int64) error {
	return &Error{Kind: ErrInsufficientStock, ItemID: itemID, LayerIndex: layerPtr(layer), Requested: requested, Available: available}
}

// ExceedsLoaded indica que una devolución supera lo cargado (en unidades de la capa).
func ExceedsLoaded(vehicleID, itemID string, layer int, requested, loaded int64) error {
	return &Error{Kind: ErrExceedsLoadedQuantity, VehicleID: vehicleID, ItemID: itemID, LayerIndex: layerPtr(layer), Requested: requested, Available: loaded}
}

// InvalidState indica que la transición no es válida desde el estado actual del documento.
func InvalidState(transferID, from, action string) error {
	return &Error{Kind: ErrInvalidState, TransferID: transferID, Detail: fmt.Sprintf("no se puede %s desde %q", action, from)}
}

// NotFound indica el recurso faltante (item, vehicle o transfer).
func NotFound(resource, id string) error {
	e := &Error{Kind: ErrNotFound, Detail: resource}
	switch resource {
	case "item":
		e.ItemID = id
	case "vehicle":
		e.VehicleID = id
	case "transfer":
		e.TransferID = id
	default:
		e.Detail = resource + " " + id
	}
	return e
}

// AsError extrae el *Error de dominio de una cadena de errores, si existe.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

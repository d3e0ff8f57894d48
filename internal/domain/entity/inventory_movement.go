package entity

import "time"

// Tipos de movimiento del libro mayor de inventario.
const (
	MovementTypeReplenish = "REPLENISH" // entrada por factura de proveedor o ingreso manual
	MovementTypeIssue     = "ISSUE"     // salida de bodega hacia vehículo
	MovementTypeReturn    = "RETURN"    // devolución de vehículo a bodega
	MovementTypeAdjust    = "ADJUSTMENT"
)

// InventoryMovement es una línea del diario de movimientos. BasePieces es el delta sobre la
// bodega central (negativo en salidas); VehicleID vacío en reposiciones.
type InventoryMovement struct {
	ID            string
	TransactionID string
	ItemID        string
	VehicleID     string
	Type          string
	LayerIndex    int
	Unit          string
	Quantity      int64
	BasePieces    int64
	Reference     string // factura de proveedor o ID de la transferencia
	CreatedAt     time.Time
	CreatedBy     string
}

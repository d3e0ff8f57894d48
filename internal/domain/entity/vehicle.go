package entity

import "time"

// Vehicle representa un vehículo de reparto que recibe stock de la bodega central.
type Vehicle struct {
	ID        string
	Name      string
	Plate     string
	Driver    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VehicleStockEntry cantidad cargada en un vehículo para un ítem y una capa,
// expresada en la unidad de esa capa (no convertida a piezas base).
type VehicleStockEntry struct {
	VehicleID  string
	ItemID     string
	LayerIndex int
	Quantity   int64
	UpdatedAt  time.Time
}

package dto

import "time"

// CreateVehicleRequest body para POST /api/vehicles.
type CreateVehicleRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Plate  string `json:"plate" validate:"required,max=20"`
	Driver string `json:"driver" validate:"max=100"`
}

// VehicleResponse vehículo de reparto.
type VehicleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plate     string    `json:"plate"`
	Driver    string    `json:"driver,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// VehicleListResponse respuesta de GET /api/vehicles.
type VehicleListResponse struct {
	Items []VehicleResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// VehicleStockEntryResponse entrada cargada con su equivalencia en piezas base.
type VehicleStockEntryResponse struct {
	InventoryID   string `json:"inventoryId"`
	ProductName   string `json:"productName"`
	LayerIndex    int    `json:"layerIndex"`
	Unit          string `json:"unit"`
	Quantity      int64  `json:"quantity"`
	PiecesPerUnit int64  `json:"piecesPerUnit"`
	BasePieces    int64  `json:"basePieces"`
}

// VehicleItemTotal total por ítem en piezas base.
type VehicleItemTotal struct {
	InventoryID     string `json:"inventoryId"`
	ProductName     string `json:"productName"`
	TotalBasePieces int64  `json:"totalBasePieces"`
}

// VehicleInventoryResponse respuesta de GET /api/vehicles/:id/inventory.
type VehicleInventoryResponse struct {
	VehicleID string                      `json:"vehicleId"`
	Entries   []VehicleStockEntryResponse `json:"entries"`
	Totals    []VehicleItemTotal          `json:"totals"`
}

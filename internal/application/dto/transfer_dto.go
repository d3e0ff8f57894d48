package dto

import (
	"time"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// TransferLayerRequest capa solicitada: layerIndex y/o unit.
type TransferLayerRequest struct {
	LayerIndex *int   `json:"layerIndex,omitempty" validate:"omitempty,min=0"`
	Unit       string `json:"unit,omitempty" validate:"required_without=LayerIndex,max=50"`
	Quantity   int64  `json:"quantity" validate:"gt=0"`
}

// TransferItemRequest capas solicitadas de un ítem.
type TransferItemRequest struct {
	InventoryID string                 `json:"inventoryId" validate:"required"`
	Layers      []TransferLayerRequest `json:"layers" validate:"required,min=1,dive"`
}

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	VehicleID string                `json:"vehicleId" validate:"required"`
	Direction string                `json:"direction,omitempty" validate:"omitempty,oneof=issue return"`
	Items     []TransferItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CancelTransferRequest body para POST /api/transfers/:id/cancel.
type CancelTransferRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ReturnLineRequest línea de devolución.
type ReturnLineRequest struct {
	InventoryID string `json:"inventoryId" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	LayerIndex  *int   `json:"layerIndex,omitempty" validate:"omitempty,min=0"`
	Unit        string `json:"unit,omitempty" validate:"required_without=LayerIndex,max=50"`
}

// ReturnStockRequest body para POST /api/vehicles/:id/returns.
type ReturnStockRequest struct {
	Items []ReturnLineRequest `json:"items" validate:"required,min=1,dive"`
}

// TransferResponse documento de transferencia.
type TransferResponse struct {
	ID           string                `json:"id"`
	VehicleID    string                `json:"vehicleId"`
	Direction    string                `json:"direction"`
	Status       string                `json:"status"`
	Items        []entity.TransferItem `json:"items"`
	CancelReason string                `json:"cancelReason,omitempty"`
	CreatedBy    string                `json:"createdBy,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	ApprovedAt   *time.Time            `json:"approvedAt,omitempty"`
	ConfirmedAt  *time.Time            `json:"confirmedAt,omitempty"`
	CancelledAt  *time.Time            `json:"cancelledAt,omitempty"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// TransferListResponse respuesta de GET /api/vehicles/:id/transfers.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewTransferResponse convierte el documento sin compartir slices con la entidad.
func NewTransferResponse(d *entity.TransferDocument) TransferResponse {
	c := d.Clone()
	return TransferResponse{
		ID:           c.ID,
		VehicleID:    c.VehicleID,
		Direction:    c.Direction,
		Status:       c.Status,
		Items:        c.Items,
		CancelReason: c.CancelReason,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt,
		ApprovedAt:   c.ApprovedAt,
		ConfirmedAt:  c.ConfirmedAt,
		CancelledAt:  c.CancelledAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

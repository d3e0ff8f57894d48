package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
)

// CreateInventoryItemRequest body para POST /api/inventory.
// packagingStructure acepta arreglo plano, forma heredada {outer, inner} o una unidad suelta.
type CreateInventoryItemRequest struct {
	ProductName        string                   `json:"productName" validate:"required,max=200"`
	Category           string                   `json:"category" validate:"max=100"`
	BuyingPrice        decimal.Decimal          `json:"buyingPrice"`
	SellingPrice       decimal.Decimal          `json:"sellingPrice"`
	PackagingStructure inventory.PackagingInput `json:"packagingStructure" swaggertype:"object"`
	InitialQuantity    int64                    `json:"initialQuantity" validate:"min=0"`
	InitialLayerIndex  *int                     `json:"initialLayerIndex,omitempty" validate:"omitempty,min=0"`
	InitialUnit        string                   `json:"initialUnit,omitempty" validate:"max=50"`
}

// ReplenishRequest body para POST /api/inventory/:id/replenish.
type ReplenishRequest struct {
	Quantity   int64            `json:"quantity" validate:"gt=0"`
	LayerIndex *int             `json:"layerIndex,omitempty" validate:"omitempty,min=0"`
	Unit       string           `json:"unit,omitempty" validate:"required_without=LayerIndex,max=50"`
	InvoiceRef string           `json:"invoiceRef" validate:"max=100"`
	UnitCost   *decimal.Decimal `json:"unitCost,omitempty" swaggertype:"string"`
}

// LayerStockResponse stock derivado por capa.
type LayerStockResponse struct {
	LayerIndex    int    `json:"layerIndex"`
	Unit          string `json:"unit"`
	PiecesPerUnit int64  `json:"piecesPerUnit"`
	Stock         int64  `json:"stock"`
}

// InventoryItemResponse ítem con su estructura de empaque y el stock derivado de cada capa.
type InventoryItemResponse struct {
	ID                 string                  `json:"id"`
	ProductName        string                  `json:"productName"`
	Category           string                  `json:"category"`
	BuyingPrice        decimal.Decimal         `json:"buyingPrice"`
	SellingPrice       decimal.Decimal         `json:"sellingPrice"`
	PackagingStructure []entity.PackagingLayer `json:"packagingStructure"`
	TotalBasePieces    int64                   `json:"totalBasePieces"`
	LayerStocks        []LayerStockResponse    `json:"layerStocks"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

// InventoryListResponse respuesta de GET /api/inventory.
type InventoryListResponse struct {
	Items []InventoryItemResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// NewInventoryItemResponse arma la respuesta derivando el stock de cada capa.
func NewInventoryItemResponse(item *entity.InventoryItem) (InventoryItemResponse, error) {
	stocks, err := inventory.DeriveLayerStocks(item.PackagingStructure, item.TotalBasePieces)
	if err != nil {
		return InventoryItemResponse{}, err
	}
	out := InventoryItemResponse{
		ID:                 item.ID,
		ProductName:        item.ProductName,
		Category:           item.Category,
		BuyingPrice:        item.BuyingPrice,
		SellingPrice:       item.SellingPrice,
		PackagingStructure: append([]entity.PackagingLayer(nil), item.PackagingStructure...),
		TotalBasePieces:    item.TotalBasePieces,
		LayerStocks:        make([]LayerStockResponse, len(stocks)),
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
	for i, s := range stocks {
		out.LayerStocks[i] = LayerStockResponse(s)
	}
	return out, nil
}

// MovementResponse línea del diario de movimientos.
type MovementResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	ItemID        string    `json:"inventoryId"`
	VehicleID     string    `json:"vehicleId,omitempty"`
	Type          string    `json:"type"`
	LayerIndex    int       `json:"layerIndex"`
	Unit          string    `json:"unit"`
	Quantity      int64     `json:"quantity"`
	BasePieces    int64     `json:"basePieces"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy,omitempty"`
}

// MovementListResponse respuesta de GET /api/inventory/:id/movements.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewMovementResponse convierte la entidad.
func NewMovementResponse(m *entity.InventoryMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		ItemID:        m.ItemID,
		VehicleID:     m.VehicleID,
		Type:          m.Type,
		LayerIndex:    m.LayerIndex,
		Unit:          m.Unit,
		Quantity:      m.Quantity,
		BasePieces:    m.BasePieces,
		Reference:     m.Reference,
		CreatedAt:     m.CreatedAt,
		CreatedBy:     m.CreatedBy,
	}
}

package inventory

import (
	"context"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// Adaptadores request HTTP -> entradas de los casos de uso.

// CreateItemFromRequest adapta dto.CreateInventoryItemRequest a CreateItem.
func (c *Catalog) CreateItemFromRequest(ctx context.Context, userID string, in dto.CreateInventoryItemRequest) (*dto.InventoryItemResponse, error) {
	return c.CreateItem(ctx, CreateItemInput{
		ProductName:       in.ProductName,
		Category:          in.Category,
		BuyingPrice:       in.BuyingPrice,
		SellingPrice:      in.SellingPrice,
		Packaging:         in.PackagingStructure,
		InitialQuantity:   in.InitialQuantity,
		InitialLayerIndex: in.InitialLayerIndex,
		InitialUnit:       in.InitialUnit,
		UserID:            userID,
	})
}

// ReplenishFromRequest adapta dto.ReplenishRequest a Replenish.
func (l *InventoryLedger) ReplenishFromRequest(ctx context.Context, itemID, userID string, in dto.ReplenishRequest) (*entity.InventoryItem, error) {
	return l.Replenish(ctx, ReplenishInput{
		ItemID:     itemID,
		Quantity:   in.Quantity,
		LayerIndex: in.LayerIndex,
		Unit:       in.Unit,
		InvoiceRef: in.InvoiceRef,
		UnitCost:   in.UnitCost,
		UserID:     userID,
	})
}

// CreateFromRequest adapta dto.CreateTransferRequest a Create.
func (w *TransferWorkflow) CreateFromRequest(ctx context.Context, userID string, in dto.CreateTransferRequest) (*entity.TransferDocument, error) {
	input := CreateTransferInput{
		VehicleID: in.VehicleID,
		Direction: in.Direction,
		UserID:    userID,
		Items:     make([]TransferItemRequest, len(in.Items)),
	}
	for i, it := range in.Items {
		layers := make([]LayerRequest, len(it.Layers))
		for j, ln := range it.Layers {
			layers[j] = LayerRequest{LayerIndex: ln.LayerIndex, Unit: ln.Unit, Quantity: ln.Quantity}
		}
		input.Items[i] = TransferItemRequest{InventoryID: it.InventoryID, Layers: layers}
	}
	return w.Create(ctx, input)
}

// ReturnStockFromRequest adapta dto.ReturnStockRequest a ReturnStock.
func (w *TransferWorkflow) ReturnStockFromRequest(ctx context.Context, vehicleID, userID string, in dto.ReturnStockRequest) (*entity.TransferDocument, error) {
	input := ReturnInput{VehicleID: vehicleID, UserID: userID, Items: make([]ReturnLine, len(in.Items))}
	for i, ln := range in.Items {
		input.Items[i] = ReturnLine{
			InventoryID: ln.InventoryID,
			Quantity:    ln.Quantity,
			LayerIndex:  ln.LayerIndex,
			Unit:        ln.Unit,
		}
	}
	return w.ReturnStock(ctx, input)
}

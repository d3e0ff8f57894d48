package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// InventoryLedger libro mayor de la bodega central. TotalBasePieces es el único contador
// autoritativo; toda mutación pasa por una transacción con bloqueo de fila del ítem.
type InventoryLedger struct {
	txRunner TxRunner
	itemRepo repository.InventoryItemRepository
	movRepo  repository.InventoryMovementRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewInventoryLedger construye el ledger de bodega.
func NewInventoryLedger(
	txRunner TxRunner,
	itemRepo repository.InventoryItemRepository,
	movRepo repository.InventoryMovementRepository,
	log *logger.Logger,
) *InventoryLedger {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryLedger{
		txRunner: txRunner,
		itemRepo: itemRepo,
		movRepo:  movRepo,
		log:      log.Component("inventory_ledger"),
		now:      time.Now,
	}
}

// Available stock derivado del ítem en la capa indicada (floor(total / piecesPerUnit)).
func (l *InventoryLedger) Available(ctx context.Context, itemID string, layerIndex int) (int64, error) {
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, domain.NotFound("item", itemID)
	}
	if layerIndex < 0 || layerIndex >= len(item.PackagingStructure) {
		return 0, domain.UnitResolution(itemID, "", &layerIndex)
	}
	ppu, err := inventory.PiecesPerUnit(item.PackagingStructure, layerIndex)
	if err != nil {
		return 0, err
	}
	return item.TotalBasePieces / ppu, nil
}

// ApplyDelta suma (o resta) piezas base al ítem en una sola transacción. Si el resultado
// queda negativo devuelve ErrInsufficientStock sin modificar nada.
func (l *InventoryLedger) ApplyDelta(ctx context.Context, itemID string, deltaBasePieces int64, userID string) error {
	now := l.now()
	err := l.txRunner.Run(ctx, func(r TxRepos) error {
		item, err := lockItem(ctx, r, itemID)
		if err != nil {
			return err
		}
		base := inventory.BaseLayer(item.PackagingStructure)
		if err := applyItemDelta(ctx, r, item, deltaBasePieces, base, now); err != nil {
			return err
		}
		qty := deltaBasePieces
		if qty < 0 {
			qty = -qty
		}
		return r.Movements.Create(ctx, &entity.InventoryMovement{
			ID:            uuid.New().String(),
			TransactionID: uuid.New().String(),
			ItemID:        item.ID,
			Type:          entity.MovementTypeAdjust,
			LayerIndex:    base,
			Unit:          item.PackagingStructure[base].Unit,
			Quantity:      qty,
			BasePieces:    deltaBasePieces,
			CreatedAt:     now,
			CreatedBy:     userID,
		})
	})
	if err != nil {
		return err
	}
	l.log.Info().Str("item_id", itemID).Int64("delta", deltaBasePieces).Msg("ajuste de stock aplicado")
	return nil
}

// ReplenishInput entrada de reposición por factura de proveedor.
// UnitCost es el costo de una unidad de la capa indicada (opcional).
type ReplenishInput struct {
	ItemID     string
	Quantity   int64
	LayerIndex *int
	Unit       string
	InvoiceRef string
	UnitCost   *decimal.Decimal
	UserID     string
}

// Replenish resuelve la unidad, convierte a piezas base y las suma a la bodega. Con UnitCost
// recalcula el costo promedio ponderado por pieza base.
func (l *InventoryLedger) Replenish(ctx context.Context, in ReplenishInput) (*entity.InventoryItem, error) {
	if in.ItemID == "" {
		return nil, domain.Validation("itemId es obligatorio")
	}
	if in.Quantity <= 0 {
		return nil, domain.Validation("quantity debe ser mayor que cero")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.Validation("unitCost no puede ser negativo")
	}

	now := l.now()
	txID := uuid.New().String()
	var result *entity.InventoryItem
	err := l.txRunner.Run(ctx, func(r TxRepos) error {
		item, err := lockItem(ctx, r, in.ItemID)
		if err != nil {
			return err
		}
		layer, err := resolveForItem(item, in.LayerIndex, in.Unit)
		if err != nil {
			return err
		}
		ppu, err := inventory.PiecesPerUnit(item.PackagingStructure, layer)
		if err != nil {
			return err
		}
		pieces, err := inventory.ToBasePieces(item.PackagingStructure, layer, in.Quantity)
		if err != nil {
			return err
		}

		if in.UnitCost != nil {
			newCost := inventory.CostCalculator(item.TotalBasePieces, item.BuyingPrice, pieces, ppu, *in.UnitCost)
			if err := r.Items.UpdateBuyingPrice(ctx, item.ID, newCost); err != nil {
				return err
			}
			item.BuyingPrice = newCost
		}
		if err := applyItemDelta(ctx, r, item, pieces, layer, now); err != nil {
			return err
		}
		if err := r.Movements.Create(ctx, &entity.InventoryMovement{
			ID:            uuid.New().String(),
			TransactionID: txID,
			ItemID:        item.ID,
			Type:          entity.MovementTypeReplenish,
			LayerIndex:    layer,
			Unit:          item.PackagingStructure[layer].Unit,
			Quantity:      in.Quantity,
			BasePieces:    pieces,
			Reference:     in.InvoiceRef,
			CreatedAt:     now,
			CreatedBy:     in.UserID,
		}); err != nil {
			return err
		}
		result = item.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("item_id", result.ID).
		Str("invoice_ref", in.InvoiceRef).
		Int64("total_base_pieces", result.TotalBasePieces).
		Msg("reposición registrada")
	return result, nil
}

// History movimientos del ítem, más recientes primero.
func (l *InventoryLedger) History(ctx context.Context, itemID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("item", itemID)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return l.movRepo.ListByItem(ctx, itemID, limit, offset)
}

// lockItem bloquea la fila del ítem dentro de la transacción.
func lockItem(ctx context.Context, r TxRepos, itemID string) (*entity.InventoryItem, error) {
	item, err := r.Items.GetForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("item", itemID)
	}
	return item, nil
}

// applyItemDelta aplica el delta sobre un ítem ya bloqueado y deja item actualizado.
// layer solo se usa para identificar la capa en el error.
func applyItemDelta(ctx context.Context, r TxRepos, item *entity.InventoryItem, delta int64, layer int, now time.Time) error {
	next := item.TotalBasePieces + delta
	if next < 0 {
		return domain.InsufficientStock(item.ID, layer, -delta, item.TotalBasePieces)
	}
	if err := r.Items.UpdateStock(ctx, item.ID, next); err != nil {
		return err
	}
	item.TotalBasePieces = next
	item.UpdatedAt = now
	return nil
}

// resolveForItem resuelve la capa e identifica el ítem en el error.
func resolveForItem(item *entity.InventoryItem, layerIndex *int, unit string) (int, error) {
	idx, err := inventory.Resolve(item.PackagingStructure, inventory.UnitRef{LayerIndex: layerIndex, Unit: unit})
	if err != nil {
		return 0, domain.UnitResolution(item.ID, unit, layerIndex)
	}
	return idx, nil
}

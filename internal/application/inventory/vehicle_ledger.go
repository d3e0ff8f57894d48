package inventory

import (
	"context"
	"math"
	"time"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// VehicleStockLedger stock cargado por vehículo, ítem y capa, en unidades de la capa.
// Cada llave (vehículo, ítem, capa) se muta de forma atómica.
type VehicleStockLedger struct {
	txRunner    TxRunner
	vehicleRepo repository.VehicleRepository
	itemRepo    repository.InventoryItemRepository
	stockRepo   repository.VehicleStockRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewVehicleStockLedger construye el ledger de vehículos.
func NewVehicleStockLedger(
	txRunner TxRunner,
	vehicleRepo repository.VehicleRepository,
	itemRepo repository.InventoryItemRepository,
	stockRepo repository.VehicleStockRepository,
	log *logger.Logger,
) *VehicleStockLedger {
	if log == nil {
		log = logger.Nop()
	}
	return &VehicleStockLedger{
		txRunner:    txRunner,
		vehicleRepo: vehicleRepo,
		itemRepo:    itemRepo,
		stockRepo:   stockRepo,
		log:         log.Component("vehicle_ledger"),
		now:         time.Now,
	}
}

// Loaded entradas del vehículo para un ítem, ordenadas por capa.
func (l *VehicleStockLedger) Loaded(ctx context.Context, vehicleID, itemID string) ([]*entity.VehicleStockEntry, error) {
	if err := l.requireVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	return l.stockRepo.ListByVehicleAndItem(ctx, vehicleID, itemID)
}

// TotalBasePieces total en piezas base de las entradas según la estructura del ítem.
func (l *VehicleStockLedger) TotalBasePieces(entries []*entity.VehicleStockEntry, layers []entity.PackagingLayer) (int64, error) {
	return VehicleBasePieces(entries, layers)
}

// VehicleBasePieces suma quantity * piecesPerUnit(capa) de cada entrada.
func VehicleBasePieces(entries []*entity.VehicleStockEntry, layers []entity.PackagingLayer) (int64, error) {
	var total int64
	for _, e := range entries {
		pieces, err := inventory.ToBasePieces(layers, e.LayerIndex, e.Quantity)
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt64-pieces {
			return 0, domain.Validation("el total del vehículo desborda")
		}
		total += pieces
	}
	return total, nil
}

// ApplyIssueDelta suma qty unidades de la capa al vehículo; crea la entrada si no existe.
func (l *VehicleStockLedger) ApplyIssueDelta(ctx context.Context, vehicleID, itemID string, layerIndex int, qty int64) error {
	if err := l.checkKey(ctx, vehicleID, itemID, layerIndex, qty); err != nil {
		return err
	}
	now := l.now()
	return l.txRunner.Run(ctx, func(r TxRepos) error {
		_, err := loadVehicle(ctx, r, vehicleID, itemID, layerIndex, qty, now)
		return err
	})
}

// ApplyReturnDelta resta qty unidades; si supera lo cargado devuelve ErrExceedsLoadedQuantity.
func (l *VehicleStockLedger) ApplyReturnDelta(ctx context.Context, vehicleID, itemID string, layerIndex int, qty int64) error {
	if err := l.checkKey(ctx, vehicleID, itemID, layerIndex, qty); err != nil {
		return err
	}
	now := l.now()
	return l.txRunner.Run(ctx, func(r TxRepos) error {
		entry, err := r.VehicleStock.GetForUpdate(ctx, vehicleID, itemID, layerIndex)
		if err != nil {
			return err
		}
		return unloadVehicle(ctx, r, entry, qty, now)
	})
}

func (l *VehicleStockLedger) requireVehicle(ctx context.Context, vehicleID string) error {
	v, err := l.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if v == nil {
		return domain.NotFound("vehicle", vehicleID)
	}
	return nil
}

func (l *VehicleStockLedger) checkKey(ctx context.Context, vehicleID, itemID string, layerIndex int, qty int64) error {
	if qty <= 0 {
		return domain.Validation("quantity debe ser mayor que cero")
	}
	if err := l.requireVehicle(ctx, vehicleID); err != nil {
		return err
	}
	item, err := l.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.NotFound("item", itemID)
	}
	if layerIndex < 0 || layerIndex >= len(item.PackagingStructure) {
		return domain.UnitResolution(itemID, "", &layerIndex)
	}
	return nil
}

// loadVehicle bloquea (creando si falta) la entrada y suma qty.
func loadVehicle(ctx context.Context, r TxRepos, vehicleID, itemID string, layerIndex int, qty int64, now time.Time) (*entity.VehicleStockEntry, error) {
	entry, err := r.VehicleStock.GetForUpdate(ctx, vehicleID, itemID, layerIndex)
	if err != nil {
		return nil, err
	}
	if entry.Quantity > math.MaxInt64-qty {
		return nil, domain.Validation("la carga del vehículo desborda")
	}
	entry.Quantity += qty
	entry.UpdatedAt = now
	if err := r.VehicleStock.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// unloadVehicle resta qty de una entrada ya bloqueada.
func unloadVehicle(ctx context.Context, r TxRepos, entry *entity.VehicleStockEntry, qty int64, now time.Time) error {
	if qty > entry.Quantity {
		return domain.ExceedsLoaded(entry.VehicleID, entry.ItemID, entry.LayerIndex, qty, entry.Quantity)
	}
	entry.Quantity -= qty
	entry.UpdatedAt = now
	return r.VehicleStock.Upsert(ctx, entry)
}

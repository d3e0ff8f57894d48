package repository

import (
	"context"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia para el diario de movimientos.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.InventoryMovement, error)
}

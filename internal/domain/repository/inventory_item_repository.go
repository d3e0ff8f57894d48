package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// InventoryItemRepository define el puerto de persistencia para los ítems de la bodega central.
// GetByID y GetForUpdate devuelven (nil, nil) si el ítem no existe.
type InventoryItemRepository interface {
	Create(ctx context.Context, item *entity.InventoryItem) error
	GetByID(ctx context.Context, id string) (*entity.InventoryItem, error)
	// GetForUpdate bloquea el ítem hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error)
	List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error)
	UpdateStock(ctx context.Context, id string, totalBasePieces int64) error
	UpdateBuyingPrice(ctx context.Context, id string, price decimal.Decimal) error
	Delete(ctx context.Context, id string) error
}

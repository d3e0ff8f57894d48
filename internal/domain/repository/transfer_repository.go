package repository

import (
	"context"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// TransferRepository puerto de persistencia de documentos de transferencia.
type TransferRepository interface {
	Create(ctx context.Context, doc *entity.TransferDocument) error
	GetByID(ctx context.Context, id string) (*entity.TransferDocument, error)
	GetForUpdate(ctx context.Context, id string) (*entity.TransferDocument, error)
	// Update persiste estado, motivo de cancelación y fechas; los ítems son inmutables.
	Update(ctx context.Context, doc *entity.TransferDocument) error
	ListByVehicle(ctx context.Context, vehicleID string, limit, offset int) ([]*entity.TransferDocument, error)
	HasOpenForItem(ctx context.Context, itemID string) (bool, error)
}

package repository

import (
	"context"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// VehicleRepository define el puerto de persistencia para vehículos de reparto.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *entity.Vehicle) error
	GetByID(ctx context.Context, id string) (*entity.Vehicle, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Vehicle, error)
}

// VehicleStockRepository puerto del stock cargado por vehículo, ítem y capa.
type VehicleStockRepository interface {
	// GetForUpdate crea la fila en cero si no existe y la bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, vehicleID, itemID string, layerIndex int) (*entity.VehicleStockEntry, error)
	Upsert(ctx context.Context, entry *entity.VehicleStockEntry) error
	ListByVehicle(ctx context.Context, vehicleID string) ([]*entity.VehicleStockEntry, error)
	ListByVehicleAndItem(ctx context.Context, vehicleID, itemID string) ([]*entity.VehicleStockEntry, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.VehicleStockEntry, error)
}

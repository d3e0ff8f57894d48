package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

var (
	_ repository.VehicleRepository      = (*VehicleRepo)(nil)
	_ repository.VehicleStockRepository = (*VehicleStockRepo)(nil)
)

// VehicleRepo implementación del puerto VehicleRepository sobre PostgreSQL.
type VehicleRepo struct {
	q Querier
}

// NewVehicleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVehicleRepository(q Querier) *VehicleRepo {
	return &VehicleRepo{q: q}
}

// Create persiste un vehículo. La placa es única.
func (r *VehicleRepo) Create(ctx context.Context, v *entity.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, name, plate, driver, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, v.ID, v.Name, v.Plate, v.Driver, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

// GetByID obtiene un vehículo por ID.
func (r *VehicleRepo) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	var v entity.Vehicle
	err := r.q.QueryRow(ctx,
		`SELECT id, name, plate, driver, created_at, updated_at FROM vehicles WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &v.Plate, &v.Driver, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &v, nil
}

// List lista vehículos por nombre.
func (r *VehicleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Vehicle, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, plate, driver, created_at, updated_at FROM vehicles ORDER BY name, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var list []*entity.Vehicle
	for rows.Next() {
		var v entity.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate, &v.Driver, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}

// VehicleStockRepo stock cargado por (vehículo, ítem, capa) sobre PostgreSQL.
type VehicleStockRepo struct {
	q Querier
}

// NewVehicleStockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVehicleStockRepository(q Querier) *VehicleStockRepo {
	return &VehicleStockRepo{q: q}
}

// GetForUpdate inserta la fila en cero si falta y la bloquea con FOR UPDATE.
func (r *VehicleStockRepo) GetForUpdate(ctx context.Context, vehicleID, itemID string, layerIndex int) (*entity.VehicleStockEntry, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO vehicle_stock (vehicle_id, item_id, layer_index, quantity, updated_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (vehicle_id, item_id, layer_index) DO NOTHING`,
		vehicleID, itemID, layerIndex)
	if err != nil {
		return nil, fmt.Errorf("ensure vehicle stock: %w", err)
	}
	var e entity.VehicleStockEntry
	err = r.q.QueryRow(ctx, `
		SELECT vehicle_id, item_id, layer_index, quantity, updated_at
		FROM vehicle_stock
		WHERE vehicle_id = $1 AND item_id = $2 AND layer_index = $3
		FOR UPDATE`,
		vehicleID, itemID, layerIndex,
	).Scan(&e.VehicleID, &e.ItemID, &e.LayerIndex, &e.Quantity, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock vehicle stock: %w", err)
	}
	return &e, nil
}

// Upsert persiste la cantidad de la llave.
func (r *VehicleStockRepo) Upsert(ctx context.Context, e *entity.VehicleStockEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO vehicle_stock (vehicle_id, item_id, layer_index, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vehicle_id, item_id, layer_index)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		e.VehicleID, e.ItemID, e.LayerIndex, e.Quantity, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert vehicle stock: %w", err)
	}
	return nil
}

// ListByVehicle todas las filas del vehículo, incluidas las que están en cero.
func (r *VehicleStockRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(ctx, `WHERE vehicle_id = $1`, vehicleID)
}

// ListByVehicleAndItem filas de un ítem dentro del vehículo.
func (r *VehicleStockRepo) ListByVehicleAndItem(ctx context.Context, vehicleID, itemID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(ctx, `WHERE vehicle_id = $1 AND item_id = $2`, vehicleID, itemID)
}

// ListByItem filas del ítem en todos los vehículos.
func (r *VehicleStockRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(ctx, `WHERE item_id = $1`, itemID)
}

func (r *VehicleStockRepo) list(ctx context.Context, where string, args ...any) ([]*entity.VehicleStockEntry, error) {
	query := `SELECT vehicle_id, item_id, layer_index, quantity, updated_at FROM vehicle_stock ` +
		where + ` ORDER BY vehicle_id, item_id, layer_index`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicle stock: %w", err)
	}
	defer rows.Close()

	var list []*entity.VehicleStockEntry
	for rows.Next() {
		var e entity.VehicleStockEntry
		if err := rows.Scan(&e.VehicleID, &e.ItemID, &e.LayerIndex, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle stock: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

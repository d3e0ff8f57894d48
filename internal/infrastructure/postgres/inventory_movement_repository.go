package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo diario de movimientos sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento de inventario.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	var vehicleID, createdBy *string
	if m.VehicleID != "" {
		vehicleID = &m.VehicleID
	}
	if m.CreatedBy != "" {
		createdBy = &m.CreatedBy
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_movements
			(id, transaction_id, item_id, vehicle_id, type, layer_index, unit, quantity, base_pieces, reference, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.TransactionID, m.ItemID, vehicleID, m.Type, m.LayerIndex, m.Unit,
		m.Quantity, m.BasePieces, m.Reference, m.CreatedAt, createdBy,
	)
	if err != nil {
		return fmt.Errorf("create inventory movement: %w", err)
	}
	return nil
}

// ListByItem movimientos del ítem, el más reciente primero.
func (r *InventoryMovementRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, transaction_id, item_id, vehicle_id, type, layer_index, unit, quantity, base_pieces, reference, created_at, created_by
		FROM inventory_movements
		WHERE item_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3`,
		itemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.InventoryMovement
	for rows.Next() {
		var m entity.InventoryMovement
		var vehicleID, createdBy *string
		if err := rows.Scan(
			&m.ID, &m.TransactionID, &m.ItemID, &vehicleID, &m.Type, &m.LayerIndex, &m.Unit,
			&m.Quantity, &m.BasePieces, &m.Reference, &m.CreatedAt, &createdBy,
		); err != nil {
			return nil, fmt.Errorf("scan inventory movement: %w", err)
		}
		if vehicleID != nil {
			m.VehicleID = *vehicleID
		}
		if createdBy != nil {
			m.CreatedBy = *createdBy
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

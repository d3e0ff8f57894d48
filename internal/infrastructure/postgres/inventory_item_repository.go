package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

var _ repository.InventoryItemRepository = (*InventoryItemRepo)(nil)

const inventoryItemColumns = `id, product_name, category, buying_price, selling_price, packaging_structure, total_base_pieces, created_at, updated_at`

// InventoryItemRepo implementación del puerto InventoryItemRepository sobre PostgreSQL (usable con pool o tx).
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

// Create persiste un ítem; la estructura de empaque se guarda como JSONB.
func (r *InventoryItemRepo) Create(ctx context.Context, item *entity.InventoryItem) error {
	packaging, err := json.Marshal(item.PackagingStructure)
	if err != nil {
		return fmt.Errorf("marshal packaging: %w", err)
	}
	query := `
		INSERT INTO inventory_items (` + inventoryItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.q.Exec(ctx, query,
		item.ID, item.ProductName, item.Category, item.BuyingPrice, item.SellingPrice,
		packaging, item.TotalBasePieces, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *InventoryItemRepo) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryItemColumns + ` FROM inventory_items WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate obtiene el ítem con SELECT ... FOR UPDATE.
func (r *InventoryItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryItemColumns + ` FROM inventory_items WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *InventoryItemRepo) getOne(ctx context.Context, query, id string) (*entity.InventoryItem, error) {
	item, err := scanInventoryItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

// List lista ítems ordenados por nombre.
func (r *InventoryItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.InventoryItem, error) {
	query := `SELECT ` + inventoryItemColumns + ` FROM inventory_items ORDER BY product_name, id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	defer rows.Close()

	var list []*entity.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// UpdateStock fija el total en piezas base. El CHECK de la tabla rechaza negativos.
func (r *InventoryItemRepo) UpdateStock(ctx context.Context, id string, totalBasePieces int64) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE inventory_items SET total_base_pieces = $2, updated_at = NOW() WHERE id = $1`,
		id, totalBasePieces)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("item", id)
	}
	return nil
}

// UpdateBuyingPrice actualiza el costo promedio por pieza base.
func (r *InventoryItemRepo) UpdateBuyingPrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE inventory_items SET buying_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price)
	if err != nil {
		return fmt.Errorf("update buying price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("item", id)
	}
	return nil
}

// Delete elimina el ítem; las filas de vehicle_stock caen por ON DELETE CASCADE.
func (r *InventoryItemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("item", id)
	}
	return nil
}

func scanInventoryItem(row pgx.Row) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	var packaging []byte
	if err := row.Scan(
		&item.ID, &item.ProductName, &item.Category, &item.BuyingPrice, &item.SellingPrice,
		&packaging, &item.TotalBasePieces, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(packaging, &item.PackagingStructure); err != nil {
		return nil, fmt.Errorf("unmarshal packaging: %w", err)
	}
	return &item, nil
}

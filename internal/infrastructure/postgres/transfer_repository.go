package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, vehicle_id, direction, items, status, cancel_reason, created_by,
	created_at, approved_at, confirmed_at, cancelled_at, updated_at`

// TransferRepo documentos de transferencia; las líneas se guardan como JSONB inmutable.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create persiste el documento con sus líneas fotografiadas.
func (r *TransferRepo) Create(ctx context.Context, doc *entity.TransferDocument) error {
	items, err := json.Marshal(doc.Items)
	if err != nil {
		return fmt.Errorf("marshal transfer items: %w", err)
	}
	query := `INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.VehicleID, doc.Direction, items, doc.Status, doc.CancelReason, doc.CreatedBy,
		doc.CreatedAt, doc.ApprovedAt, doc.ConfirmedAt, doc.CancelledAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un documento por ID.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.TransferDocument, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetForUpdate obtiene el documento con SELECT ... FOR UPDATE.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferDocument, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) getOne(ctx context.Context, query, id string) (*entity.TransferDocument, error) {
	doc, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return doc, nil
}

// Update persiste estado, motivo y fechas.
func (r *TransferRepo) Update(ctx context.Context, doc *entity.TransferDocument) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transfers
		SET status = $2, cancel_reason = $3, approved_at = $4, confirmed_at = $5, cancelled_at = $6, updated_at = $7
		WHERE id = $1`,
		doc.ID, doc.Status, doc.CancelReason, doc.ApprovedAt, doc.ConfirmedAt, doc.CancelledAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("transfer", doc.ID)
	}
	return nil
}

// ListByVehicle documentos del vehículo, los más recientes primero.
func (r *TransferRepo) ListByVehicle(ctx context.Context, vehicleID string, limit, offset int) ([]*entity.TransferDocument, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE vehicle_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, vehicleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var list []*entity.TransferDocument
	for rows.Next() {
		doc, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// HasOpenForItem indica si algún documento pendiente o aprobado referencia el ítem.
func (r *TransferRepo) HasOpenForItem(ctx context.Context, itemID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transfers
			WHERE status IN ($2, $3)
			  AND items @> jsonb_build_array(jsonb_build_object('inventoryId', $1::text))
		)`,
		itemID, entity.TransferStatusPending, entity.TransferStatusApproved,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("open transfers for item: %w", err)
	}
	return exists, nil
}

func scanTransfer(row pgx.Row) (*entity.TransferDocument, error) {
	var d entity.TransferDocument
	var items []byte
	if err := row.Scan(
		&d.ID, &d.VehicleID, &d.Direction, &items, &d.Status, &d.CancelReason, &d.CreatedBy,
		&d.CreatedAt, &d.ApprovedAt, &d.ConfirmedAt, &d.CancelledAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &d.Items); err != nil {
		return nil, fmt.Errorf("unmarshal transfer items: %w", err)
	}
	return &d, nil
}

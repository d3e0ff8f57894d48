package entity

import (
	"time"

	"github.com/jhoicas/inventario-flota/internal/domain"
)

// Direcciones de una transferencia.
const (
	DirectionIssue  = "issue"  // bodega -> vehículo
	DirectionReturn = "return" // vehículo -> bodega
)

// Estados del documento de transferencia.
const (
	TransferStatusPending   = "pending"
	TransferStatusApproved  = "approved"
	TransferStatusConfirmed = "confirmed" // recogido por el vehículo
	TransferStatusCancelled = "cancelled"
)

// Eventos que disparan transiciones.
const (
	TransferEventApprove = "approve"
	TransferEventConfirm = "confirm"
	TransferEventCancel  = "cancel"
)

// TransferLayer línea por capa, fotografiada al crear el documento; nunca se recalcula
// contra una estructura de empaque posterior.
type TransferLayer struct {
	LayerIndex    int    `json:"layerIndex"`
	Unit          string `json:"unit"`
	Quantity      int64  `json:"quantity"`
	PiecesPerUnit int64  `json:"piecesPerUnit"`
	BasePieces    int64  `json:"basePieces"`
}

// TransferItem agrupa las capas solicitadas de un ítem.
type TransferItem struct {
	InventoryID string          `json:"inventoryId"`
	Layers      []TransferLayer `json:"layers"`
}

// BasePieces suma las piezas base de todas las capas del ítem.
func (ti TransferItem) BasePieces() int64 {
	var total int64
	for _, l := range ti.Layers {
		total += l.BasePieces
	}
	return total
}

// TransferDocument documento de salida (issue) o devolución (return) de un vehículo.
type TransferDocument struct {
	ID           string
	VehicleID    string
	Direction    string
	Items        []TransferItem
	Status       string
	CancelReason string
	CreatedBy    string
	CreatedAt    time.Time
	ApprovedAt   *time.Time
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	UpdatedAt    time.Time
}

// Clone copia profunda para evitar alias entre transacciones.
func (d *TransferDocument) Clone() *TransferDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Items = make([]TransferItem, len(d.Items))
	for i, it := range d.Items {
		c.Items[i] = TransferItem{InventoryID: it.InventoryID, Layers: append([]TransferLayer(nil), it.Layers...)}
	}
	c.ApprovedAt = cloneTime(d.ApprovedAt)
	c.ConfirmedAt = cloneTime(d.ConfirmedAt)
	c.CancelledAt = cloneTime(d.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsOpen indica si el documento aún no llegó a un estado terminal.
func (d *TransferDocument) IsOpen() bool {
	return d.Status == TransferStatusPending || d.Status == TransferStatusApproved
}

// transitions: estado actual -> evento -> estado destino.
var transitions = map[string]map[string]string{
	TransferStatusPending: {
		TransferEventApprove: TransferStatusApproved,
		TransferEventCancel:  TransferStatusCancelled,
	},
	TransferStatusApproved: {
		TransferEventConfirm: TransferStatusConfirmed,
	},
}

// NextStatus evalúa la transición sin mutar el documento.
// Aprobar solo aplica a salidas; las devoluciones nacen confirmadas.
func (d *TransferDocument) NextStatus(event string) (string, error) {
	if event == TransferEventApprove && d.Direction != DirectionIssue {
		return "", domain.InvalidState(d.ID, d.Status, event)
	}
	to, ok := transitions[d.Status][event]
	if !ok {
		return "", domain.InvalidState(d.ID, d.Status, event)
	}
	return to, nil
}

// Apply ejecuta la transición y sella la fecha correspondiente.
func (d *TransferDocument) Apply(event string, now time.Time) error {
	to, err := d.NextStatus(event)
	if err != nil {
		return err
	}
	d.Status = to
	d.UpdatedAt = now
	switch to {
	case TransferStatusApproved:
		d.ApprovedAt = &now
	case TransferStatusConfirmed:
		d.ConfirmedAt = &now
	case TransferStatusCancelled:
		d.CancelledAt = &now
	}
	return nil
}

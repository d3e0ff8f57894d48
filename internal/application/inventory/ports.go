package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Items        repository.InventoryItemRepository
	VehicleStock repository.VehicleStockRepository
	Transfers    repository.TransferRepository
	Movements    repository.InventoryMovementRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad del motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(r TxRepos) error) error
}

// DocumentLocker candado por documento entre instancias del servicio (p. ej. Redis).
// release nunca es nil cuando err es nil.
type DocumentLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Tipos de evento publicados tras cada mutación confirmada.
const (
	EventTransferCreated   = "transfer.created"
	EventTransferApproved  = "transfer.approved"
	EventTransferConfirmed = "transfer.confirmed"
	EventTransferCancelled = "transfer.cancelled"
	EventTransferReturned  = "transfer.returned"
)

// TransferEvent notificación de cambio de estado de una transferencia.
type TransferEvent struct {
	Type       string                `json:"type"`
	TransferID string                `json:"transferId"`
	VehicleID  string                `json:"vehicleId"`
	Direction  string                `json:"direction"`
	Status     string                `json:"status"`
	Items      []entity.TransferItem `json:"items"`
	Actor      string                `json:"actor,omitempty"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// EventPublisher publica eventos después del commit; un fallo no revierte el ledger.
type EventPublisher interface {
	Publish(ctx context.Context, evt TransferEvent) error
}

// NopLocker no bloquea; la serialización queda en manos de la transacción.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransferEvent) error { return nil }

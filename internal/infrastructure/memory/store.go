// Package memory implementa los puertos de persistencia en memoria con transacciones:
// candados por llave, escrituras en staging aplicadas en Commit y descartadas en Rollback.
// Sirve para tests y para STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado confirmado. Las entidades se guardan y se entregan como copias.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*entity.InventoryItem
	vehicles  map[string]*entity.Vehicle
	stock     map[stockKey]*entity.VehicleStockEntry
	transfers map[string]*entity.TransferDocument
	movements []*entity.InventoryMovement

	locks *keyLocks
}

type stockKey struct {
	vehicleID string
	itemID    string
	layer     int
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		items:     make(map[string]*entity.InventoryItem),
		vehicles:  make(map[string]*entity.Vehicle),
		stock:     make(map[stockKey]*entity.VehicleStockEntry),
		transfers: make(map[string]*entity.TransferDocument),
		locks:     newKeyLocks(),
	}
}

// Repositorios fuera de transacción: cada escritura se confirma sola.

func (s *Store) Items() repository.InventoryItemRepository { return &itemRepo{s: s} }
func (s *Store) Vehicles() repository.VehicleRepository { return &vehicleRepo{s: s} }
func (s *Store) VehicleStock() repository.VehicleStockRepository { return &vehicleStockRepo{s: s} }
func (s *Store) Transfers() repository.TransferRepository { return &transferRepo{s: s} }
func (s *Store) Movements() repository.InventoryMovementRepository { return &movementRepo{s: s} }

// Run ejecuta fn en una transacción. Si fn falla o el contexto se cancela antes del commit,
// nada de lo escrito se aplica.
func (s *Store) Run(ctx context.Context, fn func(r inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := s.begin()
	defer t.release()

	repos := inventory.TxRepos{
		Items:        &itemRepo{s: s, t: t},
		VehicleStock: &vehicleStockRepo{s: s, t: t},
		Transfers:    &transferRepo{s: s, t: t},
		Movements:    &movementRepo{s: s, t: t},
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

// do ejecuta fn en la transacción t, o en una propia con autocommit si t es nil.
func (s *Store) do(t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	own := s.begin()
	defer own.release()
	if err := fn(own); err != nil {
		return err
	}
	own.commit()
	return nil
}

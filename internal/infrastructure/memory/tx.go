package memory

import (
	"context"

	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// tx escrituras en staging más las llaves tomadas. Las lecturas ven primero el staging.
type tx struct {
	s    *Store
	held []string
	has  map[string]bool

	items     map[string]*entity.InventoryItem
	deleted   map[string]bool
	vehicles  map[string]*entity.Vehicle
	stock     map[stockKey]*entity.VehicleStockEntry
	transfers map[string]*entity.TransferDocument
	movements []*entity.InventoryMovement
}

func (s *Store) begin() *tx {
	return &tx{
		s:         s,
		has:       make(map[string]bool),
		items:     make(map[string]*entity.InventoryItem),
		deleted:   make(map[string]bool),
		vehicles:  make(map[string]*entity.Vehicle),
		stock:     make(map[stockKey]*entity.VehicleStockEntry),
		transfers: make(map[string]*entity.TransferDocument),
	}
}

// lock toma la llave una sola vez por transacción; se libera en release.
func (t *tx) lock(ctx context.Context, key string) error {
	if t.has[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.has[key] = true
	t.held = append(t.held, key)
	return nil
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
	t.has = make(map[string]bool)
}

// commit aplica el staging al estado confirmado. Se llama con las llaves aún tomadas.
func (t *tx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range t.items {
		s.items[id] = it
	}
	for id := range t.deleted {
		delete(s.items, id)
	}
	for id, v := range t.vehicles {
		s.vehicles[id] = v
	}
	for k, e := range t.stock {
		s.stock[k] = e
	}
	for id, d := range t.transfers {
		s.transfers[id] = d
	}
	s.movements = append(s.movements, t.movements...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas combinadas (staging sobre confirmado); siempre devuelven copias
// ──────────────────────────────────────────────────────────────────────────────

func (t *tx) item(id string) *entity.InventoryItem {
	if t.deleted[id] {
		return nil
	}
	if it, ok := t.items[id]; ok {
		return it.Clone()
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.items[id].Clone()
}

func (t *tx) allItems() []*entity.InventoryItem {
	t.s.mu.RLock()
	out := make([]*entity.InventoryItem, 0, len(t.s.items)+len(t.items))
	for id, it := range t.s.items {
		if _, staged := t.items[id]; staged || t.deleted[id] {
			continue
		}
		out = append(out, it.Clone())
	}
	t.s.mu.RUnlock()
	for id, it := range t.items {
		if !t.deleted[id] {
			out = append(out, it.Clone())
		}
	}
	return out
}

func (t *tx) vehicle(id string) *entity.Vehicle {
	if v, ok := t.vehicles[id]; ok {
		return cloneVehicle(v)
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return cloneVehicle(t.s.vehicles[id])
}

func (t *tx) allVehicles() []*entity.Vehicle {
	t.s.mu.RLock()
	out := make([]*entity.Vehicle, 0, len(t.s.vehicles)+len(t.vehicles))
	for id, v := range t.s.vehicles {
		if _, staged := t.vehicles[id]; !staged {
			out = append(out, cloneVehicle(v))
		}
	}
	t.s.mu.RUnlock()
	for _, v := range t.vehicles {
		out = append(out, cloneVehicle(v))
	}
	return out
}

func (t *tx) entry(k stockKey) *entity.VehicleStockEntry {
	if e, ok := t.stock[k]; ok {
		return cloneEntry(e)
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return cloneEntry(t.s.stock[k])
}

func (t *tx) entries(match func(stockKey) bool) []*entity.VehicleStockEntry {
	t.s.mu.RLock()
	var out []*entity.VehicleStockEntry
	for k, e := range t.s.stock {
		if _, staged := t.stock[k]; !staged && match(k) {
			out = append(out, cloneEntry(e))
		}
	}
	t.s.mu.RUnlock()
	for k, e := range t.stock {
		if match(k) {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

func (t *tx) transfer(id string) *entity.TransferDocument {
	if d, ok := t.transfers[id]; ok {
		return d.Clone()
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.transfers[id].Clone()
}

func (t *tx) allTransfers() []*entity.TransferDocument {
	t.s.mu.RLock()
	out := make([]*entity.TransferDocument, 0, len(t.s.transfers)+len(t.transfers))
	for id, d := range t.s.transfers {
		if _, staged := t.transfers[id]; !staged {
			out = append(out, d.Clone())
		}
	}
	t.s.mu.RUnlock()
	for _, d := range t.transfers {
		out = append(out, d.Clone())
	}
	return out
}

// allMovements en orden de inserción.
func (t *tx) allMovements() []*entity.InventoryMovement {
	t.s.mu.RLock()
	out := make([]*entity.InventoryMovement, 0, len(t.s.movements)+len(t.movements))
	for _, m := range t.s.movements {
		c := *m
		out = append(out, &c)
	}
	t.s.mu.RUnlock()
	for _, m := range t.movements {
		c := *m
		out = append(out, &c)
	}
	return out
}

func cloneVehicle(v *entity.Vehicle) *entity.Vehicle {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneEntry(e *entity.VehicleStockEntry) *entity.VehicleStockEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

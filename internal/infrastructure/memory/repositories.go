package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

func itemKey(id string) string { return "item:" + id }
func vehicleKey(id string) string { return "vehicle:" + id }
func plateKey(p string) string { return "plate:" + strings.ToUpper(p) }
func transferKey(id string) string { return "transfer:" + id }
func (k stockKey) lockKey() string {
	return fmt.Sprintf("vehicle_stock:%s|%s|%d", k.vehicleID, k.itemID, k.layer)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ítems
// ──────────────────────────────────────────────────────────────────────────────

type itemRepo struct {
	s *Store
	t *tx
}

func (r *itemRepo) Create(ctx context.Context, item *entity.InventoryItem) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, itemKey(item.ID)); err != nil {
			return err
		}
		if t.item(item.ID) != nil {
			return fmt.Errorf("memory: item %s: %w", item.ID, domain.ErrDuplicate)
		}
		t.items[item.ID] = item.Clone()
		return nil
	})
}

func (r *itemRepo) GetByID(_ context.Context, id string) (item *entity.InventoryItem, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		item = t.item(id)
		return nil
	})
	return item, err
}

func (r *itemRepo) GetForUpdate(ctx context.Context, id string) (item *entity.InventoryItem, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, itemKey(id)); err != nil {
			return err
		}
		item = t.item(id)
		return nil
	})
	return item, err
}

func (r *itemRepo) List(_ context.Context, limit, offset int) (list []*entity.InventoryItem, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		list = t.allItems()
		return nil
	})
	slices.SortFunc(list, func(a, b *entity.InventoryItem) int {
		if c := cmp.Compare(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(list, limit, offset), err
}

func (r *itemRepo) UpdateStock(ctx context.Context, id string, totalBasePieces int64) error {
	return r.mutate(ctx, id, func(it *entity.InventoryItem) { it.TotalBasePieces = totalBasePieces })
}

func (r *itemRepo) UpdateBuyingPrice(ctx context.Context, id string, price decimal.Decimal) error {
	return r.mutate(ctx, id, func(it *entity.InventoryItem) { it.BuyingPrice = price })
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, itemKey(id)); err != nil {
			return err
		}
		if t.item(id) == nil {
			return domain.NotFound("item", id)
		}
		delete(t.items, id)
		t.deleted[id] = true
		return nil
	})
}

func (r *itemRepo) mutate(ctx context.Context, id string, fn func(*entity.InventoryItem)) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, itemKey(id)); err != nil {
			return err
		}
		it := t.item(id)
		if it == nil {
			return domain.NotFound("item", id)
		}
		fn(it)
		it.UpdatedAt = time.Now()
		t.items[id] = it
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Vehículos
// ──────────────────────────────────────────────────────────────────────────────

type vehicleRepo struct {
	s *Store
	t *tx
}

func (r *vehicleRepo) Create(ctx context.Context, v *entity.Vehicle) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, plateKey(v.Plate)); err != nil {
			return err
		}
		if err := t.lock(ctx, vehicleKey(v.ID)); err != nil {
			return err
		}
		if t.vehicle(v.ID) != nil {
			return fmt.Errorf("memory: vehicle %s: %w", v.ID, domain.ErrDuplicate)
		}
		for _, other := range t.allVehicles() {
			if strings.EqualFold(other.Plate, v.Plate) {
				return fmt.Errorf("memory: placa %s: %w", v.Plate, domain.ErrDuplicate)
			}
		}
		t.vehicles[v.ID] = cloneVehicle(v)
		return nil
	})
}

func (r *vehicleRepo) GetByID(_ context.Context, id string) (v *entity.Vehicle, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		v = t.vehicle(id)
		return nil
	})
	return v, err
}

func (r *vehicleRepo) List(_ context.Context, limit, offset int) (list []*entity.Vehicle, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		list = t.allVehicles()
		return nil
	})
	slices.SortFunc(list, func(a, b *entity.Vehicle) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(list, limit, offset), err
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock por vehículo
// ──────────────────────────────────────────────────────────────────────────────

type vehicleStockRepo struct {
	s *Store
	t *tx
}

func (r *vehicleStockRepo) GetForUpdate(ctx context.Context, vehicleID, itemID string, layerIndex int) (e *entity.VehicleStockEntry, err error) {
	k := stockKey{vehicleID: vehicleID, itemID: itemID, layer: layerIndex}
	err = r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, k.lockKey()); err != nil {
			return err
		}
		e = t.entry(k)
		if e == nil {
			e = &entity.VehicleStockEntry{VehicleID: vehicleID, ItemID: itemID, LayerIndex: layerIndex, UpdatedAt: time.Now()}
			t.stock[k] = cloneEntry(e)
		}
		return nil
	})
	return e, err
}

func (r *vehicleStockRepo) Upsert(ctx context.Context, entry *entity.VehicleStockEntry) error {
	k := stockKey{vehicleID: entry.VehicleID, itemID: entry.ItemID, layer: entry.LayerIndex}
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, k.lockKey()); err != nil {
			return err
		}
		if entry.Quantity < 0 {
			return fmt.Errorf("memory: cantidad negativa en %s: %w", k.lockKey(), domain.ErrValidation)
		}
		t.stock[k] = cloneEntry(entry)
		return nil
	})
}

func (r *vehicleStockRepo) ListByVehicle(_ context.Context, vehicleID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(func(k stockKey) bool { return k.vehicleID == vehicleID })
}

func (r *vehicleStockRepo) ListByVehicleAndItem(_ context.Context, vehicleID, itemID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(func(k stockKey) bool { return k.vehicleID == vehicleID && k.itemID == itemID })
}

func (r *vehicleStockRepo) ListByItem(_ context.Context, itemID string) ([]*entity.VehicleStockEntry, error) {
	return r.list(func(k stockKey) bool { return k.itemID == itemID })
}

func (r *vehicleStockRepo) list(match func(stockKey) bool) (list []*entity.VehicleStockEntry, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		list = t.entries(match)
		return nil
	})
	slices.SortFunc(list, func(a, b *entity.VehicleStockEntry) int {
		if c := cmp.Compare(a.VehicleID, b.VehicleID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ItemID, b.ItemID); c != 0 {
			return c
		}
		return cmp.Compare(a.LayerIndex, b.LayerIndex)
	})
	if list == nil {
		list = []*entity.VehicleStockEntry{}
	}
	return list, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Transferencias
// ──────────────────────────────────────────────────────────────────────────────

type transferRepo struct {
	s *Store
	t *tx
}

func (r *transferRepo) Create(ctx context.Context, doc *entity.TransferDocument) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, transferKey(doc.ID)); err != nil {
			return err
		}
		if t.transfer(doc.ID) != nil {
			return fmt.Errorf("memory: transfer %s: %w", doc.ID, domain.ErrDuplicate)
		}
		t.transfers[doc.ID] = doc.Clone()
		return nil
	})
}

func (r *transferRepo) GetByID(_ context.Context, id string) (d *entity.TransferDocument, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		d = t.transfer(id)
		return nil
	})
	return d, err
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (d *entity.TransferDocument, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, transferKey(id)); err != nil {
			return err
		}
		d = t.transfer(id)
		return nil
	})
	return d, err
}

func (r *transferRepo) Update(ctx context.Context, doc *entity.TransferDocument) error {
	return r.s.do(r.t, func(t *tx) error {
		if err := t.lock(ctx, transferKey(doc.ID)); err != nil {
			return err
		}
		cur := t.transfer(doc.ID)
		if cur == nil {
			return domain.NotFound("transfer", doc.ID)
		}
		next := doc.Clone()
		next.Items = cur.Items
		t.transfers[doc.ID] = next
		return nil
	})
}

func (r *transferRepo) ListByVehicle(_ context.Context, vehicleID string, limit, offset int) (list []*entity.TransferDocument, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		for _, d := range t.allTransfers() {
			if d.VehicleID == vehicleID {
				list = append(list, d)
			}
		}
		return nil
	})
	slices.SortFunc(list, func(a, b *entity.TransferDocument) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(list, limit, offset), err
}

func (r *transferRepo) HasOpenForItem(_ context.Context, itemID string) (open bool, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		for _, d := range t.allTransfers() {
			if !d.IsOpen() {
				continue
			}
			for _, it := range d.Items {
				if it.InventoryID == itemID {
					open = true
					return nil
				}
			}
		}
		return nil
	})
	return open, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

type movementRepo struct {
	s *Store
	t *tx
}

func (r *movementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	return r.s.do(r.t, func(t *tx) error {
		c := *m
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		t.movements = append(t.movements, &c)
		return nil
	})
}

// ListByItem más recientes primero.
func (r *movementRepo) ListByItem(_ context.Context, itemID string, limit, offset int) (list []*entity.InventoryMovement, err error) {
	err = r.s.do(r.t, func(t *tx) error {
		all := t.allMovements()
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].ItemID == itemID {
				list = append(list, all[i])
			}
		}
		return nil
	})
	return paginate(list, limit, offset), err
}

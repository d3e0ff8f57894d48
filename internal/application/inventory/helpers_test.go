package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testUser = "00000000-0000-0000-0000-000000000001"

type recordingPublisher struct {
	mu     sync.Mutex
	events []appinv.TransferEvent
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, evt appinv.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker caído")
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store    *memory.Store
	ledger   *appinv.InventoryLedger
	vehicles *appinv.VehicleStockLedger
	workflow *appinv.TransferWorkflow
	catalog  *appinv.Catalog
	pub      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	pub := &recordingPublisher{}
	return &fixture{
		store:    s,
		ledger:   appinv.NewInventoryLedger(s, s.Items(), s.Movements(), nil),
		vehicles: appinv.NewVehicleStockLedger(s, s.Vehicles(), s.Items(), s.VehicleStock(), nil),
		workflow: appinv.NewTransferWorkflow(s, s.Vehicles(), s.Transfers(), nil, pub, nil),
		catalog:  appinv.NewCatalog(s, s.Items(), s.Vehicles(), s.VehicleStock(), nil),
		pub:      pub,
	}
}

// cartonDozenPiece estructura CTN(10 DZ) -> DZ(12 PCS) -> PCS; 1 CTN = 120 piezas.
func cartonDozenPiece() []entity.PackagingLayer {
	return []entity.PackagingLayer{
		{LayerIndex: 0, Unit: "CTN", Qty: 10},
		{LayerIndex: 1, Unit: "DZ", Qty: 12},
		{LayerIndex: 2, Unit: "PCS"},
	}
}

func (f *fixture) seedItem(t *testing.T, id string, total int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.Items().Create(context.Background(), &entity.InventoryItem{
		ID:                 id,
		ProductName:        "Producto " + id,
		PackagingStructure: cartonDozenPiece(),
		TotalBasePieces:    total,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func (f *fixture) seedVehicle(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.Vehicles().Create(context.Background(), &entity.Vehicle{
		ID: id, Name: "Vehículo " + id, Plate: "PL-" + id, CreatedAt: time.Now(),
	}))
}

func (f *fixture) warehouse(t *testing.T, itemID string) int64 {
	t.Helper()
	item, err := f.store.Items().GetByID(context.Background(), itemID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.TotalBasePieces
}

func (f *fixture) vehicleTotal(t *testing.T, vehicleID, itemID string) int64 {
	t.Helper()
	entries, err := f.vehicles.Loaded(context.Background(), vehicleID, itemID)
	require.NoError(t, err)
	total, err := f.vehicles.TotalBasePieces(entries, cartonDozenPiece())
	require.NoError(t, err)
	return total
}

func (f *fixture) loaded(t *testing.T, vehicleID, itemID string, layer int) int64 {
	t.Helper()
	entries, err := f.vehicles.Loaded(context.Background(), vehicleID, itemID)
	require.NoError(t, err)
	for _, e := range entries {
		if e.LayerIndex == layer {
			return e.Quantity
		}
	}
	return 0
}

// issue crea y aprueba una salida de qty unidades de la capa indicada.
func (f *fixture) issue(t *testing.T, vehicleID, itemID string, layer int, qty int64) *entity.TransferDocument {
	t.Helper()
	ctx := context.Background()
	doc, err := f.workflow.Create(ctx, issueInput(vehicleID, itemID, layer, qty))
	require.NoError(t, err)
	doc, err = f.workflow.Approve(ctx, doc.ID, testUser)
	require.NoError(t, err)
	return doc
}

func issueInput(vehicleID, itemID string, layer int, qty int64) appinv.CreateTransferInput {
	return appinv.CreateTransferInput{
		VehicleID: vehicleID,
		Direction: entity.DirectionIssue,
		UserID:    testUser,
		Items: []appinv.TransferItemRequest{{
			InventoryID: itemID,
			Layers:      []appinv.LayerRequest{{LayerIndex: intPtr(layer), Quantity: qty}},
		}},
	}
}

func returnInput(vehicleID, itemID string, layer int, qty int64) appinv.ReturnInput {
	return appinv.ReturnInput{
		VehicleID: vehicleID,
		UserID:    testUser,
		Items:     []appinv.ReturnLine{{InventoryID: itemID, Quantity: qty, LayerIndex: intPtr(layer)}},
	}
}

func intPtr(v int) *int { return &v }

package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

// Escenario A: 5 CTN al vehículo V1 descuentan 600 piezas de la bodega.
func TestTransfer_EscenarioA_SalidaDeCajas(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	doc, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 5))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, doc.Status)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, entity.TransferLayer{LayerIndex: 0, Unit: "CTN", Quantity: 5, PiecesPerUnit: 120, BasePieces: 600}, doc.Items[0].Layers[0])
	assert.Equal(t, int64(2880), f.warehouse(t, "item-a"), "crear no mueve stock")

	doc, err = f.workflow.Approve(ctx, doc.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusApproved, doc.Status)
	assert.NotNil(t, doc.ApprovedAt)

	pcs, err := f.ledger.Available(ctx, "item-a", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2280), pcs)
	assert.Equal(t, int64(5), f.loaded(t, "V1", "item-a", 0))
	assert.Equal(t, []string{appinv.EventTransferCreated, appinv.EventTransferApproved}, f.pub.types())

	movs, err := f.ledger.History(ctx, "item-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeIssue, movs[0].Type)
	assert.Equal(t, int64(-600), movs[0].BasePieces)
	assert.Equal(t, doc.ID, movs[0].Reference)
}

// Escenario B: con 5 CTN cargadas, devolver 3 funciona y devolver 6 falla.
func TestTransfer_EscenarioB_Devoluciones(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	f.issue(t, "V1", "item-a", 0, 5)
	ctx := context.Background()

	doc, err := f.workflow.ReturnStock(ctx, returnInput("V1", "item-a", 0, 3))
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionReturn, doc.Direction)
	assert.Equal(t, entity.TransferStatusConfirmed, doc.Status)
	assert.Equal(t, doc.CreatedAt, *doc.ApprovedAt)
	assert.Equal(t, doc.CreatedAt, *doc.ConfirmedAt)
	assert.Equal(t, int64(2), f.loaded(t, "V1", "item-a", 0))
	assert.Equal(t, int64(2280+360), f.warehouse(t, "item-a"))

	_, err = f.workflow.ReturnStock(ctx, returnInput("V1", "item-a", 0, 6))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExceedsLoadedQuantity)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "V1", de.VehicleID)
	assert.Equal(t, "item-a", de.ItemID)
	assert.Equal(t, int64(6), de.Requested)
	assert.Equal(t, int64(2), de.Available)

	assert.Equal(t, int64(2), f.loaded(t, "V1", "item-a", 0), "un fallo no modifica nada")
	assert.Equal(t, int64(2640), f.warehouse(t, "item-a"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_IdaYVueltaRestauraTotales(t *testing.T) {
	for layer, qty := range map[int]int64{0: 3, 1: 7, 2: 41} {
		f := newFixture(t)
		f.seedItem(t, "item-a", 2880)
		f.seedVehicle(t, "V1")

		f.issue(t, "V1", "item-a", layer, qty)
		_, err := f.workflow.ReturnStock(context.Background(), returnInput("V1", "item-a", layer, qty))
		require.NoError(t, err)

		assert.Equal(t, int64(2880), f.warehouse(t, "item-a"), "capa %d", layer)
		assert.Equal(t, int64(0), f.vehicleTotal(t, "V1", "item-a"), "capa %d", layer)
	}
}

func TestTransfer_ConservacionEntreBodegaYVehiculos(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 5000)
	f.seedVehicle(t, "V1")
	f.seedVehicle(t, "V2")
	ctx := context.Background()

	total := func() int64 {
		return f.warehouse(t, "item-a") + f.vehicleTotal(t, "V1", "item-a") + f.vehicleTotal(t, "V2", "item-a")
	}
	require.Equal(t, int64(5000), total())

	f.issue(t, "V1", "item-a", 0, 10)
	assert.Equal(t, int64(5000), total())
	f.issue(t, "V2", "item-a", 1, 25)
	assert.Equal(t, int64(5000), total())
	_, err := f.workflow.ReturnStock(ctx, returnInput("V1", "item-a", 0, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total())
	f.issue(t, "V1", "item-a", 2, 133)
	assert.Equal(t, int64(5000), total())
	_, err = f.workflow.ReturnStock(ctx, returnInput("V2", "item-a", 1, 25))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total())
}

func TestTransfer_ConfirmarDosVecesNoReaplica(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	doc := f.issue(t, "V1", "item-a", 0, 2)
	first, err := f.workflow.Confirm(ctx, doc.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusConfirmed, first.Status)

	again, err := f.workflow.Confirm(ctx, doc.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, first.ConfirmedAt, again.ConfirmedAt)
	assert.Equal(t, int64(2880-240), f.warehouse(t, "item-a"))
	assert.Equal(t, int64(2), f.loaded(t, "V1", "item-a", 0))
	assert.Equal(t, []string{appinv.EventTransferCreated, appinv.EventTransferApproved, appinv.EventTransferConfirmed}, f.pub.types(),
		"la segunda confirmación no publica")
}

func TestTransfer_LimiteExacto(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")

	f.issue(t, "V1", "item-a", 0, 24)
	assert.Equal(t, int64(0), f.warehouse(t, "item-a"))

	_, err := f.workflow.Create(context.Background(), issueInput("V1", "item-a", 2, 1))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Aprobación todo-o-nada
// ──────────────────────────────────────────────────────────────────────────────

func TestApprove_RevalidaStockAlAprobar(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	d1, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 20))
	require.NoError(t, err)
	d2, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 20))
	require.NoError(t, err, "la verificación previa no reserva stock")

	_, err = f.workflow.Approve(ctx, d1.ID, testUser)
	require.NoError(t, err)
	_, err = f.workflow.Approve(ctx, d2.ID, testUser)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.workflow.Get(ctx, d2.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, got.Status)
	assert.Equal(t, int64(480), f.warehouse(t, "item-a"))
	assert.Equal(t, int64(20), f.loaded(t, "V1", "item-a", 0))
}

func TestApprove_MultiItemFallaCompletoYNombraElItem(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedItem(t, "item-b", 240)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	in := appinv.CreateTransferInput{
		VehicleID: "V1",
		UserID:    testUser,
		Items: []appinv.TransferItemRequest{
			{InventoryID: "item-a", Layers: []appinv.LayerRequest{{Unit: "ctn", Quantity: 3}, {Unit: "pcs", Quantity: 5}}},
			{InventoryID: "item-b", Layers: []appinv.LayerRequest{{Unit: "dz", Quantity: 20}}},
		},
	}
	doc, err := f.workflow.Create(ctx, in)
	require.NoError(t, err)

	// otro proceso consume item-b antes de aprobar
	require.NoError(t, f.ledger.ApplyDelta(ctx, "item-b", -100, testUser))

	_, err = f.workflow.Approve(ctx, doc.ID, testUser)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "item-b", de.ItemID)
	require.NotNil(t, de.LayerIndex)
	assert.Equal(t, 1, *de.LayerIndex)

	assert.Equal(t, int64(2880), f.warehouse(t, "item-a"), "item-a no debe quedar descontado")
	assert.Equal(t, int64(0), f.vehicleTotal(t, "V1", "item-a"))
	assert.Equal(t, int64(140), f.warehouse(t, "item-b"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_TransicionesInvalidas(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	pending, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 1))
	require.NoError(t, err)
	_, err = f.workflow.Confirm(ctx, pending.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se confirma sin aprobar")

	approved := f.issue(t, "V1", "item-a", 0, 1)
	_, err = f.workflow.Cancel(ctx, approved.ID, "tarde", testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se cancela una aprobada")
	_, err = f.workflow.Approve(ctx, approved.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se aprueba dos veces")

	cancelled, err := f.workflow.Cancel(ctx, pending.ID, "  cliente canceló  ", testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, cancelled.Status)
	assert.Equal(t, "cliente canceló", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)
	_, err = f.workflow.Approve(ctx, pending.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	ret, err := f.workflow.ReturnStock(ctx, returnInput("V1", "item-a", 0, 1))
	require.NoError(t, err)
	_, err = f.workflow.Cancel(ctx, ret.ID, "x", testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "una devolución nace terminal")

	assert.Equal(t, int64(2880-120+120), f.warehouse(t, "item-a"))
}

func TestTransfer_NoEncontrado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.workflow.Approve(ctx, "no-existe", testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.workflow.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación de Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	cases := map[string]struct {
		in   appinv.CreateTransferInput
		want error
	}{
		"sin ítems":          {appinv.CreateTransferInput{VehicleID: "V1"}, domain.ErrValidation},
		"cantidad cero":      {issueInput("V1", "item-a", 0, 0), domain.ErrValidation},
		"dirección inválida": {appinv.CreateTransferInput{VehicleID: "V1", Direction: "sideways"}, domain.ErrValidation},
		"vehículo inexistente": {issueInput("V9", "item-a", 0, 1), domain.ErrNotFound},
		"ítem inexistente":     {issueInput("V1", "item-z", 0, 1), domain.ErrNotFound},
		"unidad desconocida": {appinv.CreateTransferInput{VehicleID: "V1", Items: []appinv.TransferItemRequest{
			{InventoryID: "item-a", Layers: []appinv.LayerRequest{{Unit: "litro", Quantity: 1}}},
		}}, domain.ErrUnitResolution},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.workflow.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := f.workflow.ListByVehicle(ctx, "V1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list, "ningún documento inválido se persiste")
}

func TestCreate_DireccionReturnSeAplicaDeInmediato(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	f.issue(t, "V1", "item-a", 1, 10)

	in := issueInput("V1", "item-a", 1, 4)
	in.Direction = entity.DirectionReturn
	doc, err := f.workflow.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusConfirmed, doc.Status)
	assert.Equal(t, int64(6), f.loaded(t, "V1", "item-a", 1))
	assert.Equal(t, int64(2880-72), f.warehouse(t, "item-a"))
}

func TestReturnStock_ResuelveUnidadesYAgrupaPorCapa(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	f.issue(t, "V1", "item-a", 2, 30)

	in := appinv.ReturnInput{VehicleID: "V1", UserID: testUser, Items: []appinv.ReturnLine{
		{InventoryID: "item-a", Quantity: 10, Unit: "Pieces"},
		{InventoryID: "item-a", Quantity: 25, Unit: "pcs"},
	}}
	_, err := f.workflow.ReturnStock(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrExceedsLoadedQuantity, "35 agregadas superan 30 cargadas")

	in.Items[1].Quantity = 20
	doc, err := f.workflow.ReturnStock(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Len(t, doc.Items[0].Layers, 2)
	assert.Equal(t, int64(0), f.loaded(t, "V1", "item-a", 2))
	assert.Equal(t, int64(2880), f.warehouse(t, "item-a"))
}

func TestReturnStock_SinCargaFalla(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")

	_, err := f.workflow.ReturnStock(context.Background(), returnInput("V1", "item-a", 0, 1))
	assert.ErrorIs(t, err, domain.ErrExceedsLoadedQuantity)
	assert.Equal(t, int64(2880), f.warehouse(t, "item-a"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_FalloAlPublicarNoRevierte(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	f.pub.fail = true

	doc := f.issue(t, "V1", "item-a", 0, 1)
	assert.Equal(t, entity.TransferStatusApproved, doc.Status)
	assert.Equal(t, int64(2760), f.warehouse(t, "item-a"))
}

func TestApprove_ConcurrenteNuncaDejaStockNegativo(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 1200) // 10 CTN
	f.seedVehicle(t, "V1")
	f.seedVehicle(t, "V2")
	ctx := context.Background()

	const docs = 16
	ids := make([]string, docs)
	for i := range ids {
		v := "V1"
		if i%2 == 1 {
			v = "V2"
		}
		d, err := f.workflow.Create(ctx, issueInput(v, "item-a", 0, 1))
		require.NoError(t, err)
		ids[i] = d.ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	approved, rejected := 0, 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.workflow.Approve(ctx, id, testUser)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 10, approved)
	assert.Equal(t, 6, rejected)
	assert.Equal(t, int64(0), f.warehouse(t, "item-a"))
	assert.Equal(t, int64(1200), f.vehicleTotal(t, "V1", "item-a")+f.vehicleTotal(t, "V2", "item-a"))
}

func TestApprove_MismoDocumentoConcurrenteSoloUnaVez(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	doc, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.workflow.Approve(ctx, doc.ID, testUser)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(2760), f.warehouse(t, "item-a"))
	assert.Equal(t, int64(1), f.loaded(t, "V1", "item-a", 0))
}

func TestReturnStock_ConcurrenteNoDevuelveMasDeLoCargado(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	f.issue(t, "V1", "item-a", 0, 5)
	ctx := context.Background()

	const returns = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, exceeded := 0, 0
	for i := 0; i < returns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.ReturnStock(ctx, returnInput("V1", "item-a", 0, 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrExceedsLoadedQuantity):
				exceeded++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok, "solo se devuelven las 5 cajas cargadas")
	assert.Equal(t, returns-5, exceeded)
	assert.Equal(t, int64(0), f.loaded(t, "V1", "item-a", 0))
	assert.Equal(t, int64(2880), f.warehouse(t, "item-a")+f.vehicleTotal(t, "V1", "item-a"), "bodega + vehículo se conserva")
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta de transferencia frente a borrado del ítem
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_EsperaAlBorradoDelItemYFalla(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	locked := make(chan struct{})
	proceed := make(chan struct{})
	deleted := make(chan error, 1)
	go func() {
		deleted <- f.store.Run(ctx, func(r appinv.TxRepos) error {
			if _, err := r.Items.GetForUpdate(ctx, "item-a"); err != nil {
				return err
			}
			close(locked)
			<-proceed
			return r.Items.Delete(ctx, "item-a")
		})
	}()
	<-locked

	created := make(chan error, 1)
	go func() {
		_, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 1))
		created <- err
	}()

	select {
	case err := <-created:
		t.Fatalf("Create no debe avanzar con el ítem bloqueado: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(proceed)

	require.NoError(t, <-deleted)
	assert.ErrorIs(t, <-created, domain.ErrNotFound, "el ítem ya no existe al tomar el bloqueo")

	docs, err := f.workflow.ListByVehicle(ctx, "V1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, docs, "no queda un documento pendiente apuntando a un ítem borrado")
}

func TestDeleteItem_RechazadoTrasCrearTransferencia(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "item-a", 2880)
	f.seedVehicle(t, "V1")
	ctx := context.Background()

	_, err := f.workflow.Create(ctx, issueInput("V1", "item-a", 0, 1))
	require.NoError(t, err)

	err = f.catalog.DeleteItem(ctx, "item-a")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int64(2880), f.warehouse(t, "item-a"))
}

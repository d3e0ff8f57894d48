package inventory

import (
	"cmp"
	"context"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

const tracerName = "github.com/jhoicas/inventario-flota/internal/application/inventory"

// TransferWorkflow flujo de transferencias bodega <-> vehículo:
// pending -> approved -> confirmed, pending -> cancelled. Las devoluciones se aplican de inmediato.
type TransferWorkflow struct {
	txRunner     TxRunner
	vehicleRepo  repository.VehicleRepository
	transferRepo repository.TransferRepository
	locker       DocumentLocker
	publisher    EventPublisher
	log          *logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewTransferWorkflow construye el caso de uso. locker y publisher pueden ser nil.
func NewTransferWorkflow(
	txRunner TxRunner,
	vehicleRepo repository.VehicleRepository,
	transferRepo repository.TransferRepository,
	locker DocumentLocker,
	publisher EventPublisher,
	log *logger.Logger,
) *TransferWorkflow {
	if locker == nil {
		locker = NopLocker{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TransferWorkflow{
		txRunner:     txRunner,
		vehicleRepo:  vehicleRepo,
		transferRepo: transferRepo,
		locker:       locker,
		publisher:    publisher,
		log:          log.Component("transfer_workflow"),
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
	}
}

// LayerRequest cantidad solicitada en una capa, por índice y/o unidad.
type LayerRequest struct {
	LayerIndex *int
	Unit       string
	Quantity   int64
}

// TransferItemRequest capas solicitadas de un ítem.
type TransferItemRequest struct {
	InventoryID string
	Layers      []LayerRequest
}

// CreateTransferInput entrada de Create. Direction vacío equivale a issue.
type CreateTransferInput struct {
	VehicleID string
	Direction string
	Items     []TransferItemRequest
	UserID    string
}

// ReturnLine línea de devolución.
type ReturnLine struct {
	InventoryID string
	Quantity    int64
	LayerIndex  *int
	Unit        string
}

// ReturnInput entrada de ReturnStock.
type ReturnInput struct {
	VehicleID string
	Items     []ReturnLine
	UserID    string
}

// Create registra un documento de salida en pending, con las capas fotografiadas.
// La verificación de stock aquí es orientativa; la autoritativa ocurre en Approve.
func (w *TransferWorkflow) Create(ctx context.Context, in CreateTransferInput) (doc *entity.TransferDocument, err error) {
	ctx, span := w.tracer.Start(ctx, "TransferWorkflow.Create",
		trace.WithAttributes(attribute.String("vehicle.id", in.VehicleID), attribute.String("transfer.direction", in.Direction)))
	defer func() { endSpan(span, err) }()

	switch in.Direction {
	case "", entity.DirectionIssue:
	case entity.DirectionReturn:
		return w.ReturnStock(ctx, returnFromCreate(in))
	default:
		return nil, domain.Validation("direction desconocida %q", in.Direction)
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if err := w.requireVehicle(ctx, in.VehicleID); err != nil {
		return nil, err
	}

	now := w.now()
	d := &entity.TransferDocument{
		ID:        uuid.New().String(),
		VehicleID: in.VehicleID,
		Direction: entity.DirectionIssue,
		Status:    entity.TransferStatusPending,
		CreatedBy: in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Los ítems se bloquean igual que en DeleteItem: un ítem no puede borrarse entre la
	// lectura y el alta del documento que lo referencia.
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		ids := make([]string, 0, len(in.Items))
		for _, req := range in.Items {
			ids = append(ids, req.InventoryID)
		}
		slices.Sort(ids)
		locked := make(map[string]*entity.InventoryItem, len(ids))
		for _, id := range slices.Compact(ids) {
			item, err := lockItem(ctx, r, id)
			if err != nil {
				return err
			}
			locked[id] = item
		}

		items := make([]entity.TransferItem, 0, len(in.Items))
		need := make(map[string]int64, len(locked))
		firstLayer := make(map[string]int, len(locked))
		for _, req := range in.Items {
			item := locked[req.InventoryID]
			ti, err := snapshotItem(item, req.Layers)
			if err != nil {
				return err
			}
			items = append(items, ti)
			if _, ok := firstLayer[item.ID]; !ok {
				firstLayer[item.ID] = ti.Layers[0].LayerIndex
			}
			if need[item.ID] > math.MaxInt64-ti.BasePieces() {
				return domain.Validation("la cantidad del ítem %s desborda", item.ID)
			}
			need[item.ID] += ti.BasePieces()
		}
		for _, id := range slices.Sorted(maps.Keys(need)) {
			if need[id] > locked[id].TotalBasePieces {
				return domain.InsufficientStock(id, firstLayer[id], need[id], locked[id].TotalBasePieces)
			}
		}

		d.Items = items
		return r.Transfers.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", d.ID).Str("vehicle_id", d.VehicleID).Int("items", len(d.Items)).Msg("transferencia creada")
	w.publish(ctx, EventTransferCreated, d, in.UserID)
	return d.Clone(), nil
}

// Approve descuenta la bodega y carga el vehículo en una sola transacción. Cualquier fallo
// revierte todo y el error identifica el ítem y la capa.
func (w *TransferWorkflow) Approve(ctx context.Context, transferID, userID string) (doc *entity.TransferDocument, err error) {
	ctx, span := w.tracer.Start(ctx, "TransferWorkflow.Approve", trace.WithAttributes(attribute.String("transfer.id", transferID)))
	defer func() { endSpan(span, err) }()

	release, err := w.locker.Lock(ctx, documentLockKey(transferID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := w.now()
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		d, err := lockTransfer(ctx, r, transferID)
		if err != nil {
			return err
		}
		if _, err := d.NextStatus(entity.TransferEventApprove); err != nil {
			return err
		}
		if err := applyIssue(ctx, r, d, userID, now); err != nil {
			return err
		}
		if err := d.Apply(entity.TransferEventApprove, now); err != nil {
			return err
		}
		if err := r.Transfers.Update(ctx, d); err != nil {
			return err
		}
		doc = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", doc.ID).Str("vehicle_id", doc.VehicleID).Str("user_id", userID).Msg("transferencia aprobada")
	w.publish(ctx, EventTransferApproved, doc, userID)
	return doc, nil
}

// Confirm marca la recogida. No muta ningún ledger; confirmar de nuevo devuelve el documento
// sin cambios.
func (w *TransferWorkflow) Confirm(ctx context.Context, transferID, userID string) (doc *entity.TransferDocument, err error) {
	ctx, span := w.tracer.Start(ctx, "TransferWorkflow.Confirm", trace.WithAttributes(attribute.String("transfer.id", transferID)))
	defer func() { endSpan(span, err) }()

	now := w.now()
	var repeated bool
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		repeated = false
		d, err := lockTransfer(ctx, r, transferID)
		if err != nil {
			return err
		}
		if d.Status == entity.TransferStatusConfirmed {
			repeated = true
			doc = d.Clone()
			return nil
		}
		if err := d.Apply(entity.TransferEventConfirm, now); err != nil {
			return err
		}
		if err := r.Transfers.Update(ctx, d); err != nil {
			return err
		}
		doc = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if repeated {
		w.log.Debug().Str("transfer_id", doc.ID).Msg("transferencia ya confirmada")
		return doc, nil
	}

	w.log.Info().Str("transfer_id", doc.ID).Str("user_id", userID).Msg("transferencia confirmada")
	w.publish(ctx, EventTransferConfirmed, doc, userID)
	return doc, nil
}

// Cancel solo aplica a documentos pending; guarda el motivo.
func (w *TransferWorkflow) Cancel(ctx context.Context, transferID, reason, userID string) (doc *entity.TransferDocument, err error) {
	ctx, span := w.tracer.Start(ctx, "TransferWorkflow.Cancel", trace.WithAttributes(attribute.String("transfer.id", transferID)))
	defer func() { endSpan(span, err) }()

	now := w.now()
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		d, err := lockTransfer(ctx, r, transferID)
		if err != nil {
			return err
		}
		if err := d.Apply(entity.TransferEventCancel, now); err != nil {
			return err
		}
		d.CancelReason = strings.TrimSpace(reason)
		if err := r.Transfers.Update(ctx, d); err != nil {
			return err
		}
		doc = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", doc.ID).Str("reason", doc.CancelReason).Msg("transferencia cancelada")
	w.publish(ctx, EventTransferCancelled, doc, userID)
	return doc, nil
}

// ReturnStock descarga el vehículo y devuelve las piezas a la bodega en una transacción,
// y registra un documento return ya confirmado.
func (w *TransferWorkflow) ReturnStock(ctx context.Context, in ReturnInput) (doc *entity.TransferDocument, err error) {
	ctx, span := w.tracer.Start(ctx, "TransferWorkflow.ReturnStock", trace.WithAttributes(attribute.String("vehicle.id", in.VehicleID)))
	defer func() { endSpan(span, err) }()

	if err := validateReturn(in); err != nil {
		return nil, err
	}
	if err := w.requireVehicle(ctx, in.VehicleID); err != nil {
		return nil, err
	}

	now := w.now()
	docID := uuid.New().String()
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		d, err := applyReturn(ctx, r, docID, in, now)
		if err != nil {
			return err
		}
		doc = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("transfer_id", doc.ID).Str("vehicle_id", doc.VehicleID).Int("items", len(doc.Items)).Msg("devolución aplicada")
	w.publish(ctx, EventTransferReturned, doc, in.UserID)
	return doc, nil
}

// Get documento por ID.
func (w *TransferWorkflow) Get(ctx context.Context, transferID string) (*entity.TransferDocument, error) {
	d, err := w.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.NotFound("transfer", transferID)
	}
	return d, nil
}

// ListByVehicle documentos del vehículo, más recientes primero.
func (w *TransferWorkflow) ListByVehicle(ctx context.Context, vehicleID string, limit, offset int) ([]*entity.TransferDocument, error) {
	if err := w.requireVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return w.transferRepo.ListByVehicle(ctx, vehicleID, limit, offset)
}

func (w *TransferWorkflow) requireVehicle(ctx context.Context, vehicleID string) error {
	v, err := w.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if v == nil {
		return domain.NotFound("vehicle", vehicleID)
	}
	return nil
}

func (w *TransferWorkflow) publish(ctx context.Context, eventType string, d *entity.TransferDocument, actor string) {
	evt := TransferEvent{
		Type:       eventType,
		TransferID: d.ID,
		VehicleID:  d.VehicleID,
		Direction:  d.Direction,
		Status:     d.Status,
		Items:      d.Clone().Items,
		Actor:      actor,
		OccurredAt: w.now(),
	}
	if err := w.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		w.log.Warn().Err(err).Str("transfer_id", d.ID).Str("event", eventType).Msg("no se pudo publicar el evento")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Lógica dentro de la transacción
// ──────────────────────────────────────────────────────────────────────────────

// vehicleKey llave de bloqueo del stock de un vehículo (el vehículo es único por operación).
type vehicleKey struct {
	itemID string
	layer  int
}

func sortedVehicleKeys[V any](m map[vehicleKey]V) []vehicleKey {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b vehicleKey) int {
		if c := cmp.Compare(a.itemID, b.itemID); c != 0 {
			return c
		}
		return cmp.Compare(a.layer, b.layer)
	})
	return keys
}

func lockTransfer(ctx context.Context, r TxRepos, transferID string) (*entity.TransferDocument, error) {
	d, err := r.Transfers.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.NotFound("transfer", transferID)
	}
	return d, nil
}

// applyIssue fase 1: bloquea ítems en orden y revalida; fase 2: descuenta bodega, carga vehículo
// (llaves en orden) y registra movimientos.
func applyIssue(ctx context.Context, r TxRepos, d *entity.TransferDocument, userID string, now time.Time) error {
	need := make(map[string]int64)
	firstLayer := make(map[string]int)
	loads := make(map[vehicleKey]int64)
	for _, it := range d.Items {
		need[it.InventoryID] += it.BasePieces()
		for i, ln := range it.Layers {
			if _, ok := firstLayer[it.InventoryID]; !ok && i == 0 {
				firstLayer[it.InventoryID] = ln.LayerIndex
			}
			loads[vehicleKey{it.InventoryID, ln.LayerIndex}] += ln.Quantity
		}
	}

	ids := slices.Sorted(maps.Keys(need))
	locked := make(map[string]*entity.InventoryItem, len(ids))
	for _, id := range ids {
		item, err := lockItem(ctx, r, id)
		if err != nil {
			return err
		}
		if item.TotalBasePieces < need[id] {
			return domain.InsufficientStock(id, firstLayer[id], need[id], item.TotalBasePieces)
		}
		locked[id] = item
	}

	for _, id := range ids {
		if err := applyItemDelta(ctx, r, locked[id], -need[id], firstLayer[id], now); err != nil {
			return err
		}
	}
	for _, k := range sortedVehicleKeys(loads) {
		if _, err := loadVehicle(ctx, r, d.VehicleID, k.itemID, k.layer, loads[k], now); err != nil {
			return err
		}
	}
	for _, it := range d.Items {
		for _, ln := range it.Layers {
			if err := r.Movements.Create(ctx, &entity.InventoryMovement{
				ID:            uuid.New().String(),
				TransactionID: d.ID,
				ItemID:        it.InventoryID,
				VehicleID:     d.VehicleID,
				Type:          entity.MovementTypeIssue,
				LayerIndex:    ln.LayerIndex,
				Unit:          ln.Unit,
				Quantity:      ln.Quantity,
				BasePieces:    -ln.BasePieces,
				Reference:     d.ID,
				CreatedAt:     now,
				CreatedBy:     userID,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyReturn bloquea ítems y llaves del vehículo en orden, valida lo cargado y aplica la
// devolución completa o nada.
func applyReturn(ctx context.Context, r TxRepos, docID string, in ReturnInput, now time.Time) (*entity.TransferDocument, error) {
	var order []string
	seen := make(map[string]bool)
	for _, ln := range in.Items {
		if !seen[ln.InventoryID] {
			seen[ln.InventoryID] = true
			order = append(order, ln.InventoryID)
		}
	}

	locked := make(map[string]*entity.InventoryItem, len(order))
	for _, id := range slices.Sorted(slices.Values(order)) {
		item, err := lockItem(ctx, r, id)
		if err != nil {
			return nil, err
		}
		locked[id] = item
	}

	unloads := make(map[vehicleKey]int64)
	pieces := make(map[string]int64)
	snap := make(map[string]*entity.TransferItem, len(order))
	for _, ln := range in.Items {
		item := locked[ln.InventoryID]
		layer, err := resolveForItem(item, ln.LayerIndex, ln.Unit)
		if err != nil {
			return nil, err
		}
		tl, err := snapshotLayer(item, layer, ln.Quantity)
		if err != nil {
			return nil, err
		}
		unloads[vehicleKey{item.ID, layer}] += ln.Quantity
		pieces[item.ID] += tl.BasePieces
		ti, ok := snap[item.ID]
		if !ok {
			ti = &entity.TransferItem{InventoryID: item.ID}
			snap[item.ID] = ti
		}
		ti.Layers = append(ti.Layers, tl)
	}

	keys := sortedVehicleKeys(unloads)
	entries := make(map[vehicleKey]*entity.VehicleStockEntry, len(keys))
	for _, k := range keys {
		entry, err := r.VehicleStock.GetForUpdate(ctx, in.VehicleID, k.itemID, k.layer)
		if err != nil {
			return nil, err
		}
		if unloads[k] > entry.Quantity {
			return nil, domain.ExceedsLoaded(in.VehicleID, k.itemID, k.layer, unloads[k], entry.Quantity)
		}
		entries[k] = entry
	}
	for _, k := range keys {
		if err := unloadVehicle(ctx, r, entries[k], unloads[k], now); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(pieces)) {
		base := inventory.BaseLayer(locked[id].PackagingStructure)
		if err := applyItemDelta(ctx, r, locked[id], pieces[id], base, now); err != nil {
			return nil, err
		}
	}

	items := make([]entity.TransferItem, 0, len(order))
	for _, id := range order {
		ti := snap[id]
		items = append(items, *ti)
		for _, tl := range ti.Layers {
			if err := r.Movements.Create(ctx, &entity.InventoryMovement{
				ID:            uuid.New().String(),
				TransactionID: docID,
				ItemID:        id,
				VehicleID:     in.VehicleID,
				Type:          entity.MovementTypeReturn,
				LayerIndex:    tl.LayerIndex,
				Unit:          tl.Unit,
				Quantity:      tl.Quantity,
				BasePieces:    tl.BasePieces,
				Reference:     docID,
				CreatedAt:     now,
				CreatedBy:     in.UserID,
			}); err != nil {
				return nil, err
			}
		}
	}

	approvedAt, confirmedAt := now, now
	d := &entity.TransferDocument{
		ID:          docID,
		VehicleID:   in.VehicleID,
		Direction:   entity.DirectionReturn,
		Items:       items,
		Status:      entity.TransferStatusConfirmed,
		CreatedBy:   in.UserID,
		CreatedAt:   now,
		ApprovedAt:  &approvedAt,
		ConfirmedAt: &confirmedAt,
		UpdatedAt:   now,
	}
	if err := r.Transfers.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación y snapshot
// ──────────────────────────────────────────────────────────────────────────────

func snapshotItem(item *entity.InventoryItem, layers []LayerRequest) (entity.TransferItem, error) {
	ti := entity.TransferItem{InventoryID: item.ID, Layers: make([]entity.TransferLayer, 0, len(layers))}
	for _, req := range layers {
		idx, err := resolveForItem(item, req.LayerIndex, req.Unit)
		if err != nil {
			return ti, err
		}
		tl, err := snapshotLayer(item, idx, req.Quantity)
		if err != nil {
			return ti, err
		}
		ti.Layers = append(ti.Layers, tl)
	}
	return ti, nil
}

func snapshotLayer(item *entity.InventoryItem, layer int, qty int64) (entity.TransferLayer, error) {
	ppu, err := inventory.PiecesPerUnit(item.PackagingStructure, layer)
	if err != nil {
		return entity.TransferLayer{}, err
	}
	pieces, err := inventory.ToBasePieces(item.PackagingStructure, layer, qty)
	if err != nil {
		return entity.TransferLayer{}, err
	}
	return entity.TransferLayer{
		LayerIndex:    layer,
		Unit:          item.PackagingStructure[layer].Unit,
		Quantity:      qty,
		PiecesPerUnit: ppu,
		BasePieces:    pieces,
	}, nil
}

func validateCreate(in CreateTransferInput) error {
	if strings.TrimSpace(in.VehicleID) == "" {
		return domain.Validation("vehicleId es obligatorio")
	}
	if len(in.Items) == 0 {
		return domain.Validation("items no puede estar vacío")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.InventoryID) == "" {
			return domain.Validation("items[%d].inventoryId es obligatorio", i)
		}
		if len(it.Layers) == 0 {
			return domain.Validation("items[%d].layers no puede estar vacío", i)
		}
		for j, ln := range it.Layers {
			if ln.Quantity <= 0 {
				return domain.Validation("items[%d].layers[%d].quantity debe ser mayor que cero", i, j)
			}
			if ln.LayerIndex == nil && strings.TrimSpace(ln.Unit) == "" {
				return domain.Validation("items[%d].layers[%d] requiere layerIndex o unit", i, j)
			}
		}
	}
	return nil
}

func validateReturn(in ReturnInput) error {
	if strings.TrimSpace(in.VehicleID) == "" {
		return domain.Validation("vehicleId es obligatorio")
	}
	if len(in.Items) == 0 {
		return domain.Validation("items no puede estar vacío")
	}
	for i, ln := range in.Items {
		if strings.TrimSpace(ln.InventoryID) == "" {
			return domain.Validation("items[%d].inventoryId es obligatorio", i)
		}
		if ln.Quantity <= 0 {
			return domain.Validation("items[%d].quantity debe ser mayor que cero", i)
		}
		if ln.LayerIndex == nil && strings.TrimSpace(ln.Unit) == "" {
			return domain.Validation("items[%d] requiere layerIndex o unit", i)
		}
	}
	return nil
}

func returnFromCreate(in CreateTransferInput) ReturnInput {
	out := ReturnInput{VehicleID: in.VehicleID, UserID: in.UserID}
	for _, it := range in.Items {
		for _, ln := range it.Layers {
			out.Items = append(out.Items, ReturnLine{
				InventoryID: it.InventoryID,
				Quantity:    ln.Quantity,
				LayerIndex:  ln.LayerIndex,
				Unit:        ln.Unit,
			})
		}
	}
	return out
}

func documentLockKey(transferID string) string {
	return "transfer:" + transferID
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

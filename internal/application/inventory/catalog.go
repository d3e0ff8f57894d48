package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-flota/internal/application/dto"
	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/repository"
	"github.com/jhoicas/inventario-flota/pkg/logger"
)

// Catalog alta y consulta de ítems y vehículos.
type Catalog struct {
	txRunner    TxRunner
	itemRepo    repository.InventoryItemRepository
	vehicleRepo repository.VehicleRepository
	stockRepo   repository.VehicleStockRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewCatalog construye el caso de uso de catálogo.
func NewCatalog(
	txRunner TxRunner,
	itemRepo repository.InventoryItemRepository,
	vehicleRepo repository.VehicleRepository,
	stockRepo repository.VehicleStockRepository,
	log *logger.Logger,
) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{
		txRunner:    txRunner,
		itemRepo:    itemRepo,
		vehicleRepo: vehicleRepo,
		stockRepo:   stockRepo,
		log:         log.Component("catalog"),
		now:         time.Now,
	}
}

// CreateItemInput alta manual de un ítem, con stock inicial opcional.
type CreateItemInput struct {
	ProductName       string
	Category          string
	BuyingPrice       decimal.Decimal
	SellingPrice      decimal.Decimal
	Packaging         inventory.PackagingInput
	InitialQuantity   int64
	InitialLayerIndex *int
	InitialUnit       string
	UserID            string
}

// CreateItem normaliza el empaque y crea el ítem. El stock inicial queda como reposición
// en el diario de movimientos.
func (c *Catalog) CreateItem(ctx context.Context, in CreateItemInput) (*dto.InventoryItemResponse, error) {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return nil, domain.Validation("productName es obligatorio")
	}
	if in.BuyingPrice.IsNegative() || in.SellingPrice.IsNegative() {
		return nil, domain.Validation("los precios no pueden ser negativos")
	}
	if in.InitialQuantity < 0 {
		return nil, domain.Validation("initialQuantity no puede ser negativo")
	}
	layers, err := inventory.Normalize(in.Packaging)
	if err != nil {
		return nil, err
	}

	now := c.now()
	item := &entity.InventoryItem{
		ID:                 uuid.New().String(),
		ProductName:        name,
		Category:           strings.TrimSpace(in.Category),
		BuyingPrice:        in.BuyingPrice,
		SellingPrice:       in.SellingPrice,
		PackagingStructure: layers,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var initialLayer int
	if in.InitialQuantity > 0 {
		if in.InitialLayerIndex == nil && strings.TrimSpace(in.InitialUnit) == "" {
			initialLayer = inventory.BaseLayer(layers)
		} else if initialLayer, err = resolveForItem(item, in.InitialLayerIndex, in.InitialUnit); err != nil {
			return nil, err
		}
		if item.TotalBasePieces, err = inventory.ToBasePieces(layers, initialLayer, in.InitialQuantity); err != nil {
			return nil, err
		}
	}

	err = c.txRunner.Run(ctx, func(r TxRepos) error {
		if err := r.Items.Create(ctx, item.Clone()); err != nil {
			return err
		}
		if in.InitialQuantity == 0 {
			return nil
		}
		return r.Movements.Create(ctx, &entity.InventoryMovement{
			ID:            uuid.New().String(),
			TransactionID: item.ID,
			ItemID:        item.ID,
			Type:          entity.MovementTypeReplenish,
			LayerIndex:    initialLayer,
			Unit:          layers[initialLayer].Unit,
			Quantity:      in.InitialQuantity,
			BasePieces:    item.TotalBasePieces,
			Reference:     "alta-manual",
			CreatedAt:     now,
			CreatedBy:     in.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("item_id", item.ID).Str("product", item.ProductName).Int64("total_base_pieces", item.TotalBasePieces).Msg("ítem creado")
	resp, err := dto.NewInventoryItemResponse(item)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetInventory lista ítems con el stock derivado de cada capa.
func (c *Catalog) GetInventory(ctx context.Context, page dto.PageRequest) (*dto.InventoryListResponse, error) {
	page.DefaultPage()
	list, err := c.itemRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.InventoryListResponse{Items: make([]dto.InventoryItemResponse, 0, len(list))}
	for _, item := range list {
		resp, err := dto.NewInventoryItemResponse(item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, resp)
	}
	out.Page = dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(out.Items)}
	return out, nil
}

// GetItem ítem por ID.
func (c *Catalog) GetItem(ctx context.Context, id string) (*dto.InventoryItemResponse, error) {
	item, err := c.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NotFound("item", id)
	}
	resp, err := dto.NewInventoryItemResponse(item)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteItem elimina el ítem salvo que tenga transferencias abiertas o stock en algún vehículo.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	err := c.txRunner.Run(ctx, func(r TxRepos) error {
		if _, err := lockItem(ctx, r, id); err != nil {
			return err
		}
		open, err := r.Transfers.HasOpenForItem(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return &domain.Error{Kind: domain.ErrInvalidState, ItemID: id, Detail: "el ítem tiene transferencias abiertas"}
		}
		entries, err := r.VehicleStock.ListByItem(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Quantity > 0 {
				return &domain.Error{Kind: domain.ErrInvalidState, ItemID: id, VehicleID: e.VehicleID, Detail: "el ítem sigue cargado en un vehículo"}
			}
		}
		return r.Items.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("item_id", id).Msg("ítem eliminado")
	return nil
}

// CreateVehicle registra un vehículo.
func (c *Catalog) CreateVehicle(ctx context.Context, req dto.CreateVehicleRequest) (*dto.VehicleResponse, error) {
	name, plate := strings.TrimSpace(req.Name), strings.ToUpper(strings.TrimSpace(req.Plate))
	if name == "" || plate == "" {
		return nil, domain.Validation("name y plate son obligatorios")
	}
	now := c.now()
	v := &entity.Vehicle{
		ID:        uuid.New().String(),
		Name:      name,
		Plate:     plate,
		Driver:    strings.TrimSpace(req.Driver),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.vehicleRepo.Create(ctx, v); err != nil {
		return nil, err
	}
	c.log.Info().Str("vehicle_id", v.ID).Str("plate", v.Plate).Msg("vehículo registrado")
	return toVehicleResponse(v), nil
}

// GetVehicle vehículo por ID.
func (c *Catalog) GetVehicle(ctx context.Context, id string) (*dto.VehicleResponse, error) {
	v, err := c.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NotFound("vehicle", id)
	}
	return toVehicleResponse(v), nil
}

// ListVehicles lista vehículos.
func (c *Catalog) ListVehicles(ctx context.Context, page dto.PageRequest) (*dto.VehicleListResponse, error) {
	page.DefaultPage()
	list, err := c.vehicleRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.VehicleListResponse{Items: make([]dto.VehicleResponse, 0, len(list))}
	for _, v := range list {
		out.Items = append(out.Items, *toVehicleResponse(v))
	}
	out.Page = dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(out.Items)}
	return out, nil
}

// GetVehicleInventory entradas cargadas del vehículo con unidad, factor y piezas base.
// Las entradas en cero no se listan.
func (c *Catalog) GetVehicleInventory(ctx context.Context, vehicleID string) (*dto.VehicleInventoryResponse, error) {
	v, err := c.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NotFound("vehicle", vehicleID)
	}
	entries, err := c.stockRepo.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	out := &dto.VehicleInventoryResponse{
		VehicleID: vehicleID,
		Entries:   make([]dto.VehicleStockEntryResponse, 0, len(entries)),
		Totals:    []dto.VehicleItemTotal{},
	}
	items := make(map[string]*entity.InventoryItem)
	totals := make(map[string]int)
	for _, e := range entries {
		if e.Quantity == 0 {
			continue
		}
		item, ok := items[e.ItemID]
		if !ok {
			if item, err = c.itemRepo.GetByID(ctx, e.ItemID); err != nil {
				return nil, err
			}
			if item == nil {
				return nil, domain.NotFound("item", e.ItemID)
			}
			items[e.ItemID] = item
		}
		ppu, err := inventory.PiecesPerUnit(item.PackagingStructure, e.LayerIndex)
		if err != nil {
			return nil, err
		}
		pieces := e.Quantity * ppu
		out.Entries = append(out.Entries, dto.VehicleStockEntryResponse{
			InventoryID:   e.ItemID,
			ProductName:   item.ProductName,
			LayerIndex:    e.LayerIndex,
			Unit:          item.PackagingStructure[e.LayerIndex].Unit,
			Quantity:      e.Quantity,
			PiecesPerUnit: ppu,
			BasePieces:    pieces,
		})
		idx, ok := totals[e.ItemID]
		if !ok {
			idx = len(out.Totals)
			totals[e.ItemID] = idx
			out.Totals = append(out.Totals, dto.VehicleItemTotal{InventoryID: e.ItemID, ProductName: item.ProductName})
		}
		out.Totals[idx].TotalBasePieces += pieces
	}
	return out, nil
}

func toVehicleResponse(v *entity.Vehicle) *dto.VehicleResponse {
	return &dto.VehicleResponse{
		ID:        v.ID,
		Name:      v.Name,
		Plate:     v.Plate,
		Driver:    v.Driver,
		CreatedAt: v.CreatedAt,
	}
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PackagingLayer es un nivel de la jerarquía de empaque (0 = más externo).
// Qty es la cantidad de unidades de la capa inmediatamente interna contenidas en una unidad
// de esta capa; la capa base (índice mayor) no lleva Qty.
type PackagingLayer struct {
	LayerIndex int    `json:"layerIndex"`
	Unit       string `json:"unit"`
	Qty        int    `json:"qty,omitempty"`
}

// InventoryItem representa un producto de la bodega central.
// TotalBasePieces es la única fuente de verdad del stock; el stock por capa siempre se deriva.
type InventoryItem struct {
	ID                 string
	ProductName        string
	Category           string
	BuyingPrice        decimal.Decimal // costo por pieza base (promedio ponderado)
	SellingPrice       decimal.Decimal
	PackagingStructure []PackagingLayer
	TotalBasePieces    int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clone devuelve una copia sin alias sobre PackagingStructure.
func (i *InventoryItem) Clone() *InventoryItem {
	if i == nil {
		return nil
	}
	c := *i
	c.PackagingStructure = append([]PackagingLayer(nil), i.PackagingStructure...)
	return &c
}

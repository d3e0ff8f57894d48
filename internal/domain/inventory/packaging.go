package inventory

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// RawLayer capa tal como llega del cliente; LayerIndex y Qty pueden faltar.
type RawLayer struct {
	LayerIndex *int   `json:"layerIndex,omitempty"`
	Unit       string `json:"unit"`
	Qty        *int   `json:"qty,omitempty"`
}

// LegacyNestedForm forma heredada {outer, inner}: cada nodo tiene una capa externa y un
// nodo interno, o es una hoja con solo unit (la pieza base).
type LegacyNestedForm struct {
	Outer *RawLayer         `json:"outer,omitempty"`
	Inner *LegacyNestedForm `json:"inner,omitempty"`
	Unit  string            `json:"unit,omitempty"`
	Qty   *int              `json:"qty,omitempty"`
}

// PackagingInput unión etiquetada de las formas aceptadas en la frontera de ingreso.
// Solo uno de los campos está presente.
type PackagingInput struct {
	Flat   []RawLayer        // FlatArrayForm
	Legacy *LegacyNestedForm // LegacyNestedForm
	Unit   string            // unidad suelta
}

// UnmarshalJSON detecta la forma por el primer token: arreglo, objeto o cadena.
func (p *PackagingInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '[':
		return json.Unmarshal(data, &p.Flat)
	case '{':
		p.Legacy = &LegacyNestedForm{}
		return json.Unmarshal(data, p.Legacy)
	case '"':
		return json.Unmarshal(data, &p.Unit)
	}
	return domain.Validation("packagingStructure debe ser arreglo, objeto o texto")
}

// FromLayers envuelve una estructura canónica como entrada plana.
func FromLayers(layers []entity.PackagingLayer) PackagingInput {
	raw := make([]RawLayer, len(layers))
	for i, l := range layers {
		idx, qty := l.LayerIndex, l.Qty
		raw[i] = RawLayer{LayerIndex: &idx, Unit: l.Unit}
		if qty != 0 {
			raw[i].Qty = &qty
		}
	}
	return PackagingInput{Flat: raw}
}

// Normalize convierte cualquier forma aceptada a la estructura canónica ordenada 0..n-1.
func Normalize(in PackagingInput) ([]entity.PackagingLayer, error) {
	var raw []RawLayer
	switch {
	case in.Flat != nil:
		ordered, err := orderFlat(in.Flat)
		if err != nil {
			return nil, err
		}
		raw = ordered
	case in.Legacy != nil:
		raw = flattenLegacy(in.Legacy)
	case strings.TrimSpace(in.Unit) != "":
		raw = []RawLayer{{Unit: in.Unit}}
	default:
		return nil, domain.Validation("packagingStructure vacío")
	}
	if len(raw) == 0 {
		return nil, domain.Validation("packagingStructure vacío")
	}

	base := len(raw) - 1
	layers := make([]entity.PackagingLayer, len(raw))
	for i, r := range raw {
		unit := strings.TrimSpace(r.Unit)
		if unit == "" {
			return nil, domain.Validation("la capa %d no tiene unidad", i)
		}
		layer := entity.PackagingLayer{LayerIndex: i, Unit: unit}
		if i == base {
			if r.Qty != nil && *r.Qty <= 0 {
				return nil, domain.InvalidPackaging(i, "qty debe ser mayor que cero")
			}
		} else {
			if r.Qty == nil || *r.Qty <= 0 {
				return nil, domain.InvalidPackaging(i, "qty debe ser mayor que cero")
			}
			layer.Qty = *r.Qty
		}
		layers[i] = layer
	}
	if err := ValidateLayers(layers); err != nil {
		return nil, err
	}
	return layers, nil
}

// orderFlat ordena por layerIndex explícito; las capas sin índice conservan su posición.
func orderFlat(flat []RawLayer) ([]RawLayer, error) {
	type keyed struct {
		key int
		pos int
		raw RawLayer
	}
	seen := make(map[int]bool, len(flat))
	items := make([]keyed, len(flat))
	for i, r := range flat {
		k := i
		if r.LayerIndex != nil {
			k = *r.LayerIndex
			if k < 0 {
				return nil, domain.Validation("layerIndex negativo en la posición %d", i)
			}
			if seen[k] {
				return nil, domain.Validation("layerIndex %d duplicado", k)
			}
			seen[k] = true
		}
		items[i] = keyed{key: k, pos: i, raw: r}
	}
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].key != items[b].key {
			return items[a].key < items[b].key
		}
		return items[a].pos < items[b].pos
	})
	out := make([]RawLayer, len(items))
	for i, it := range items {
		out[i] = it.raw
	}
	return out, nil
}

func flattenLegacy(node *LegacyNestedForm) []RawLayer {
	var out []RawLayer
	for n := node; n != nil; n = n.Inner {
		if n.Outer == nil {
			out = append(out, RawLayer{Unit: n.Unit, Qty: n.Qty})
			break
		}
		out = append(out, RawLayer{Unit: n.Outer.Unit, Qty: n.Outer.Qty})
		if n.Inner == nil {
			break
		}
	}
	return out
}

// ValidateLayers verifica una estructura canónica (p. ej. leída de la base de datos):
// índices secuenciales, qty > 0 fuera de la base y factores sin desbordamiento.
func ValidateLayers(layers []entity.PackagingLayer) error {
	if len(layers) == 0 {
		return domain.Validation("packagingStructure vacío")
	}
	var ppu int64 = 1
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if l.LayerIndex != i {
			return domain.InvalidPackaging(i, "layerIndex %d fuera de secuencia", l.LayerIndex)
		}
		if i == len(layers)-1 {
			continue
		}
		if l.Qty <= 0 {
			return domain.InvalidPackaging(i, "qty debe ser mayor que cero")
		}
		if ppu > math.MaxInt64/int64(l.Qty) {
			return domain.InvalidPackaging(i, "el factor de conversión desborda")
		}
		ppu *= int64(l.Qty)
	}
	return nil
}

// BaseLayer índice de la capa base (pieza indivisible).
func BaseLayer(layers []entity.PackagingLayer) int {
	return len(layers) - 1
}

// PiecesPerUnit piezas base contenidas en una unidad de la capa i: producto de qty desde i
// hasta la capa anterior a la base. Vale 1 en la base.
func PiecesPerUnit(layers []entity.PackagingLayer, i int) (int64, error) {
	if i < 0 || i >= len(layers) {
		return 0, domain.UnitResolution("", "", &i)
	}
	var ppu int64 = 1
	for j := i; j < len(layers)-1; j++ {
		q := int64(layers[j].Qty)
		if q <= 0 {
			return 0, domain.InvalidPackaging(j, "qty debe ser mayor que cero")
		}
		if ppu > math.MaxInt64/q {
			return 0, domain.InvalidPackaging(j, "el factor de conversión desborda")
		}
		ppu *= q
	}
	return ppu, nil
}

// ToBasePieces convierte qty unidades de la capa dada a piezas base.
func ToBasePieces(layers []entity.PackagingLayer, layerIndex int, qty int64) (int64, error) {
	if qty < 0 {
		return 0, domain.Validation("cantidad negativa")
	}
	ppu, err := PiecesPerUnit(layers, layerIndex)
	if err != nil {
		return 0, err
	}
	if qty != 0 && ppu > math.MaxInt64/qty {
		return 0, domain.Validation("la cantidad desborda al convertir a piezas base")
	}
	return qty * ppu, nil
}

// LayerStock stock derivado de una capa.
type LayerStock struct {
	LayerIndex    int    `json:"layerIndex"`
	Unit          string `json:"unit"`
	PiecesPerUnit int64  `json:"piecesPerUnit"`
	Stock         int64  `json:"stock"`
}

// DeriveLayerStocks calcula floor(total / piecesPerUnit) por capa. Solo lectura; nunca se persiste.
func DeriveLayerStocks(layers []entity.PackagingLayer, totalBasePieces int64) ([]LayerStock, error) {
	out := make([]LayerStock, 0, len(layers))
	for i, l := range layers {
		ppu, err := PiecesPerUnit(layers, i)
		if err != nil {
			return nil, err
		}
		out = append(out, LayerStock{
			LayerIndex:    i,
			Unit:          l.Unit,
			PiecesPerUnit: ppu,
			Stock:         totalBasePieces / ppu,
		})
	}
	return out, nil
}

package inventory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

// Nombres canónicos de alias.
const (
	AliasPiece  = "piece"
	AliasCarton = "carton"
	AliasDozen  = "dozen"
)

var unitAliases = map[string]string{
	"pcs": AliasPiece, "piece": AliasPiece, "pieces": AliasPiece, "pc": AliasPiece,
	"und": AliasPiece, "unidad": AliasPiece, "unidades": AliasPiece,
	"ctn": AliasCarton, "carton": AliasCarton, "box": AliasCarton, "boxes": AliasCarton,
	"caja": AliasCarton, "cajas": AliasCarton,
	"dz": AliasDozen, "doz": AliasDozen, "dozen": AliasDozen, "docena": AliasDozen,
}

// UnitRef referencia a una capa enviada por el cliente: índice numérico y/o texto de unidad.
type UnitRef struct {
	LayerIndex *int
	Unit       string
}

// NormalizeUnit minúsculas, sin tildes ni signos: "Cajas." -> "cajas".
func NormalizeUnit(unit string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, unit)
	if err != nil {
		s = unit
	}
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// CanonicalUnit aplica la tabla de alias sobre la unidad normalizada.
func CanonicalUnit(unit string) string {
	n := NormalizeUnit(unit)
	if a, ok := unitAliases[n]; ok {
		return a
	}
	return n
}

// Resolve devuelve el índice de capa para ref. Orden: índice válido, coincidencia exacta sin
// distinguir mayúsculas, alias normalizado, y por último heurística (pieza -> base,
// caja -> capa 0).
func Resolve(layers []entity.PackagingLayer, ref UnitRef) (int, error) {
	if len(layers) == 0 {
		return 0, domain.UnitResolution("", ref.Unit, ref.LayerIndex)
	}
	if ref.LayerIndex != nil && *ref.LayerIndex >= 0 && *ref.LayerIndex < len(layers) {
		return *ref.LayerIndex, nil
	}
	unit := strings.TrimSpace(ref.Unit)
	if unit == "" {
		return 0, domain.UnitResolution("", ref.Unit, ref.LayerIndex)
	}
	for i, l := range layers {
		if strings.EqualFold(strings.TrimSpace(l.Unit), unit) {
			return i, nil
		}
	}
	want := CanonicalUnit(unit)
	if want != "" {
		for i, l := range layers {
			if CanonicalUnit(l.Unit) == want {
				return i, nil
			}
		}
	}
	switch want {
	case AliasPiece:
		return BaseLayer(layers), nil
	case AliasCarton:
		return 0, nil
	}
	return 0, domain.UnitResolution("", ref.Unit, ref.LayerIndex)
}

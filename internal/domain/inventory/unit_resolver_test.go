package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flota/internal/domain"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
)

func intPtr(v int) *int { return &v }

func TestResolve_IndiceNumericoValido(t *testing.T) {
	idx, err := inventory.Resolve(cartonDozenPiece(), inventory.UnitRef{LayerIndex: intPtr(1), Unit: "CTN"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "el índice válido tiene prioridad sobre la unidad")
}

func TestResolve_IndiceFueraDeRangoUsaUnidad(t *testing.T) {
	idx, err := inventory.Resolve(cartonDozenPiece(), inventory.UnitRef{LayerIndex: intPtr(9), Unit: "dz"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestResolve_CoincidenciaExactaSinMayusculas(t *testing.T) {
	idx, err := inventory.Resolve(cartonDozenPiece(), inventory.UnitRef{Unit: "ctn"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

// Escenario C: "pcs" resuelve a la base sin importar cómo está guardada la etiqueta.
func TestResolve_EscenarioC_AliasPiezas(t *testing.T) {
	for _, label := range []string{"Pieces", "PCS", "piece", "Pc", "Unidades"} {
		layers := []entity.PackagingLayer{
			{LayerIndex: 0, Unit: "Carton", Qty: 4},
			{LayerIndex: 1, Unit: label},
		}
		idx, err := inventory.Resolve(layers, inventory.UnitRef{Unit: "pcs"})
		require.NoError(t, err, label)
		assert.Equal(t, 1, idx, label)
	}
}

func TestResolve_AliasCaja(t *testing.T) {
	layers := []entity.PackagingLayer{
		{LayerIndex: 0, Unit: "Cajas", Qty: 6},
		{LayerIndex: 1, Unit: "UND"},
	}
	idx, err := inventory.Resolve(layers, inventory.UnitRef{Unit: "box"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestResolve_HeuristicaPiezaYCaja(t *testing.T) {
	layers := []entity.PackagingLayer{
		{LayerIndex: 0, Unit: "BULTO", Qty: 5},
		{LayerIndex: 1, Unit: "PAQ", Qty: 10},
		{LayerIndex: 2, Unit: "SOBRE"},
	}

	idx, err := inventory.Resolve(layers, inventory.UnitRef{Unit: "pieces"})
	require.NoError(t, err)
	assert.Equal(t, 2, idx, "pieza sin coincidencia -> capa base")

	idx, err = inventory.Resolve(layers, inventory.UnitRef{Unit: "carton"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "caja sin coincidencia -> capa 0")
}

func TestResolve_TildesYSignos(t *testing.T) {
	layers := []entity.PackagingLayer{
		{LayerIndex: 0, Unit: "Caja", Qty: 6},
		{LayerIndex: 1, Unit: "Sobre"},
	}
	idx, err := inventory.Resolve(layers, inventory.UnitRef{Unit: "SOBRÉ."})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestResolve_SinCoincidenciaFalla(t *testing.T) {
	_, err := inventory.Resolve(cartonDozenPiece(), inventory.UnitRef{Unit: "litro"})
	assert.ErrorIs(t, err, domain.ErrUnitResolution)

	_, err = inventory.Resolve(cartonDozenPiece(), inventory.UnitRef{LayerIndex: intPtr(-1)})
	assert.ErrorIs(t, err, domain.ErrUnitResolution)
}

package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-flota/internal/domain/inventory"
)

func TestCostCalculator_PromedioPonderadoPorPieza(t *testing.T) {
	// 120 piezas a 10 + 1 caja (120 piezas) a 1440 (12 por pieza) = 11 por pieza.
	got := inventory.CostCalculator(120, decimal.NewFromInt(10), 120, 120, decimal.NewFromInt(1440))
	assert.True(t, got.Equal(decimal.NewFromInt(11)), "costo: %s", got)
}

func TestCostCalculator_SinStockPrevioTomaCostoEntrada(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.Zero, 12, 12, decimal.NewFromInt(60))
	assert.True(t, got.Equal(decimal.NewFromInt(5)), "costo: %s", got)
}

func TestCostCalculator_FactorInvalidoConservaCosto(t *testing.T) {
	got := inventory.CostCalculator(10, decimal.NewFromInt(7), 5, 0, decimal.NewFromInt(100))
	assert.True(t, got.Equal(decimal.NewFromInt(7)))
}

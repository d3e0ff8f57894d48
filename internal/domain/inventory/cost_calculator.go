package inventory

import "github.com/shopspring/decimal"

// CostCalculator costo promedio ponderado por pieza base al recibir una reposición.
// unitCost es el costo de una unidad de la capa recibida; se reparte entre sus piezas base.
// NuevoCosto = ((StockActual * CostoActual) + (PiezasEntrada * CostoPieza)) / (StockActual + PiezasEntrada)
func CostCalculator(stockPieces int64, currentCost decimal.Decimal, inPieces, piecesPerUnit int64, unitCost decimal.Decimal) decimal.Decimal {
	if piecesPerUnit <= 0 {
		return currentCost
	}
	sum := stockPieces + inPieces
	if sum <= 0 {
		return decimal.Zero
	}
	if stockPieces < 0 {
		stockPieces = 0
	}
	costPerPiece := unitCost.Div(decimal.NewFromInt(piecesPerUnit))
	num := decimal.NewFromInt(stockPieces).Mul(currentCost).Add(decimal.NewFromInt(inPieces).Mul(costPerPiece))
	return num.Div(decimal.NewFromInt(sum)).Round(4)
}

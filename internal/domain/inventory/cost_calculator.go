package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado al recibir mercancía (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantRecibida * CostoUnitario)) / (StockActual + CantRecibida)
// Con stock previo no positivo el costo pasa a ser el de la recepción.
func WeightedAverageCost(onHand int, currentCost decimal.Decimal, received int, unitCost decimal.Decimal) decimal.Decimal {
	if received <= 0 {
		return currentCost
	}
	if onHand <= 0 {
		return unitCost
	}
	qOnHand := decimal.NewFromInt(int64(onHand))
	qIn := decimal.NewFromInt(int64(received))
	num := qOnHand.Mul(currentCost).Add(qIn.Mul(unitCost))
	return num.Div(qOnHand.Add(qIn)).Round(4)
}

package inventory

import "github.com/shopspring/decimal"

const (
	intermediatePlaces int32 = 4
	moneyPlaces        int32 = 2
)

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// La división se redondea a 4 decimales y el resultado a 2. Con stock actual 0 el costo de entrada reemplaza al actual.
func WeightedAverageCost(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual <= 0 {
		return costoEntrada.Round(moneyPlaces)
	}
	actual := decimal.NewFromInt(stockActual)
	entrada := decimal.NewFromInt(cantEntrada)
	sum := actual.Add(entrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := actual.Mul(costoActual).Add(entrada.Mul(costoEntrada))
	return num.DivRound(sum, intermediatePlaces).Round(moneyPlaces)
}

package inventory

import (
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementValue valor monetario de un movimiento (servicio de dominio).
// Valor = Σ |Cantidad| * PrecioCompra; los ajustes negativos cuentan por su magnitud.
func MovementValue(lines []entity.MovementLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		qty := l.Quantity
		if qty < 0 {
			qty = -qty
		}
		total = total.Add(decimal.NewFromInt(qty).Mul(l.BuyPrice))
	}
	return total
}

// ResolveValue devuelve el valor explícito si existe, o el calculado desde las líneas.
func ResolveValue(explicit *decimal.Decimal, lines []entity.MovementLine) *decimal.Decimal {
	if explicit != nil {
		v := *explicit
		return &v
	}
	v := MovementValue(lines)
	return &v
}

package inventory

import (
	"fmt"
	"math"
	"sort"

	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerDelta cambio firmado de cantidad sobre una entrada del ledger.
// BuyPrice nil conserva el precio de compra actual de la entrada.
type LedgerDelta struct {
	WarehouseID string
	ProductID   string
	Quantity    int64
	BuyPrice    *decimal.Decimal
}

// Key identifica la entrada del ledger afectada.
func (d LedgerDelta) Key() LedgerKey {
	return LedgerKey{WarehouseID: d.WarehouseID, ProductID: d.ProductID}
}

// LedgerKey par (bodega, producto).
type LedgerKey struct {
	WarehouseID string
	ProductID   string
}

// Less orden total usado para bloquear filas siempre en la misma secuencia.
func (k LedgerKey) Less(o LedgerKey) bool {
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.ProductID < o.ProductID
}

// MovementDeltas deltas de un movimiento nuevo: cada línea aporta el efecto direccional completo.
func MovementDeltas(m *entity.Movement) ([]LedgerDelta, error) {
	var raw []LedgerDelta
	for _, l := range m.Lines {
		ds, err := lineDeltas(m, l, 1)
		if err != nil {
			return nil, err
		}
		raw = append(raw, ds...)
	}
	return MergeDeltas(raw)
}

// ReversalDeltas negación del efecto de todas las líneas (eliminación del movimiento).
func ReversalDeltas(m *entity.Movement) ([]LedgerDelta, error) {
	var raw []LedgerDelta
	for _, l := range m.Lines {
		ds, err := lineDeltas(m, l, -1)
		if err != nil {
			return nil, err
		}
		raw = append(raw, ds...)
	}
	return MergeDeltas(raw)
}

// EditDeltas deltas de una edición. Las líneas actualizadas aportan efecto(nuevo) − efecto(anterior),
// nunca la cantidad nueva completa; las creadas aportan su efecto completo; las eliminadas
// revierten su efecto original solo si reverseRemoved es true.
func EditDeltas(m *entity.Movement, diff LineDiff, reverseRemoved bool) ([]LedgerDelta, error) {
	type signed struct {
		line entity.MovementLine
		sign int64
	}
	var parts []signed
	for _, l := range diff.ToUpdate {
		if !diff.Changed(l) {
			continue
		}
		old, _ := diff.Previous(l.ID)
		parts = append(parts, signed{l, 1}, signed{old, -1})
	}
	for _, l := range diff.ToCreate {
		parts = append(parts, signed{l, 1})
	}
	if reverseRemoved {
		for _, l := range diff.ToRemove {
			parts = append(parts, signed{l, -1})
		}
	}

	var raw []LedgerDelta
	for _, p := range parts {
		ds, err := lineDeltas(m, p.line, p.sign)
		if err != nil {
			return nil, err
		}
		raw = append(raw, ds...)
	}
	return MergeDeltas(raw)
}

// lineDeltas aplica la tabla direccional del tipo a una línea. sign=-1 revierte el efecto.
// Solo las aplicaciones directas con cantidad positiva llevan precio de compra.
func lineDeltas(m *entity.Movement, l entity.MovementLine, sign int64) ([]LedgerDelta, error) {
	if l.Quantity > entity.MaxLineQuantity || l.Quantity < -entity.MaxLineQuantity {
		return nil, fmt.Errorf("cantidad %d fuera de rango: %w", l.Quantity, domain.ErrInvalidInput)
	}
	effect := m.Type.Effect()
	var out []LedgerDelta
	add := func(warehouseID string, mult int64) {
		if mult == 0 || warehouseID == "" {
			return
		}
		d := LedgerDelta{WarehouseID: warehouseID, ProductID: l.ProductID, Quantity: sign * mult * l.Quantity}
		if sign > 0 && d.Quantity > 0 {
			price := l.BuyPrice
			d.BuyPrice = &price
		}
		out = append(out, d)
	}
	add(m.OriginWarehouseID, effect.Origin)
	add(m.DestinyWarehouseID, effect.Destiny)
	return out, nil
}

// AddQuantity suma dos cantidades y falla con ErrInvalidInput si el resultado no cabe en int64.
func AddQuantity(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("la suma %d + %d desborda la cantidad: %w", a, b, domain.ErrInvalidInput)
	}
	return a + b, nil
}

// MergeDeltas suma los deltas por (bodega, producto), descarta los netos en cero y ordena por clave.
// El precio resultante es el del último aporte con precio, y solo se conserva si el neto es positivo.
func MergeDeltas(deltas []LedgerDelta) ([]LedgerDelta, error) {
	byKey := make(map[LedgerKey]*LedgerDelta, len(deltas))
	keys := make([]LedgerKey, 0, len(deltas))
	for _, d := range deltas {
		k := d.Key()
		acc, ok := byKey[k]
		if !ok {
			acc = &LedgerDelta{WarehouseID: d.WarehouseID, ProductID: d.ProductID}
			byKey[k] = acc
			keys = append(keys, k)
		}
		sum, err := AddQuantity(acc.Quantity, d.Quantity)
		if err != nil {
			return nil, fmt.Errorf("bodega %s producto %s: %w", d.WarehouseID, d.ProductID, err)
		}
		acc.Quantity = sum
		if d.BuyPrice != nil {
			p := *d.BuyPrice
			acc.BuyPrice = &p
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]LedgerDelta, 0, len(keys))
	for _, k := range keys {
		d := byKey[k]
		if d.Quantity == 0 {
			continue
		}
		if d.Quantity < 0 {
			d.BuyPrice = nil
		}
		out = append(out, *d)
	}
	return out, nil
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry cantidad disponible de un producto en una bodega (tabla derivada de los movimientos).
// Existe a lo sumo una por par (bodega, producto); solo la modifica el ledger de inventario.
type LedgerEntry struct {
	ID          string
	WarehouseID string
	ProductID   string
	Quantity    int64
	BuyPrice    decimal.Decimal // último precio de compra conocido
	LastUpdate  time.Time
}

// LowStockItem entrada del ledger por debajo de la cantidad mínima del producto.
type LowStockItem struct {
	WarehouseID     string
	ProductID       string
	SKU             string
	Description     string
	Quantity        int64
	MinimumQuantity int64
	BuyPrice        decimal.Decimal
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// El stock se maneja por bodega en LedgerEntry; MinimumQuantity alimenta el reporte de stock bajo.
type Product struct {
	ID              string
	SKU             string
	Description     string
	BuyPrice        decimal.Decimal
	SellPrice       decimal.Decimal
	MinimumQuantity int64
	CreatedAt       time.Time
}

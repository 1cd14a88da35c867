package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryResponse cantidad disponible de un producto en una bodega.
type LedgerEntryResponse struct {
	WarehouseID string          `json:"warehouse_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	LastUpdate  time.Time       `json:"last_update"`
}

// LedgerListResponse lista paginada de entradas del ledger.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// LowStockSuggestionDTO entrada por debajo de la cantidad mínima con la reposición sugerida.
type LowStockSuggestionDTO struct {
	WarehouseID        string          `json:"warehouse_id"`
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	Description        string          `json:"description"`
	Quantity           int64           `json:"quantity"`
	MinimumQuantity    int64           `json:"minimum_quantity"`
	Deficit            int64           `json:"deficit"`             // MinimumQuantity - Quantity
	IdealQuantity      int64           `json:"ideal_quantity"`      // MinimumQuantity * 1.5
	SuggestedOrderQty  int64           `json:"suggested_order_qty"` // IdealQuantity - Quantity
	BuyPrice           decimal.Decimal `json:"buy_price"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * BuyPrice
	Priority           int             `json:"priority"`             // 1 = más urgente
}

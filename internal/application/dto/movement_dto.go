package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementLineRequest línea de un movimiento. ID vacío en creación; en edición identifica la línea existente.
type MovementLineRequest struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"min=-1000000000000,max=1000000000000"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
}

// CreateMovementRequest body para POST /api/stock-movements.
// IN: destiny_warehouse_id. OUT/ADJUSTMENT: origin_warehouse_id. TRANSFER: ambos.
type CreateMovementRequest struct {
	Type               string                `json:"type" validate:"required"`
	Value              *decimal.Decimal      `json:"value,omitempty"`
	Description        string                `json:"description" validate:"max=500"`
	VoucherDescription string                `json:"voucher_description" validate:"max=500"`
	Date               *time.Time            `json:"date,omitempty"`
	OriginWarehouseID  string                `json:"origin_warehouse_id,omitempty"`
	DestinyWarehouseID string                `json:"destiny_warehouse_id,omitempty"`
	Lines              []MovementLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// EditMovementRequest body para PATCH /api/stock-movements/:id.
// Lines es el conjunto completo propuesto de líneas.
type EditMovementRequest struct {
	Value *decimal.Decimal      `json:"value,omitempty"`
	Lines []MovementLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// MovementLineResponse salida de una línea.
type MovementLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
}

// MovementResponse salida de un movimiento con sus líneas.
type MovementResponse struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Value              *decimal.Decimal       `json:"value,omitempty"`
	Description        string                 `json:"description"`
	VoucherDescription string                 `json:"voucher_description"`
	Date               time.Time              `json:"date"`
	OriginWarehouseID  string                 `json:"origin_warehouse_id,omitempty"`
	DestinyWarehouseID string                 `json:"destiny_warehouse_id,omitempty"`
	UserID             string                 `json:"user_id"`
	Lines              []MovementLineResponse `json:"lines"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementFilter criterios de listado de movimientos. Campos vacíos no filtran.
type MovementFilter struct {
	Type        entity.MovementType
	WarehouseID string // coincide con origen o destino
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// MovementRepository define el puerto de persistencia para movimientos y sus líneas.
type MovementRepository interface {
	// Create persiste el movimiento y sus líneas; asigna IDs faltantes.
	Create(ctx context.Context, movement *entity.Movement) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetByIDForUpdate igual que GetByID pero bloquea el movimiento hasta el fin de la transacción.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// UpdateLines actualiza, crea y elimina líneas del movimiento y guarda su valor.
	UpdateLines(ctx context.Context, movementID string, value *decimal.Decimal, toUpdate, toCreate []*entity.MovementLine, toRemove []string) error
	Delete(ctx context.Context, id string) error
}

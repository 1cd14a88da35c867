package repository

import (
	"context"

	"github.com/jhoicas/stock-movements/internal/domain/entity"
)

// LedgerRepository define el puerto para consultar/actualizar el ledger por bodega+producto.
// Usado dentro de transacciones para garantizar consistencia.
type LedgerRepository interface {
	// Get devuelve nil, nil si la entrada no existe.
	Get(ctx context.Context, warehouseID, productID string) (*entity.LedgerEntry, error)
	// GetForUpdate bloquea la entrada hasta el fin de la transacción. Si no existe devuelve
	// una entrada con cantidad cero (la implementación puede crearla para poder bloquearla).
	GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.LedgerEntry, error)
	Upsert(ctx context.Context, entry *entity.LedgerEntry) error
	ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.LedgerEntry, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.LedgerEntry, error)
	// ListBelowMinimum entradas cuya cantidad es inferior a la cantidad mínima del producto.
	// warehouseID vacío considera todas las bodegas.
	ListBelowMinimum(ctx context.Context, warehouseID string) ([]entity.LowStockItem, error)
}

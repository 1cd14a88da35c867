package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// Ledger aplica deltas de cantidad sobre las entradas (bodega, producto).
// No guarda estado: opera sobre el LedgerRepository atado a la transacción del caller.
type Ledger struct {
	now func() time.Time
}

// NewLedger construye el ledger. now nil usa time.Now.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Get devuelve la entrada o nil si no existe.
func (l *Ledger) Get(ctx context.Context, repo repository.LedgerRepository, warehouseID, productID string) (*entity.LedgerEntry, error) {
	return repo.Get(ctx, warehouseID, productID)
}

// ApplyDelta aplica un único delta. Una entrada ausente cuenta como cantidad cero.
func (l *Ledger) ApplyDelta(ctx context.Context, repo repository.LedgerRepository, delta inventory.LedgerDelta) (*entity.LedgerEntry, error) {
	entries, err := l.BulkApplyDeltas(ctx, repo, []inventory.LedgerDelta{delta})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// delta cero: nada que escribir
		return repo.GetForUpdate(ctx, delta.WarehouseID, delta.ProductID)
	}
	return entries[0], nil
}

// BulkApplyDeltas agrupa los deltas por clave, bloquea las filas en orden de clave,
// verifica todas las cantidades resultantes y solo entonces escribe. Si alguna quedaría
// negativa retorna *domain.InsufficientQuantityError sin escribir ninguna; si alguna
// desborda int64 retorna un error de ErrInvalidInput.
func (l *Ledger) BulkApplyDeltas(ctx context.Context, repo repository.LedgerRepository, deltas []inventory.LedgerDelta) ([]*entity.LedgerEntry, error) {
	merged, err := inventory.MergeDeltas(deltas)
	if err != nil {
		return nil, err
	}
	entries := make([]*entity.LedgerEntry, 0, len(merged))
	next := make([]int64, 0, len(merged))

	// MergeDeltas ya devuelve las claves ordenadas
	for _, d := range merged {
		entry, err := repo.GetForUpdate(ctx, d.WarehouseID, d.ProductID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			entry = &entity.LedgerEntry{WarehouseID: d.WarehouseID, ProductID: d.ProductID}
		}
		qty, err := inventory.AddQuantity(entry.Quantity, d.Quantity)
		if err != nil {
			return nil, fmt.Errorf("bodega %s producto %s: %w", d.WarehouseID, d.ProductID, err)
		}
		if qty < 0 {
			return nil, &domain.InsufficientQuantityError{
				WarehouseID: d.WarehouseID,
				ProductID:   d.ProductID,
				Available:   entry.Quantity,
				Requested:   -d.Quantity,
			}
		}
		entries = append(entries, entry)
		next = append(next, qty)
	}

	now := l.now()
	for i, d := range merged {
		entry := entries[i]
		entry.Quantity = next[i]
		if d.BuyPrice != nil {
			entry.BuyPrice = *d.BuyPrice
		}
		entry.LastUpdate = now
		if err := repo.Upsert(ctx, entry); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

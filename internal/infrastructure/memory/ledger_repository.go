package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo ledger en memoria, una entrada por (bodega, producto).
type LedgerRepo struct {
	store *Store
	tx    *state
}

func (r *LedgerRepo) read(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.store.read(fn)
}

func key(warehouseID, productID string) domaininv.LedgerKey {
	return domaininv.LedgerKey{WarehouseID: warehouseID, ProductID: productID}
}

func (r *LedgerRepo) Get(_ context.Context, warehouseID, productID string) (*entity.LedgerEntry, error) {
	var out *entity.LedgerEntry
	err := r.read(func(st *state) error {
		if e, ok := st.ledger[key(warehouseID, productID)]; ok {
			cp := *e
			out = &cp
		}
		return nil
	})
	return out, err
}

// GetForUpdate devuelve la entrada o una en cero (sin guardarla) si no existe.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.LedgerEntry, error) {
	e, err := r.Get(ctx, warehouseID, productID)
	if err != nil || e != nil {
		return e, err
	}
	return &entity.LedgerEntry{WarehouseID: warehouseID, ProductID: productID}, nil
}

func (r *LedgerRepo) Upsert(ctx context.Context, entry *entity.LedgerEntry) error {
	write := func(st *state) error {
		k := key(entry.WarehouseID, entry.ProductID)
		if existing, ok := st.ledger[k]; ok {
			entry.ID = existing.ID
		} else if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		cp := *entry
		st.ledger[k] = &cp
		return nil
	}
	if r.tx != nil {
		return write(r.tx)
	}
	return r.store.apply(ctx, write)
}

func (r *LedgerRepo) ListByWarehouse(_ context.Context, warehouseID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	list := r.collect(func(e *entity.LedgerEntry) bool { return e.WarehouseID == warehouseID })
	return page(list, limit, offset), nil
}

func (r *LedgerRepo) ListByProduct(_ context.Context, productID string) ([]*entity.LedgerEntry, error) {
	return r.collect(func(e *entity.LedgerEntry) bool { return e.ProductID == productID }), nil
}

func (r *LedgerRepo) ListBelowMinimum(_ context.Context, warehouseID string) ([]entity.LowStockItem, error) {
	entries := r.collect(func(e *entity.LedgerEntry) bool {
		return warehouseID == "" || e.WarehouseID == warehouseID
	})
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []entity.LowStockItem
	for _, e := range entries {
		p, ok := r.store.products[e.ProductID]
		if !ok || e.Quantity >= p.MinimumQuantity {
			continue
		}
		out = append(out, entity.LowStockItem{
			WarehouseID:     e.WarehouseID,
			ProductID:       e.ProductID,
			SKU:             p.SKU,
			Description:     p.Description,
			Quantity:        e.Quantity,
			MinimumQuantity: p.MinimumQuantity,
			BuyPrice:        e.BuyPrice,
		})
	}
	return out, nil
}

// collect copia las entradas que cumplen el filtro, ordenadas por clave.
func (r *LedgerRepo) collect(match func(e *entity.LedgerEntry) bool) []*entity.LedgerEntry {
	var out []*entity.LedgerEntry
	_ = r.read(func(st *state) error {
		for _, e := range st.ledger {
			if match(e) {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].WarehouseID, out[i].ProductID).Less(key(out[j].WarehouseID, out[j].ProductID))
	})
	return out
}

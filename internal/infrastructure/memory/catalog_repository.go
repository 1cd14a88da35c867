package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

var (
	_ repository.ProductRepository   = (*ProductRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

// ProductRepo catálogo de productos en memoria.
type ProductRepo struct{ store *Store }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := r.store.products[p.ID]; ok {
		return fmt.Errorf("producto %s: %w", p.ID, domain.ErrDuplicate)
	}
	for _, existing := range r.store.products {
		if p.SKU != "" && existing.SKU == p.SKU {
			return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicate)
		}
	}
	cp := *p
	r.store.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) FindByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	r.store.mu.RLock()
	list := make([]*entity.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		cp := *p
		list = append(list, &cp)
	}
	r.store.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].SKU < list[j].SKU })
	return page(list, limit, offset), nil
}

// WarehouseRepo catálogo de bodegas en memoria.
type WarehouseRepo struct{ store *Store }

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if _, ok := r.store.warehouses[w.ID]; ok {
		return fmt.Errorf("bodega %s: %w", w.ID, domain.ErrDuplicate)
	}
	cp := *w
	r.store.warehouses[w.ID] = &cp
	return nil
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *WarehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	r.store.mu.RLock()
	list := make([]*entity.Warehouse, 0, len(r.store.warehouses))
	for _, w := range r.store.warehouses {
		cp := *w
		list = append(list, &cp)
	}
	r.store.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return page(list, limit, offset), nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return []T{}
		}
		list = list[offset:]
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

package repository

import (
	"context"

	"github.com/jhoicas/stock-movements/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// FindByIDs devuelve los productos existentes indexados por ID; los ausentes no aparecen.
	FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
}

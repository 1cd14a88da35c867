package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// ProductUseCase casos de uso del catálogo de productos. El stock se maneja vía movimientos.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: time.Now}
}

// Create crea un nuevo producto. SKU repetido devuelve domain.ErrDuplicate (lo detecta el repositorio).
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	switch {
	case sku == "":
		return nil, fmt.Errorf("sku requerido: %w", domain.ErrInvalidInput)
	case in.BuyPrice.IsNegative(), in.SellPrice.IsNegative():
		return nil, fmt.Errorf("precios negativos: %w", domain.ErrInvalidInput)
	case in.MinimumQuantity < 0:
		return nil, fmt.Errorf("cantidad mínima negativa: %w", domain.ErrInvalidInput)
	}
	product := &entity.Product{
		ID:              uuid.New().String(),
		SKU:             sku,
		Description:     in.Description,
		BuyPrice:        in.BuyPrice,
		SellPrice:       in.SellPrice,
		MinimumQuantity: in.MinimumQuantity,
		CreatedAt:       uc.now(),
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. domain.ErrProductNotFound si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Description:     p.Description,
		BuyPrice:        p.BuyPrice,
		SellPrice:       p.SellPrice,
		MinimumQuantity: p.MinimumQuantity,
		CreatedAt:       p.CreatedAt,
	}
}

package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// StockQueryUseCase consultas de solo lectura sobre el ledger y la lista de reposición.
type StockQueryUseCase struct {
	ledgerRepo repository.LedgerRepository
}

// NewStockQueryUseCase construye el caso de uso de consultas de stock.
func NewStockQueryUseCase(ledgerRepo repository.LedgerRepository) *StockQueryUseCase {
	return &StockQueryUseCase{ledgerRepo: ledgerRepo}
}

// GetEntry devuelve la entrada (bodega, producto) o domain.ErrNotFound si nunca se ha referenciado.
func (uc *StockQueryUseCase) GetEntry(ctx context.Context, warehouseID, productID string) (*dto.LedgerEntryResponse, error) {
	entry, err := uc.ledgerRepo.Get(ctx, warehouseID, productID)
	if err != nil {
		return nil, domain.WrapPersistence("get ledger entry", err)
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	return toLedgerEntryResponse(entry), nil
}

// ListByWarehouse lista las entradas de una bodega con paginación.
func (uc *StockQueryUseCase) ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) (*dto.LedgerListResponse, error) {
	list, err := uc.ledgerRepo.ListByWarehouse(ctx, warehouseID, limit, offset)
	if err != nil {
		return nil, domain.WrapPersistence("list ledger by warehouse", err)
	}
	return &dto.LedgerListResponse{
		Items: toLedgerEntryResponses(list),
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// ListByProduct lista las existencias de un producto en todas las bodegas.
func (uc *StockQueryUseCase) ListByProduct(ctx context.Context, productID string) (*dto.LedgerListResponse, error) {
	list, err := uc.ledgerRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, domain.WrapPersistence("list ledger by product", err)
	}
	return &dto.LedgerListResponse{
		Items: toLedgerEntryResponses(list),
		Page:  dto.PageResponse{Limit: len(list)},
	}, nil
}

// LowStock devuelve las entradas por debajo de la cantidad mínima del producto con la cantidad
// sugerida de pedido (hasta 1.5 veces el mínimo) y su costo estimado.
// warehouseID vacío considera todas las bodegas. Orden: mayor déficit primero.
func (uc *StockQueryUseCase) LowStock(ctx context.Context, warehouseID string) ([]dto.LowStockSuggestionDTO, error) {
	items, err := uc.ledgerRepo.ListBelowMinimum(ctx, warehouseID)
	if err != nil {
		return nil, domain.WrapPersistence("list low stock", err)
	}
	suggestions := make([]dto.LowStockSuggestionDTO, 0, len(items))
	for _, item := range items {
		ideal := (item.MinimumQuantity*3 + 1) / 2
		suggested := ideal - item.Quantity
		if suggested < 0 {
			suggested = 0
		}
		suggestions = append(suggestions, dto.LowStockSuggestionDTO{
			WarehouseID:        item.WarehouseID,
			ProductID:          item.ProductID,
			SKU:                item.SKU,
			Description:        item.Description,
			Quantity:           item.Quantity,
			MinimumQuantity:    item.MinimumQuantity,
			Deficit:            item.MinimumQuantity - item.Quantity,
			IdealQuantity:      ideal,
			SuggestedOrderQty:  suggested,
			BuyPrice:           item.BuyPrice,
			EstimatedOrderCost: decimal.NewFromInt(suggested).Mul(item.BuyPrice),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Deficit != b.Deficit {
			return a.Deficit > b.Deficit
		}
		// desempate: mayor costo de reposición primero
		if !a.EstimatedOrderCost.Equal(b.EstimatedOrderCost) {
			return a.EstimatedOrderCost.GreaterThan(b.EstimatedOrderCost)
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.ProductID < b.ProductID
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

func toLedgerEntryResponses(list []*entity.LedgerEntry) []dto.LedgerEntryResponse {
	items := make([]dto.LedgerEntryResponse, 0, len(list))
	for _, e := range list {
		items = append(items, *toLedgerEntryResponse(e))
	}
	return items
}

func toLedgerEntryResponse(e *entity.LedgerEntry) *dto.LedgerEntryResponse {
	return &dto.LedgerEntryResponse{
		WarehouseID: e.WarehouseID,
		ProductID:   e.ProductID,
		Quantity:    e.Quantity,
		BuyPrice:    e.BuyPrice,
		LastUpdate:  e.LastUpdate,
	}
}

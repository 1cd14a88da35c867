package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// VoucherUseCase genera el comprobante PDF de un movimiento.
type VoucherUseCase struct {
	movementRepo  repository.MovementRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	generator     VoucherGenerator
}

// NewVoucherUseCase construye el caso de uso.
func NewVoucherUseCase(
	movementRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	generator VoucherGenerator,
) *VoucherUseCase {
	return &VoucherUseCase{
		movementRepo:  movementRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		generator:     generator,
	}
}

// Generate carga el movimiento con sus bodegas y productos y devuelve los bytes del PDF.
func (uc *VoucherUseCase) Generate(ctx context.Context, movementID string) ([]byte, error) {
	m, err := uc.movementRepo.GetByID(ctx, movementID)
	if err != nil {
		return nil, domain.WrapPersistence("get movement", err)
	}
	if m == nil {
		return nil, domain.ErrMovementNotFound
	}

	data := VoucherData{Movement: m}
	if data.Origin, err = uc.warehouse(ctx, m.OriginWarehouseID); err != nil {
		return nil, err
	}
	if data.Destiny, err = uc.warehouse(ctx, m.DestinyWarehouseID); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.Lines))
	for _, l := range m.Lines {
		ids = append(ids, l.ProductID)
	}
	if data.Products, err = uc.productRepo.FindByIDs(ctx, ids); err != nil {
		return nil, domain.WrapPersistence("find products", err)
	}

	pdf, err := uc.generator.GenerateMovementVoucher(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("generar comprobante: %w", err)
	}
	return pdf, nil
}

func (uc *VoucherUseCase) warehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	if id == "" {
		return nil, nil
	}
	w, err := uc.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.WrapPersistence("get warehouse", err)
	}
	return w, nil
}

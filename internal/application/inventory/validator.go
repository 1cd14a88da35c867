package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// MovementValidator verifica un movimiento candidato antes de tocar el ledger.
// Cada regla falla con un tipo de error distinto de la taxonomía de dominio.
type MovementValidator struct {
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// NewMovementValidator construye el validador.
func NewMovementValidator(productRepo repository.ProductRepository, warehouseRepo repository.WarehouseRepository) *MovementValidator {
	return &MovementValidator{productRepo: productRepo, warehouseRepo: warehouseRepo}
}

// ValidateMovement valida tipo, bodegas, valor y líneas de un movimiento nuevo.
func (v *MovementValidator) ValidateMovement(ctx context.Context, m *entity.Movement) error {
	if !m.Type.Valid() {
		return domain.ErrInvalidMovementType
	}
	if err := validateWarehouseCombination(m); err != nil {
		return err
	}
	if m.Value != nil && m.Value.IsNegative() {
		return fmt.Errorf("valor negativo: %w", domain.ErrInvalidInput)
	}
	for _, id := range []string{m.OriginWarehouseID, m.DestinyWarehouseID} {
		if id == "" {
			continue
		}
		w, err := v.warehouseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("%s: %w", id, domain.ErrWarehouseNotFound)
		}
	}
	return v.ValidateLines(ctx, m.Type, m.Lines)
}

// ValidateLines valida las líneas para el tipo dado: al menos una, cantidades (en valor absoluto
// hasta entity.MaxLineQuantity) y precios válidos, IDs sin duplicar y productos existentes (una sola consulta).
func (v *MovementValidator) ValidateLines(ctx context.Context, t entity.MovementType, lines []entity.MovementLine) error {
	if !t.Valid() {
		return domain.ErrInvalidMovementType
	}
	if len(lines) == 0 {
		return fmt.Errorf("el movimiento no tiene líneas: %w", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(lines))
	productIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return fmt.Errorf("línea sin producto: %w", domain.ErrInvalidInput)
		}
		if t.SignedQuantity() {
			if l.Quantity == 0 {
				return fmt.Errorf("ajuste con cantidad cero: %w", domain.ErrInvalidInput)
			}
		} else if l.Quantity <= 0 {
			return fmt.Errorf("cantidad debe ser positiva: %w", domain.ErrInvalidInput)
		}
		if l.Quantity > entity.MaxLineQuantity || l.Quantity < -entity.MaxLineQuantity {
			return fmt.Errorf("cantidad supera el máximo de %d: %w", entity.MaxLineQuantity, domain.ErrInvalidInput)
		}
		if l.BuyPrice.IsNegative() {
			return fmt.Errorf("precio de compra negativo: %w", domain.ErrInvalidInput)
		}
		if l.ID != "" {
			if seen[l.ID] {
				return fmt.Errorf("línea %s duplicada: %w", l.ID, domain.ErrInvalidInput)
			}
			seen[l.ID] = true
		}
		productIDs = append(productIDs, l.ProductID)
	}

	products, err := v.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return err
	}
	for _, id := range productIDs {
		if _, ok := products[id]; !ok {
			return fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
		}
	}
	return nil
}

// CheckAvailability compara los deltas negativos (ya agrupados por bodega y producto)
// con la cantidad actual del ledger. Una entrada ausente cuenta como cero.
func (v *MovementValidator) CheckAvailability(ctx context.Context, ledgerRepo repository.LedgerRepository, deltas []inventory.LedgerDelta) error {
	merged, err := inventory.MergeDeltas(deltas)
	if err != nil {
		return err
	}
	for _, d := range merged {
		if d.Quantity >= 0 {
			continue
		}
		entry, err := ledgerRepo.Get(ctx, d.WarehouseID, d.ProductID)
		if err != nil {
			return err
		}
		var available int64
		if entry != nil {
			available = entry.Quantity
		}
		if available+d.Quantity < 0 {
			return &domain.InsufficientQuantityError{
				WarehouseID: d.WarehouseID,
				ProductID:   d.ProductID,
				Available:   available,
				Requested:   -d.Quantity,
			}
		}
	}
	return nil
}

func validateWarehouseCombination(m *entity.Movement) error {
	origin, destiny := m.OriginWarehouseID, m.DestinyWarehouseID
	switch {
	case m.Type.RequiresOrigin() && origin == "":
		return fmt.Errorf("%s requiere bodega origen: %w", m.Type, domain.ErrInvalidInput)
	case m.Type.RequiresDestiny() && destiny == "":
		return fmt.Errorf("%s requiere bodega destino: %w", m.Type, domain.ErrInvalidInput)
	case !m.Type.RequiresOrigin() && origin != "":
		return fmt.Errorf("%s no admite bodega origen: %w", m.Type, domain.ErrInvalidInput)
	case !m.Type.RequiresDestiny() && destiny != "":
		return fmt.Errorf("%s no admite bodega destino: %w", m.Type, domain.ErrInvalidInput)
	case origin != "" && origin == destiny:
		return fmt.Errorf("bodega origen y destino iguales: %w", domain.ErrInvalidInput)
	}
	return nil
}

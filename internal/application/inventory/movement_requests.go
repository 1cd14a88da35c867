package inventory

import (
	"context"

	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
)

// CreateMovementFromRequest adapta el request HTTP al caso de uso CreateMovement.
func (s *MovementService) CreateMovementFromRequest(ctx context.Context, userID string, in dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	m, err := s.CreateMovement(ctx, CreateMovementInput{
		Type:               in.Type,
		Value:              in.Value,
		Description:        in.Description,
		VoucherDescription: in.VoucherDescription,
		Date:               in.Date,
		OriginWarehouseID:  in.OriginWarehouseID,
		DestinyWarehouseID: in.DestinyWarehouseID,
		UserID:             userID,
		Lines:              toLineInputs(in.Lines),
	})
	if err != nil {
		return nil, err
	}
	return ToMovementResponse(m), nil
}

// EditMovementFromRequest adapta el request HTTP al caso de uso EditMovement.
func (s *MovementService) EditMovementFromRequest(ctx context.Context, userID, id string, in dto.EditMovementRequest) (*dto.MovementResponse, error) {
	m, err := s.EditMovement(ctx, id, EditMovementInput{
		UserID: userID,
		Value:  in.Value,
		Lines:  toLineInputs(in.Lines),
	})
	if err != nil {
		return nil, err
	}
	return ToMovementResponse(m), nil
}

// ToMovementResponse mapea la entidad a su DTO de salida.
func ToMovementResponse(m *entity.Movement) *dto.MovementResponse {
	if m == nil {
		return nil
	}
	lines := make([]dto.MovementLineResponse, 0, len(m.Lines))
	for _, l := range m.Lines {
		lines = append(lines, dto.MovementLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			BuyPrice:  l.BuyPrice,
		})
	}
	return &dto.MovementResponse{
		ID:                 m.ID,
		Type:               string(m.Type),
		Value:              m.Value,
		Description:        m.Description,
		VoucherDescription: m.VoucherDescription,
		Date:               m.Date,
		OriginWarehouseID:  m.OriginWarehouseID,
		DestinyWarehouseID: m.DestinyWarehouseID,
		UserID:             m.UserID,
		Lines:              lines,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toLineInputs(in []dto.MovementLineRequest) []LineInput {
	out := make([]LineInput, 0, len(in))
	for _, l := range in {
		out = append(out, LineInput{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity, BuyPrice: l.BuyPrice})
	}
	return out
}

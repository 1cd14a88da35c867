package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/domain"
)

// Códigos de error de la API.
const (
	CodeInvalidBody          = "INVALID_BODY"
	CodeValidation           = "VALIDATION"
	CodeInvalidMovementType  = "INVALID_MOVEMENT_TYPE"
	CodeNotFound             = "NOT_FOUND"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeDuplicate            = "DUPLICATE"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL"
)

// writeError traduce la taxonomía de errores del dominio a una respuesta HTTP.
// Los errores de persistencia no exponen la causa al cliente.
func writeError(c *fiber.Ctx, err error) error {
	var be *bodyError
	if errors.As(err, &be) {
		code := CodeValidation
		if be.details == nil {
			code = CodeInvalidBody
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: be.message, Details: be.details})
	}

	var iq *domain.InsufficientQuantityError
	switch {
	case errors.As(err, &iq):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    CodeInsufficientQuantity,
			Message: iq.Error(),
			Details: []dto.FieldError{
				{Field: "warehouse_id", Message: iq.WarehouseID},
				{Field: "product_id", Message: iq.ProductID},
				{Field: "available", Message: fmt.Sprint(iq.Available)},
				{Field: "requested", Message: fmt.Sprint(iq.Requested)},
			},
		})
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: CodeInsufficientQuantity, Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidMovementType):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeInvalidMovementType, Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeValidation, Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: CodeNotFound, Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: CodeDuplicate, Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: CodeForbidden, Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: CodeInternal, Message: "error interno"})
	}
}

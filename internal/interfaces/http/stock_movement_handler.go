package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// StockMovementHandler maneja las peticiones HTTP de movimientos de inventario (protegido).
type StockMovementHandler struct {
	svc     *inventory.MovementService
	voucher *inventory.VoucherUseCase
}

// NewStockMovementHandler construye el handler. voucher puede ser nil si no hay generador de PDF.
func NewStockMovementHandler(svc *inventory.MovementService, voucher *inventory.VoucherUseCase) *StockMovementHandler {
	return &StockMovementHandler{svc: svc, voucher: voucher}
}

// Create godoc
// @Summary      Registrar movimiento de inventario
// @Description  IN requiere destiny_warehouse_id; OUT y ADJUSTMENT origin_warehouse_id; TRANSFER ambos.
// @Tags         stock-movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     false  "Clave de idempotencia"
// @Param        body             body    dto.CreateMovementRequest  true   "Movimiento con sus líneas"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock-movements [post]
func (h *StockMovementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := bindJSON(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.CreateMovementFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	c.Locals(LocalResourceID, out.ID)
	c.Location("/api/stock-movements/" + out.ID)
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar movimientos
// @Tags         stock-movements
// @Security     Bearer
// @Produce      json
// @Param        type          query  string  false  "IN | OUT | TRANSFER | ADJUSTMENT"
// @Param        warehouse_id  query  string  false  "Bodega origen o destino"
// @Param        from          query  string  false  "Fecha inicial (RFC3339 o YYYY-MM-DD)"
// @Param        to            query  string  false  "Fecha final (RFC3339 o YYYY-MM-DD)"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock-movements [get]
func (h *StockMovementHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()

	filter := repository.MovementFilter{
		WarehouseID: c.Query("warehouse_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := entity.ParseMovementType(raw)
		if !ok {
			return writeError(c, domain.ErrInvalidMovementType)
		}
		filter.Type = t
	}
	var err error
	if filter.From, err = queryTime(c, "from", false); err != nil {
		return writeError(c, err)
	}
	if filter.To, err = queryTime(c, "to", true); err != nil {
		return writeError(c, err)
	}

	list, err := h.svc.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *inventory.ToMovementResponse(m))
	}
	return c.JSON(dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// GetByID godoc
// @Summary      Obtener movimiento por ID
// @Tags         stock-movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-movements/{id} [get]
func (h *StockMovementHandler) GetByID(c *fiber.Ctx) error {
	m, err := h.svc.GetMovement(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inventory.ToMovementResponse(m))
}

// Edit godoc
// @Summary      Editar líneas de un movimiento
// @Description  lines es el conjunto completo propuesto: las líneas con id existente se actualizan, las demás se crean y las ausentes se eliminan.
// @Tags         stock-movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del movimiento"
// @Param        body  body  dto.EditMovementRequest  true  "Líneas propuestas"
// @Success      200  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock-movements/{id} [patch]
func (h *StockMovementHandler) Edit(c *fiber.Ctx) error {
	var in dto.EditMovementRequest
	if err := bindJSON(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.EditMovementFromRequest(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar movimiento (revierte su efecto en el ledger)
// @Tags         stock-movements
// @Security     Bearer
// @Param        id   path  string  true  "ID del movimiento"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock-movements/{id} [delete]
func (h *StockMovementHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteMovement(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Voucher godoc
// @Summary      Comprobante PDF del movimiento
// @Tags         stock-movements
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-movements/{id}/voucher [get]
func (h *StockMovementHandler) Voucher(c *fiber.Ctx) error {
	if h.voucher == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "generador de comprobantes no configurado"})
	}
	id := c.Params("id")
	pdf, err := h.voucher.Generate(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=\"movimiento-%s.pdf\"", id))
	return c.Send(pdf)
}

// queryTime lee un parámetro de fecha. Una fecha sin hora como límite superior incluye el día completo.
func queryTime(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: formato de fecha inválido: %w", name, domain.ErrInvalidInput)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

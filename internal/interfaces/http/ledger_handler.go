package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/jhoicas/stock-movements/internal/application/inventory"
)

// LedgerHandler consultas de existencias (solo lectura; el ledger lo escriben los movimientos).
type LedgerHandler struct {
	uc *inventory.StockQueryUseCase
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(uc *inventory.StockQueryUseCase) *LedgerHandler {
	return &LedgerHandler{uc: uc}
}

// List godoc
// @Summary      Listar existencias por bodega o por producto
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        product_id    query  string  false  "Producto (todas las bodegas)"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LedgerListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger [get]
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	warehouseID := c.Query("warehouse_id")
	productID := c.Query("product_id")
	switch {
	case productID != "":
		out, err := h.uc.ListByProduct(c.UserContext(), productID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(out)
	case warehouseID != "":
		page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
		page.DefaultPage()
		out, err := h.uc.ListByWarehouse(c.UserContext(), warehouseID, page.Limit, page.Offset)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(out)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeValidation, Message: "warehouse_id o product_id es requerido"})
	}
}

// GetEntry godoc
// @Summary      Existencia de un producto en una bodega
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  path  string  true  "Bodega"
// @Param        product_id    path  string  true  "Producto"
// @Success      200  {object}  dto.LedgerEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/{warehouse_id}/{product_id} [get]
func (h *LedgerHandler) GetEntry(c *fiber.Ctx) error {
	out, err := h.uc.GetEntry(c.UserContext(), c.Params("warehouse_id"), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Productos por debajo del mínimo con sugerencia de reposición
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega (vacío = todas)"
// @Success      200  {array}   dto.LowStockSuggestionDTO
// @Router       /api/ledger/low-stock [get]
func (h *LedgerHandler) LowStock(c *fiber.Ctx) error {
	out, err := h.uc.LowStock(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

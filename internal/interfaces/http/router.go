package http

import (
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/application/usecase"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName    string
	WarehouseUC    *usecase.WarehouseUseCase
	ProductUC      *usecase.ProductUseCase
	Movements      *inventory.MovementService
	Voucher        *inventory.VoucherUseCase
	StockQuery     *inventory.StockQueryUseCase
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	HTTPMetrics    HTTPObserver    // opcional
	MetricsHandler nethttp.Handler // opcional, expuesto en /metrics
	DB             Pinger          // opcional
	Logger         zerolog.Logger
	JWTSecret      string
	JWTIssuer      string // vacío: no se verifica el emisor
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestLogger(deps.Logger))
	if deps.HTTPMetrics != nil {
		app.Use(MetricsMiddleware(deps.HTTPMetrics))
	}

	healthHandler := NewHealthHandler(deps.ServiceName, deps.DB)
	app.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	writers := RequireRole(RoleAdmin, RoleBodeguero)
	adminOnly := RequireRole(RoleAdmin)

	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", adminOnly, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", adminOnly, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	movements := api.Group("/stock-movements")
	movementHandler := NewStockMovementHandler(deps.Movements, deps.Voucher)
	createChain := []fiber.Handler{writers}
	if deps.Idempotency != nil {
		ttl := deps.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		createChain = append(createChain, Idempotency(deps.Idempotency, ttl, deps.Logger))
	}
	createChain = append(createChain, movementHandler.Create)
	movements.Post("/", createChain...)
	movements.Get("/", movementHandler.List)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Patch("/:id", writers, movementHandler.Edit)
	movements.Delete("/:id", adminOnly, movementHandler.Delete)
	movements.Get("/:id/voucher", movementHandler.Voucher)

	ledger := api.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.StockQuery)
	ledger.Get("/", ledgerHandler.List)
	ledger.Get("/low-stock", ledgerHandler.LowStock)
	ledger.Get("/:warehouse_id/:product_id", ledgerHandler.GetEntry)
}

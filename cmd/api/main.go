package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/application/usecase"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/jhoicas/stock-movements/internal/infrastructure/cache"
	"github.com/jhoicas/stock-movements/internal/infrastructure/memory"
	"github.com/jhoicas/stock-movements/internal/infrastructure/messaging"
	"github.com/jhoicas/stock-movements/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-movements/internal/infrastructure/migration"
	infrapdf "github.com/jhoicas/stock-movements/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-movements/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-movements/internal/interfaces/http"
	"github.com/jhoicas/stock-movements/pkg/config"
	"github.com/jhoicas/stock-movements/pkg/logger"
	"github.com/jhoicas/stock-movements/pkg/telemetry"
)

// storage gateway de persistencia seleccionado por STORAGE_DRIVER.
type storage struct {
	txRunner   inventory.TxRunner
	movements  repository.MovementRepository
	ledger     repository.LedgerRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	pinger     httpRouter.Pinger
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.App.Env,
	}, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	policy, err := inventory.ParseRemovalPolicy(cfg.Inventory.LineRemovalPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("política de eliminación de líneas")
	}

	appMetrics := metrics.New()
	opts := []inventory.Option{
		inventory.WithRemovalPolicy(policy),
		inventory.WithLogger(log.Component("movements").Zerolog()),
		inventory.WithMetrics(appMetrics),
	}

	// Eventos Kafka: solo si hay brokers configurados.
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		opts = append(opts, inventory.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MovementsTopic).Msg("publicación de eventos habilitada")
	}

	movementSvc := inventory.NewMovementService(store.txRunner, store.movements, store.products, store.warehouses, opts...)
	stockQueryUC := inventory.NewStockQueryUseCase(store.ledger)
	voucherUC := inventory.NewVoucherUseCase(store.movements, store.products, store.warehouses,
		infrapdf.NewMarotoVoucherGenerator(cfg.App.Name))
	warehouseUC := usecase.NewWarehouseUseCase(store.warehouses)
	productUC := usecase.NewProductUseCase(store.products)

	idempotency, closeIdempotency := openIdempotencyStore(ctx, cfg, log)
	defer closeIdempotency()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	const swaggerFile = "./docs/swagger.json"
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Stock Movements API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger deshabilitado: archivo no encontrado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName:    cfg.App.Name,
		WarehouseUC:    warehouseUC,
		ProductUC:      productUC,
		Movements:      movementSvc,
		Voucher:        voucherUC,
		StockQuery:     stockQueryUC,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		HTTPMetrics:    appMetrics,
		MetricsHandler: appMetrics.Handler(),
		DB:             store.pinger,
		Logger:         log.Component("http").Zerolog(),
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL (aplicando migraciones pendientes) o el gateway en memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		mem := memory.NewStore()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &storage{
			txRunner:   mem,
			movements:  mem.Movements(),
			ledger:     mem.Ledger(),
			products:   mem.Products(),
			warehouses: mem.Warehouses(),
			close:      func() {},
		}, nil
	}

	if cfg.DB.MigrationsPath != "" {
		m, err := migration.NewFromURL(cfg.DB.ConnectionString(), cfg.DB.MigrationsPath, log.Component("migrator").Zerolog())
		if err != nil {
			return nil, err
		}
		err = m.Up()
		_ = m.Close()
		if err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:   postgres.NewTxRunner(pool),
		movements:  postgres.NewMovementRepository(pool),
		ledger:     postgres.NewLedgerRepository(pool),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		pinger:     pool,
		close:      pool.Close,
	}, nil
}

// openIdempotencyStore usa Redis si REDIS_ADDR está definido; si no, un almacén en memoria del proceso.
func openIdempotencyStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (httpRouter.IdempotencyStore, func()) {
	if cfg.Redis.Addr != "" {
		rs, err := cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		return rs, func() { _ = rs.Close() }
	}
	log.Warn().Msg("idempotencia en memoria: las claves no se comparten entre instancias")
	mem := cache.NewInMemoryIdempotencyStore()
	return mem, func() { _ = mem.Close() }
}

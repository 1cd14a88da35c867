package postgres_test

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/jhoicas/stock-movements/internal/infrastructure/migration"
	"github.com/jhoicas/stock-movements/internal/infrastructure/postgres"
)

// ─── Infraestructura de pruebas ─────────────────────────────────────────────

type pgFixture struct {
	pool       *pgxpool.Pool
	svc        *inventory.MovementService
	movements  *postgres.MovementRepo
	ledger     *postgres.LedgerRepo
	products   *postgres.ProductRepo
	warehouses *postgres.WarehouseRepo

	w, a, b string
	p, q    string
}

func migrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// newPGFixture levanta un PostgreSQL efímero, aplica las migraciones y siembra el catálogo.
func newPGFixture(t *testing.T, opts ...inventory.Option) *pgFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("pruebas de integración omitidas con -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stock_movements_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migration.NewFromURL(dsn, migrationsPath(t), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	pool, err := postgres.NewPoolFromDSN(ctx, dsn, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &pgFixture{
		pool:       pool,
		movements:  postgres.NewMovementRepository(pool),
		ledger:     postgres.NewLedgerRepository(pool),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
	}
	f.svc = inventory.NewMovementService(postgres.NewTxRunner(pool), f.movements, f.products, f.warehouses, opts...)

	for _, id := range []*string{&f.w, &f.a, &f.b} {
		wh := &entity.Warehouse{Description: "bodega", CreatedAt: time.Now()}
		require.NoError(t, f.warehouses.Create(ctx, wh))
		*id = wh.ID
	}
	for i, id := range []*string{&f.p, &f.q} {
		p := &entity.Product{
			SKU:             []string{"SKU-P", "SKU-Q"}[i],
			Description:     "producto",
			BuyPrice:        decimal.NewFromInt(10),
			SellPrice:       decimal.NewFromInt(15),
			MinimumQuantity: 5,
			CreatedAt:       time.Now(),
		}
		require.NoError(t, f.products.Create(ctx, p))
		*id = p.ID
	}
	return f
}

func (f *pgFixture) qty(t *testing.T, warehouseID, productID string) int64 {
	t.Helper()
	e, err := f.ledger.Get(context.Background(), warehouseID, productID)
	require.NoError(t, err)
	if e == nil {
		return 0
	}
	return e.Quantity
}

func (f *pgFixture) create(t *testing.T, in inventory.CreateMovementInput) *entity.Movement {
	t.Helper()
	in.UserID = "u-1"
	m, err := f.svc.CreateMovement(context.Background(), in)
	require.NoError(t, err)
	return m
}

func line(productID string, qty int64) inventory.LineInput {
	return inventory.LineInput{ProductID: productID, Quantity: qty, BuyPrice: decimal.NewFromInt(10)}
}

// ─── Ciclo completo ─────────────────────────────────────────────────────────

func TestPostgres_CicloDeVidaDelMovimiento(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	in := f.create(t, inventory.CreateMovementInput{
		Type: "IN", DestinyWarehouseID: f.w,
		Lines: []inventory.LineInput{line(f.p, 10), line(f.q, 4)},
	})
	assert.Equal(t, int64(10), f.qty(t, f.w, f.p))
	assert.Equal(t, int64(4), f.qty(t, f.w, f.q))
	require.NotNil(t, in.Value)
	assert.True(t, decimal.NewFromInt(140).Equal(*in.Value))

	stored, err := f.movements.GetByID(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, f.p, stored.Lines[0].ProductID, "las líneas conservan el orden de inserción")
	assert.Empty(t, stored.OriginWarehouseID)

	// Editar: P pasa de 10 a 8, Q se elimina, se agrega una línea nueva de Q por 1.
	edited, err := f.svc.EditMovement(ctx, in.ID, inventory.EditMovementInput{
		UserID: "u-1",
		Lines: []inventory.LineInput{
			{ID: stored.Lines[0].ID, ProductID: f.p, Quantity: 8, BuyPrice: decimal.NewFromInt(10)},
			line(f.q, 1),
		},
	})
	require.NoError(t, err)
	assert.Len(t, edited.Lines, 2)
	assert.Equal(t, int64(8), f.qty(t, f.w, f.p))
	assert.Equal(t, int64(1), f.qty(t, f.w, f.q))

	reloaded, err := f.movements.GetByID(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 2)
	assert.Equal(t, stored.Lines[0].ID, reloaded.Lines[0].ID)
	assert.True(t, decimal.NewFromInt(90).Equal(*reloaded.Value))

	require.NoError(t, f.svc.DeleteMovement(ctx, in.ID, "admin"))
	assert.Equal(t, int64(0), f.qty(t, f.w, f.p))
	assert.Equal(t, int64(0), f.qty(t, f.w, f.q))
	gone, err := f.movements.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPostgres_TransferenciaYSalidaInsuficiente(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	f.create(t, inventory.CreateMovementInput{
		Type: "IN", DestinyWarehouseID: f.a, Lines: []inventory.LineInput{line(f.p, 6)},
	})
	f.create(t, inventory.CreateMovementInput{
		Type: "TRANSFER", OriginWarehouseID: f.a, DestinyWarehouseID: f.b,
		Lines: []inventory.LineInput{line(f.p, 4)},
	})
	assert.Equal(t, int64(2), f.qty(t, f.a, f.p))
	assert.Equal(t, int64(4), f.qty(t, f.b, f.p))

	before, err := f.movements.List(ctx, repository.MovementFilter{})
	require.NoError(t, err)

	_, err = f.svc.CreateMovement(ctx, inventory.CreateMovementInput{
		Type: "OUT", OriginWarehouseID: f.a, UserID: "u-1",
		Lines: []inventory.LineInput{line(f.p, 3)},
	})
	var insufficient *domain.InsufficientQuantityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.Available)
	assert.Equal(t, int64(3), insufficient.Requested)

	after, err := f.movements.List(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before), "el movimiento rechazado no se persiste")
	assert.Equal(t, int64(2), f.qty(t, f.a, f.p))

	byWarehouse, err := f.movements.List(ctx, repository.MovementFilter{WarehouseID: f.b})
	require.NoError(t, err)
	require.Len(t, byWarehouse, 1)
	assert.Equal(t, entity.MovementTypeTRANSFER, byWarehouse[0].Type)
	assert.Len(t, byWarehouse[0].Lines, 1)

	byType, err := f.movements.List(ctx, repository.MovementFilter{Type: entity.MovementTypeIN, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

// ─── Concurrencia ───────────────────────────────────────────────────────────

func TestPostgres_SalidasConcurrentesNoSobregiran(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	f.create(t, inventory.CreateMovementInput{
		Type: "IN", DestinyWarehouseID: f.w, Lines: []inventory.LineInput{line(f.p, 10)},
	})

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateMovement(ctx, inventory.CreateMovementInput{
				Type: "OUT", OriginWarehouseID: f.w, UserID: "u-1",
				Lines: []inventory.LineInput{line(f.p, 2)},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientQuantity):
				fail++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, fail)
	assert.Equal(t, int64(0), f.qty(t, f.w, f.p))
}

// ─── Repositorios ───────────────────────────────────────────────────────────

func TestPostgres_LecturasConIDInvalidoSonAusencias(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	m, err := f.movements.GetByID(ctx, "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, m)

	p, err := f.products.GetByID(ctx, "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, p)

	found, err := f.products.FindByIDs(ctx, []string{f.p, "no-es-uuid"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = f.svc.GetMovement(ctx, "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestPostgres_SKUDuplicado(t *testing.T) {
	f := newPGFixture(t)
	err := f.products.Create(context.Background(), &entity.Product{SKU: "SKU-P", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestPostgres_LedgerBajoMinimo(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	f.create(t, inventory.CreateMovementInput{
		Type: "IN", DestinyWarehouseID: f.w,
		Lines: []inventory.LineInput{line(f.p, 2), line(f.q, 9)},
	})

	items, err := f.ledger.ListBelowMinimum(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, f.p, items[0].ProductID)
	assert.Equal(t, "SKU-P", items[0].SKU)
	assert.Equal(t, int64(5), items[0].MinimumQuantity)

	items, err = f.ledger.ListBelowMinimum(ctx, f.a)
	require.NoError(t, err)
	assert.Empty(t, items)

	entries, err := f.ledger.ListByProduct(ctx, f.q)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(entries[0].BuyPrice))

	page, err := f.ledger.ListByWarehouse(ctx, f.w, 1, 0)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestPostgres_PoliticaConservarLineasEliminadas(t *testing.T) {
	f := newPGFixture(t, inventory.WithRemovalPolicy(inventory.RemovalPolicyKeep))
	ctx := context.Background()

	m := f.create(t, inventory.CreateMovementInput{
		Type: "IN", DestinyWarehouseID: f.w,
		Lines: []inventory.LineInput{line(f.p, 3), line(f.q, 2)},
	})
	_, err := f.svc.EditMovement(ctx, m.ID, inventory.EditMovementInput{
		UserID: "u-1",
		Lines:  []inventory.LineInput{{ID: m.Lines[0].ID, ProductID: f.p, Quantity: 3, BuyPrice: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.qty(t, f.w, f.q), "la línea omitida no se revierte")
	reloaded, err := f.movements.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Lines, 2)
}

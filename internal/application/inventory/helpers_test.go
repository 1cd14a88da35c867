package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/jhoicas/stock-movements/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: gateway en memoria con bodegas W, A, B y productos P, Q
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store *memory.Store
	svc   *appinv.MovementService
}

func newFixture(t *testing.T, opts ...appinv.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWithRunner(t, store, store, opts...)
}

func newFixtureWithRunner(t *testing.T, store *memory.Store, runner appinv.TxRunner, opts ...appinv.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"W", "A", "B"} {
		require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: id, Description: "Bodega " + id}))
	}
	for _, id := range []string{"P", "Q"} {
		require.NoError(t, store.Products().Create(ctx, &entity.Product{
			ID:              id,
			SKU:             "SKU-" + id,
			Description:     "Producto " + id,
			BuyPrice:        decimal.NewFromInt(10),
			MinimumQuantity: 5,
		}))
	}
	svc := appinv.NewMovementService(runner, store.Movements(), store.Products(), store.Warehouses(), opts...)
	return &fixture{store: store, svc: svc}
}

func (f *fixture) quantity(t *testing.T, warehouseID, productID string) int64 {
	t.Helper()
	e, err := f.store.Ledger().Get(context.Background(), warehouseID, productID)
	require.NoError(t, err)
	if e == nil {
		return 0
	}
	return e.Quantity
}

func (f *fixture) create(t *testing.T, in appinv.CreateMovementInput) *entity.Movement {
	t.Helper()
	if in.UserID == "" {
		in.UserID = "user-1"
	}
	m, err := f.svc.CreateMovement(context.Background(), in)
	require.NoError(t, err)
	return m
}

func lineIn(productID string, qty int64) appinv.LineInput {
	return appinv.LineInput{ProductID: productID, Quantity: qty, BuyPrice: decimal.NewFromInt(10)}
}

func inbound(warehouseID string, lines ...appinv.LineInput) appinv.CreateMovementInput {
	return appinv.CreateMovementInput{Type: "IN", DestinyWarehouseID: warehouseID, Lines: lines}
}

func outbound(warehouseID string, lines ...appinv.LineInput) appinv.CreateMovementInput {
	return appinv.CreateMovementInput{Type: "OUT", OriginWarehouseID: warehouseID, Lines: lines}
}

// asInputs convierte las líneas persistidas en la propuesta de una edición.
func asInputs(lines []entity.MovementLine) []appinv.LineInput {
	out := make([]appinv.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, appinv.LineInput{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity, BuyPrice: l.BuyPrice})
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

type publisherMock struct{ mock.Mock }

func (m *publisherMock) Publish(ctx context.Context, event appinv.MovementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// failingLinesRunner delega en el gateway real pero hace fallar UpdateLines,
// después de que el ledger ya fue modificado dentro de la transacción.
type failingLinesRunner struct {
	inner appinv.TxRunner
	err   error
}

func (r failingLinesRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.LedgerRepository) error) error {
	return r.inner.Run(ctx, func(movRepo repository.MovementRepository, ledgerRepo repository.LedgerRepository) error {
		return fn(failingMovementRepo{MovementRepository: movRepo, err: r.err}, ledgerRepo)
	})
}

type failingMovementRepo struct {
	repository.MovementRepository
	err error
}

func (r failingMovementRepo) UpdateLines(context.Context, string, *decimal.Decimal, []*entity.MovementLine, []*entity.MovementLine, []string) error {
	return r.err
}

// cancelAfterRunner cancela el contexto justo después de que fn termina, antes del commit.
type cancelAfterRunner struct {
	inner  appinv.TxRunner
	cancel context.CancelFunc
}

func (r cancelAfterRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.LedgerRepository) error) error {
	return r.inner.Run(ctx, func(movRepo repository.MovementRepository, ledgerRepo repository.LedgerRepository) error {
		err := fn(movRepo, ledgerRepo)
		r.cancel()
		return err
	})
}

package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appinv "github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/jhoicas/stock-movements/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios de creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateMovement_EntradaEnLedgerVacio(t *testing.T) {
	f := newFixture(t)

	m := f.create(t, inbound("W", lineIn("P", 10)))

	assert.Equal(t, int64(10), f.quantity(t, "W", "P"))
	assert.Equal(t, entity.MovementTypeIN, m.Type)
	require.Len(t, m.Lines, 1)
	assert.NotEmpty(t, m.Lines[0].ID, "la línea debe recibir un ID al persistirse")
	assert.Equal(t, m.ID, m.Lines[0].MovementID)
	require.NotNil(t, m.Value)
	assert.True(t, decimal.NewFromInt(100).Equal(*m.Value), "valor esperado 10 x 10, obtenido %s", m.Value)
}

func TestCreateMovement_SalidaRestaDelOrigen(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))

	f.create(t, outbound("W", lineIn("P", 4)))

	assert.Equal(t, int64(6), f.quantity(t, "W", "P"))
}

func TestCreateMovement_SalidaSinStockSuficiente(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))

	_, err := f.svc.CreateMovement(context.Background(), outbound("W", lineIn("P", 15)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientQuantity))
	var insufficient *domain.InsufficientQuantityError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(10), insufficient.Available)
	assert.Equal(t, int64(15), insufficient.Requested)
	assert.Equal(t, int64(10), f.quantity(t, "W", "P"), "el ledger no debe cambiar")

	list, err := f.svc.ListMovements(context.Background(), repository.MovementFilter{Type: entity.MovementTypeOUT})
	require.NoError(t, err)
	assert.Empty(t, list, "el movimiento rechazado no debe persistirse")
}

func TestCreateMovement_SalidaAgregaLineasDelMismoProducto(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))

	_, err := f.svc.CreateMovement(context.Background(), outbound("W", lineIn("P", 6), lineIn("P", 6)))

	require.ErrorIs(t, err, domain.ErrInsufficientQuantity, "12 unidades pedidas contra 10 disponibles")
	assert.Equal(t, int64(10), f.quantity(t, "W", "P"))
}

func TestCreateMovement_Traslado(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("A", lineIn("P", 10)))

	f.create(t, appinv.CreateMovementInput{
		Type:               "TRANSFER",
		OriginWarehouseID:  "A",
		DestinyWarehouseID: "B",
		Lines:              []appinv.LineInput{lineIn("P", 5)},
	})

	assert.Equal(t, int64(5), f.quantity(t, "A", "P"))
	assert.Equal(t, int64(5), f.quantity(t, "B", "P"))
}

func TestCreateMovement_AjusteFirmado(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))

	f.create(t, appinv.CreateMovementInput{
		Type:              "adjustment",
		OriginWarehouseID: "W",
		Lines:             []appinv.LineInput{lineIn("P", -3), lineIn("Q", 2)},
	})

	assert.Equal(t, int64(7), f.quantity(t, "W", "P"))
	assert.Equal(t, int64(2), f.quantity(t, "W", "Q"))
}

func TestCreateMovement_ActualizaPrecioDeCompraEnEntradas(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", appinv.LineInput{ProductID: "P", Quantity: 2, BuyPrice: decimal.RequireFromString("12.50")}))
	f.create(t, outbound("W", appinv.LineInput{ProductID: "P", Quantity: 1, BuyPrice: decimal.NewFromInt(99)}))

	e, err := f.store.Ledger().Get(context.Background(), "W", "P")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, decimal.RequireFromString("12.50").Equal(e.BuyPrice), "una salida no cambia el último precio de compra")
}

func TestCreateMovement_ValorExplicito(t *testing.T) {
	f := newFixture(t)
	value := decimal.NewFromInt(7)
	in := inbound("W", lineIn("P", 10))
	in.Value = &value

	m := f.create(t, in)

	require.NotNil(t, m.Value)
	assert.True(t, value.Equal(*m.Value))
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores de validación: cada regla con su tipo de error
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateMovement_ErroresDeValidacion(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	cases := []struct {
		name string
		in   appinv.CreateMovementInput
		want error
	}{
		{"tipo desconocido", appinv.CreateMovementInput{Type: "LOAN", DestinyWarehouseID: "W", Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidMovementType},
		{"entrada sin destino", appinv.CreateMovementInput{Type: "IN", Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidInput},
		{"entrada con origen", appinv.CreateMovementInput{Type: "IN", OriginWarehouseID: "A", DestinyWarehouseID: "W", Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidInput},
		{"salida sin origen", appinv.CreateMovementInput{Type: "OUT", Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidInput},
		{"traslado a la misma bodega", appinv.CreateMovementInput{Type: "TRANSFER", OriginWarehouseID: "A", DestinyWarehouseID: "A", Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidInput},
		{"sin líneas", inbound("W"), domain.ErrInvalidInput},
		{"cantidad cero", inbound("W", lineIn("P", 0)), domain.ErrInvalidInput},
		{"cantidad negativa fuera de ajuste", inbound("W", lineIn("P", -2)), domain.ErrInvalidInput},
		{"precio negativo", inbound("W", appinv.LineInput{ProductID: "P", Quantity: 1, BuyPrice: negative}), domain.ErrInvalidInput},
		{"valor negativo", appinv.CreateMovementInput{Type: "IN", DestinyWarehouseID: "W", Value: &negative, Lines: []appinv.LineInput{lineIn("P", 1)}}, domain.ErrInvalidInput},
		{"bodega inexistente", inbound("Z", lineIn("P", 1)), domain.ErrWarehouseNotFound},
		{"producto inexistente", inbound("W", lineIn("P", 1), lineIn("X", 1)), domain.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateMovement(context.Background(), tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, int64(0), f.quantity(t, "W", "P"))
		})
	}
}

func TestCreateMovement_NoFoundEsFamiliaNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateMovement(context.Background(), inbound("Z", lineIn("P", 1)))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrProductNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ediciones
// ──────────────────────────────────────────────────────────────────────────────

func TestEditMovement_ActualizaCantidadAplicaSoloDiferencia(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))
	out := f.create(t, outbound("W", lineIn("P", 4)))
	require.Equal(t, int64(6), f.quantity(t, "W", "P"))

	lines := asInputs(out.Lines)
	lines[0].Quantity = 6
	edited, err := f.svc.EditMovement(context.Background(), out.ID, appinv.EditMovementInput{UserID: "user-2", Lines: lines})

	require.NoError(t, err)
	assert.Equal(t, int64(4), f.quantity(t, "W", "P"), "delta = -(6-4) = -2")
	require.Len(t, edited.Lines, 1)
	assert.Equal(t, out.Lines[0].ID, edited.Lines[0].ID, "la línea existente conserva su ID")
	assert.Equal(t, int64(6), edited.Lines[0].Quantity)

	stored, err := f.svc.GetMovement(context.Background(), out.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(6), stored.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(*stored.Value), "el valor se recalcula con las líneas nuevas")
}

func TestEditMovement_LineaNuevaJuntoAUnaSinCambios(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("W", lineIn("P", 10)))
	out := f.create(t, outbound("W", lineIn("P", 4)))

	lines := append(asInputs(out.Lines), lineIn("P", 3))
	edited, err := f.svc.EditMovement(context.Background(), out.ID, appinv.EditMovementInput{Lines: lines})

	require.NoError(t, err)
	assert.Equal(t, int64(3), f.quantity(t, "W", "P"), "solo aplica las 3 unidades de la línea nueva")
	require.Len(t, edited.Lines, 2)
	for _, l := range edited.Lines {
		assert.NotEmpty(t, l.ID)
	}
}

func TestEditMovement_IDDesconocidoSeTrataComoNueva(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 5)))

	foreign := lineIn("Q", 2)
	foreign.ID = "no-existe"
	edited, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{
		Lines: append(asInputs(in.Lines), foreign),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), f.quantity(t, "W", "P"))
	assert.Equal(t, int64(2), f.quantity(t, "W", "Q"))
	for _, l := range edited.Lines {
		assert.NotEqual(t, "no-existe", l.ID, "las líneas nuevas reciben un ID fresco")
	}
}

func TestEditMovement_CambioDeProducto(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 5)))

	lines := asInputs(in.Lines)
	lines[0].ProductID = "Q"
	_, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: lines})

	require.NoError(t, err)
	assert.Equal(t, int64(0), f.quantity(t, "W", "P"))
	assert.Equal(t, int64(5), f.quantity(t, "W", "Q"))
}

func TestEditMovement_PoliticaReverseEliminaYRevierte(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 5), lineIn("Q", 3)))

	keep := asInputs(in.Lines[:1])
	edited, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: keep})

	require.NoError(t, err)
	assert.Equal(t, int64(5), f.quantity(t, "W", "P"))
	assert.Equal(t, int64(0), f.quantity(t, "W", "Q"), "la línea ausente revierte su efecto")
	assert.Len(t, edited.Lines, 1)

	stored, err := f.svc.GetMovement(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
}

func TestEditMovement_PoliticaKeepConservaLineasAusentes(t *testing.T) {
	f := newFixture(t, appinv.WithRemovalPolicy(appinv.RemovalPolicyKeep))
	in := f.create(t, inbound("W", lineIn("P", 5), lineIn("Q", 3)))

	keep := asInputs(in.Lines[:1])
	keep[0].Quantity = 7
	edited, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: keep})

	require.NoError(t, err)
	assert.Equal(t, int64(7), f.quantity(t, "W", "P"))
	assert.Equal(t, int64(3), f.quantity(t, "W", "Q"), "con keep la línea ausente no cambia el ledger")
	assert.Len(t, edited.Lines, 2)

	stored, err := f.svc.GetMovement(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
}

func TestEditMovement_ReversionSinStockFalla(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 5), lineIn("Q", 3)))
	f.create(t, outbound("W", lineIn("Q", 3)))

	_, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: asInputs(in.Lines[:1])})

	require.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.Equal(t, int64(0), f.quantity(t, "W", "Q"))
	stored, err := f.svc.GetMovement(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2, "la edición fallida no toca las líneas")
}

func TestEditMovement_FalloDePersistenciaEsAtomico(t *testing.T) {
	store := memory.NewStore()
	cause := errors.New("disco lleno")
	f := newFixtureWithRunner(t, store, failingLinesRunner{inner: store, err: cause})
	// el runner solo falla en UpdateLines: la creación pasa normalmente
	in := f.create(t, inbound("W", lineIn("P", 5)))

	lines := asInputs(in.Lines)
	lines[0].Quantity = 9
	_, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: lines})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, cause, "la causa original se conserva")
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "edit movement", perr.Op)

	assert.Equal(t, int64(5), f.quantity(t, "W", "P"), "el ledger vuelve al estado previo")
	stored, err := f.svc.GetMovement(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Lines[0].Quantity)
}

func TestEditMovement_NoExiste(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.EditMovement(context.Background(), "nope", appinv.EditMovementInput{Lines: []appinv.LineInput{lineIn("P", 1)}})

	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditMovement_LineasInvalidas(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 5)))
	dup := asInputs(in.Lines)

	_, err := f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: append(dup, dup[0])})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "IDs de línea duplicados")

	_, err = f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: nil})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin líneas")

	_, err = f.svc.EditMovement(context.Background(), in.ID, appinv.EditMovementInput{Lines: []appinv.LineInput{lineIn("X", 1)}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	assert.Equal(t, int64(5), f.quantity(t, "W", "P"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminación, lecturas y cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteMovement_RevierteElEfecto(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("A", lineIn("P", 10)))
	tr := f.create(t, appinv.CreateMovementInput{
		Type: "TRANSFER", OriginWarehouseID: "A", DestinyWarehouseID: "B",
		Lines: []appinv.LineInput{lineIn("P", 4)},
	})

	require.NoError(t, f.svc.DeleteMovement(context.Background(), tr.ID, "admin"))

	assert.Equal(t, int64(10), f.quantity(t, "A", "P"))
	assert.Equal(t, int64(0), f.quantity(t, "B", "P"))
	_, err := f.svc.GetMovement(context.Background(), tr.ID)
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestDeleteMovement_EntradaYaConsumidaFalla(t *testing.T) {
	f := newFixture(t)
	in := f.create(t, inbound("W", lineIn("P", 10)))
	f.create(t, outbound("W", lineIn("P", 8)))

	err := f.svc.DeleteMovement(context.Background(), in.ID, "admin")

	require.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.Equal(t, int64(2), f.quantity(t, "W", "P"))
	_, err = f.svc.GetMovement(context.Background(), in.ID)
	assert.NoError(t, err)
}

func TestListMovements_FiltraPorBodegaYTipo(t *testing.T) {
	f := newFixture(t)
	f.create(t, inbound("A", lineIn("P", 10)))
	f.create(t, inbound("W", lineIn("P", 10)))
	f.create(t, appinv.CreateMovementInput{
		Type: "TRANSFER", OriginWarehouseID: "A", DestinyWarehouseID: "B",
		Lines: []appinv.LineInput{lineIn("P", 1)},
	})

	byWarehouse, err := f.svc.ListMovements(context.Background(), repository.MovementFilter{WarehouseID: "A"})
	require.NoError(t, err)
	assert.Len(t, byWarehouse, 2)

	byType, err := f.svc.ListMovements(context.Background(), repository.MovementFilter{Type: entity.MovementTypeIN, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestCreateMovement_ContextoCanceladoNoConfirma(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixtureWithRunner(t, store, cancelAfterRunner{inner: store, cancel: cancel})

	_, err := f.svc.CreateMovement(ctx, inbound("W", lineIn("P", 10)))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), f.quantity(t, "W", "P"))
	list, err := f.svc.ListMovements(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos y trazas
// ──────────────────────────────────────────────────────────────────────────────

func TestMovementService_PublicaEventosTrasElCommit(t *testing.T) {
	pub := &publisherMock{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, appinv.WithPublisher(pub), appinv.WithClock(func() time.Time { return now }))

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e appinv.MovementEvent) bool {
		return e.Type == appinv.EventMovementCreated && e.MovementType == entity.MovementTypeIN &&
			e.UserID == "user-1" && e.OccurredAt.Equal(now) &&
			len(e.Deltas) == 1 && e.Deltas[0].Quantity == 10
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e appinv.MovementEvent) bool {
		return e.Type == appinv.EventMovementDeleted && len(e.Deltas) == 1 && e.Deltas[0].Quantity == -10
	})).Return(errors.New("broker caído")).Once()

	m := f.create(t, inbound("W", lineIn("P", 10)))
	err := f.svc.DeleteMovement(context.Background(), m.ID, "admin")

	require.NoError(t, err, "un fallo al publicar no cambia el resultado de la operación")
	assert.Equal(t, int64(0), f.quantity(t, "W", "P"))
	pub.AssertExpectations(t)
}

func TestMovementService_NoPublicaSiFalla(t *testing.T) {
	pub := &publisherMock{}
	f := newFixture(t, appinv.WithPublisher(pub))

	_, err := f.svc.CreateMovement(context.Background(), outbound("W", lineIn("P", 1)))

	require.Error(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMovementService_RegistraSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture(t, appinv.WithTracer(tp.Tracer("test")))

	f.create(t, inbound("W", lineIn("P", 1)))
	_, err := f.svc.CreateMovement(context.Background(), outbound("W", lineIn("P", 5)))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "MovementService.CreateMovement", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestParseRemovalPolicy(t *testing.T) {
	p, err := appinv.ParseRemovalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, appinv.RemovalPolicyReverse, p)

	p, err = appinv.ParseRemovalPolicy(" KEEP ")
	require.NoError(t, err)
	assert.Equal(t, appinv.RemovalPolicyKeep, p)

	_, err = appinv.ParseRemovalPolicy("ignore")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

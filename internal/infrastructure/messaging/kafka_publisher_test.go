package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-movements/internal/domain/inventory"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *writerMock) Close() error {
	return m.Called().Error(0)
}

func sampleEvent() inventory.MovementEvent {
	price := decimal.RequireFromString("12.50")
	return inventory.MovementEvent{
		Type:         inventory.EventMovementCreated,
		MovementID:   "mov-1",
		MovementType: entity.MovementTypeTRANSFER,
		UserID:       "u-1",
		OccurredAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Deltas: []domaininv.LedgerDelta{
			{WarehouseID: "A", ProductID: "P", Quantity: -3},
			{WarehouseID: "B", ProductID: "P", Quantity: 3, BuyPrice: &price},
		},
	}
}

func TestKafkaPublisher_Publish_MensajeConClaveYPayload(t *testing.T) {
	w := new(writerMock)
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)

	p := newKafkaPublisher(w)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "mov-1", string(msg.Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "movement.created", body["event_type"])
	assert.Equal(t, "TRANSFER", body["movement_type"])
	deltas := body["deltas"].([]any)
	require.Len(t, deltas, 2)
	first := deltas[0].(map[string]any)
	assert.Equal(t, float64(-3), first["quantity"])
	assert.NotContains(t, first, "buy_price")
	assert.Equal(t, "12.5", deltas[1].(map[string]any)["buy_price"])

	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("movement.created")})
	w.AssertExpectations(t)
}

func TestKafkaPublisher_Publish_PropagaTraza(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := new(writerMock)
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)

	require.NoError(t, newKafkaPublisher(w).Publish(ctx, sampleEvent()))

	var traceparent string
	for _, h := range sent[0].Headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestKafkaPublisher_Publish_ErrorDelBroker(t *testing.T) {
	w := new(writerMock)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker caído"))

	err := newKafkaPublisher(w).Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "movement.created")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := new(writerMock)
	w.On("Close").Return(nil)
	require.NoError(t, newKafkaPublisher(w).Close())
	w.AssertExpectations(t)
}

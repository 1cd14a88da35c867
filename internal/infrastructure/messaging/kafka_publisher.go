// Package messaging publica los eventos de movimientos confirmados.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter subconjunto de *kafka.Writer usado por el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher escribe un mensaje JSON por evento; la clave es el ID del movimiento
// para que los eventos de un mismo movimiento caigan en la misma partición.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher crea el writer para el tópico dado.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

// eventPayload forma del mensaje en el tópico.
type eventPayload struct {
	Type         string         `json:"event_type"`
	MovementID   string         `json:"movement_id"`
	MovementType string         `json:"movement_type"`
	UserID       string         `json:"user_id,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
	Deltas       []deltaPayload `json:"deltas"`
}

type deltaPayload struct {
	WarehouseID string  `json:"warehouse_id"`
	ProductID   string  `json:"product_id"`
	Quantity    int64   `json:"quantity"`
	BuyPrice    *string `json:"buy_price,omitempty"`
}

func toPayload(e inventory.MovementEvent) eventPayload {
	p := eventPayload{
		Type:         string(e.Type),
		MovementID:   e.MovementID,
		MovementType: string(e.MovementType),
		UserID:       e.UserID,
		OccurredAt:   e.OccurredAt.UTC(),
		Deltas:       make([]deltaPayload, 0, len(e.Deltas)),
	}
	for _, d := range e.Deltas {
		dp := deltaPayload{WarehouseID: d.WarehouseID, ProductID: d.ProductID, Quantity: d.Quantity}
		if d.BuyPrice != nil {
			s := d.BuyPrice.String()
			dp.BuyPrice = &s
		}
		p.Deltas = append(p.Deltas, dp)
	}
	return p
}

// Publish serializa el evento e inyecta el contexto de traza en los headers.
func (p *KafkaPublisher) Publish(ctx context.Context, e inventory.MovementEvent) error {
	body, err := json.Marshal(toPayload(e))
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []kafka.Header{{Key: "event_type", Value: []byte(e.Type)}}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.MovementID),
		Value:   body,
		Headers: headers,
		Time:    e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publicar evento %s: %w", e.Type, err)
	}
	return nil
}

// Close cierra el writer y vacía los mensajes pendientes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

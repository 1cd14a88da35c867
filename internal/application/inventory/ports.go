package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error (o el contexto se cancela antes del commit) no queda nada persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}

// EventType tipo de evento publicado tras confirmar un movimiento.
type EventType string

const (
	EventMovementCreated EventType = "movement.created"
	EventMovementEdited  EventType = "movement.edited"
	EventMovementDeleted EventType = "movement.deleted"
)

// MovementEvent notificación de un cambio confirmado en el ledger.
type MovementEvent struct {
	Type         EventType
	MovementID   string
	MovementType entity.MovementType
	UserID       string
	OccurredAt   time.Time
	Deltas       []inventory.LedgerDelta
}

// EventPublisher publica eventos de movimientos (Kafka en producción).
type EventPublisher interface {
	Publish(ctx context.Context, event MovementEvent) error
}

// MetricsRecorder recibe el resultado de cada operación de escritura (create, edit, delete).
type MetricsRecorder interface {
	ObserveMovementOp(op string, err error, elapsed time.Duration)
}

// VoucherData datos necesarios para renderizar el comprobante de un movimiento.
type VoucherData struct {
	Movement *entity.Movement
	Origin   *entity.Warehouse
	Destiny  *entity.Warehouse
	Products map[string]*entity.Product
}

// VoucherGenerator genera la representación gráfica (PDF) de un movimiento.
type VoucherGenerator interface {
	GenerateMovementVoucher(ctx context.Context, data VoucherData) ([]byte, error)
}

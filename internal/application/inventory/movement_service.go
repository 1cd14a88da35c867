package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-movements/internal/domain"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jhoicas/stock-movements/internal/application/inventory"

// RemovalPolicy qué hacer con las líneas existentes que no vienen en una edición.
type RemovalPolicy string

const (
	// RemovalPolicyReverse elimina las líneas ausentes y revierte su efecto en el ledger.
	RemovalPolicyReverse RemovalPolicy = "reverse"
	// RemovalPolicyKeep deja las líneas ausentes intactas.
	RemovalPolicyKeep RemovalPolicy = "keep"
)

// ParseRemovalPolicy valida la política configurada. Vacío equivale a reverse.
func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RemovalPolicyReverse, nil
	case RemovalPolicyReverse, RemovalPolicyKeep:
		return p, nil
	default:
		return "", fmt.Errorf("política de eliminación de líneas desconocida %q: %w", s, domain.ErrInvalidInput)
	}
}

// LineInput línea propuesta por el caller.
type LineInput struct {
	ID        string
	ProductID string
	Quantity  int64
	BuyPrice  decimal.Decimal
}

// CreateMovementInput entrada para registrar un movimiento nuevo.
type CreateMovementInput struct {
	Type               string
	Value              *decimal.Decimal
	Description        string
	VoucherDescription string
	Date               *time.Time
	OriginWarehouseID  string
	DestinyWarehouseID string
	UserID             string
	Lines              []LineInput
}

// EditMovementInput entrada para editar las líneas de un movimiento existente.
// Lines es el conjunto completo propuesto; Value nil recalcula el valor desde las líneas.
type EditMovementInput struct {
	UserID string
	Value  *decimal.Decimal
	Lines  []LineInput
}

// MovementService orquesta validación, cálculo de deltas, ledger y persistencia de movimientos.
// Cada operación de escritura es una única transacción; no reintenta ni guarda estado entre llamadas.
type MovementService struct {
	txRunner     TxRunner
	movementRepo repository.MovementRepository
	validator    *MovementValidator
	ledger       *Ledger

	policy    RemovalPolicy
	publisher EventPublisher
	metrics   MetricsRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configura el MovementService.
type Option func(*MovementService)

// WithRemovalPolicy fija la política para líneas ausentes en una edición.
func WithRemovalPolicy(p RemovalPolicy) Option {
	return func(s *MovementService) { s.policy = p }
}

// WithPublisher publica un evento tras cada commit.
func WithPublisher(p EventPublisher) Option {
	return func(s *MovementService) { s.publisher = p }
}

// WithMetrics registra duración y resultado de cada operación de escritura.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *MovementService) { s.metrics = m }
}

// WithLogger usa el logger dado.
func WithLogger(l zerolog.Logger) Option {
	return func(s *MovementService) { s.logger = l }
}

// WithTracer usa el tracer dado en lugar del global.
func WithTracer(t trace.Tracer) Option {
	return func(s *MovementService) { s.tracer = t }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *MovementService) { s.now = now }
}

// NewMovementService construye el orquestador. movementRepo se usa solo para lecturas fuera de transacción.
func NewMovementService(
	txRunner TxRunner,
	movementRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	opts ...Option,
) *MovementService {
	s := &MovementService{
		txRunner:     txRunner,
		movementRepo: movementRepo,
		validator:    NewMovementValidator(productRepo, warehouseRepo),
		policy:       RemovalPolicyReverse,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.ledger = NewLedger(s.now)
	return s
}

// CreateMovement valida el movimiento, aplica sus deltas al ledger y lo persiste con sus líneas,
// todo en una transacción. Retorna el movimiento persistido.
func (s *MovementService) CreateMovement(ctx context.Context, in CreateMovementInput) (m *entity.Movement, err error) {
	ctx, span := s.tracer.Start(ctx, "MovementService.CreateMovement",
		trace.WithAttributes(attribute.String("movement.type", in.Type)))
	defer s.finish(span, "create", time.Now(), &err)

	mt, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, s.reject("create", "", domain.ErrInvalidMovementType)
	}

	now := s.now()
	m = &entity.Movement{
		ID:                 uuid.New().String(),
		Type:               mt,
		Value:              in.Value,
		Description:        in.Description,
		VoucherDescription: in.VoucherDescription,
		Date:               now,
		CreatedAt:          now,
		UpdatedAt:          now,
		OriginWarehouseID:  in.OriginWarehouseID,
		DestinyWarehouseID: in.DestinyWarehouseID,
		UserID:             in.UserID,
		Lines:              toLines(in.Lines),
	}
	if in.Date != nil {
		m.Date = *in.Date
	}
	span.SetAttributes(attribute.String("movement.id", m.ID))

	if err := s.validator.ValidateMovement(ctx, m); err != nil {
		return nil, s.reject("create", m.ID, err)
	}
	for i := range m.Lines {
		m.Lines[i].ID = uuid.New().String()
		m.Lines[i].MovementID = m.ID
	}
	m.Value = inventory.ResolveValue(in.Value, m.Lines)

	deltas, err := inventory.MovementDeltas(m)
	if err != nil {
		return nil, s.reject("create", m.ID, err)
	}
	err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, ledgerRepo repository.LedgerRepository) error {
		if err := s.validator.CheckAvailability(ctx, ledgerRepo, deltas); err != nil {
			return err
		}
		if _, err := s.ledger.BulkApplyDeltas(ctx, ledgerRepo, deltas); err != nil {
			return err
		}
		return movRepo.Create(ctx, m)
	})
	if err != nil {
		return nil, s.reject("create", m.ID, domain.WrapPersistence("create movement", err))
	}

	s.logger.Info().
		Str("movement_id", m.ID).
		Str("type", string(m.Type)).
		Int("lines", len(m.Lines)).
		Int("deltas", len(deltas)).
		Msg("movimiento registrado")
	s.publish(ctx, EventMovementCreated, m, deltas)
	return m.Clone(), nil
}

// EditMovement reconcilia las líneas propuestas contra las persistidas: las actualizadas aportan
// solo su diferencia, las nuevas su efecto completo y las ausentes se revierten según la política.
// Cualquier fallo deja ledger y líneas como estaban.
func (s *MovementService) EditMovement(ctx context.Context, id string, in EditMovementInput) (result *entity.Movement, err error) {
	ctx, span := s.tracer.Start(ctx, "MovementService.EditMovement",
		trace.WithAttributes(attribute.String("movement.id", id)))
	defer s.finish(span, "edit", time.Now(), &err)

	if in.Value != nil && in.Value.IsNegative() {
		return nil, s.reject("edit", id, fmt.Errorf("valor negativo: %w", domain.ErrInvalidInput))
	}
	proposed := toLines(in.Lines)
	reverseRemoved := s.policy != RemovalPolicyKeep

	var deltas []inventory.LedgerDelta
	err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, ledgerRepo repository.LedgerRepository) error {
		current, err := movRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrMovementNotFound
		}
		if err := s.validator.ValidateLines(ctx, current.Type, proposed); err != nil {
			return err
		}

		diff := inventory.DiffLines(current.Lines, proposed)
		for i := range diff.ToCreate {
			diff.ToCreate[i].ID = uuid.New().String()
			diff.ToCreate[i].MovementID = id
		}
		for i := range diff.ToUpdate {
			diff.ToUpdate[i].MovementID = id
		}

		deltas, err = inventory.EditDeltas(current, diff, reverseRemoved)
		if err != nil {
			return err
		}
		if err := s.validator.CheckAvailability(ctx, ledgerRepo, deltas); err != nil {
			return err
		}
		if _, err := s.ledger.BulkApplyDeltas(ctx, ledgerRepo, deltas); err != nil {
			return err
		}

		lines := make([]entity.MovementLine, 0, len(diff.ToUpdate)+len(diff.ToCreate)+len(diff.ToRemove))
		lines = append(lines, diff.ToUpdate...)
		lines = append(lines, diff.ToCreate...)
		var removeIDs []string
		for _, l := range diff.ToRemove {
			if reverseRemoved {
				removeIDs = append(removeIDs, l.ID)
			} else {
				lines = append(lines, l)
			}
		}
		value := inventory.ResolveValue(in.Value, lines)

		if err := movRepo.UpdateLines(ctx, id, value, linePtrs(diff.ToUpdate), linePtrs(diff.ToCreate), removeIDs); err != nil {
			return err
		}

		result = current.Clone()
		result.Lines = lines
		result.Value = value
		result.UpdatedAt = s.now()

		span.SetAttributes(
			attribute.Int("lines.updated", len(diff.ToUpdate)),
			attribute.Int("lines.created", len(diff.ToCreate)),
			attribute.Int("lines.removed", len(removeIDs)),
		)
		return nil
	})
	if err != nil {
		return nil, s.reject("edit", id, domain.WrapPersistence("edit movement", err))
	}

	s.logger.Info().
		Str("movement_id", id).
		Int("deltas", len(deltas)).
		Str("user_id", in.UserID).
		Msg("movimiento editado")
	published := result.Clone()
	published.UserID = in.UserID
	s.publish(ctx, EventMovementEdited, published, deltas)
	return result, nil
}

// DeleteMovement revierte el efecto de todas las líneas y elimina el movimiento.
// Falla con InsufficientQuantityError si la reversión dejaría stock negativo.
func (s *MovementService) DeleteMovement(ctx context.Context, id, userID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "MovementService.DeleteMovement",
		trace.WithAttributes(attribute.String("movement.id", id)))
	defer s.finish(span, "delete", time.Now(), &err)

	var deleted *entity.Movement
	var deltas []inventory.LedgerDelta
	err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, ledgerRepo repository.LedgerRepository) error {
		current, err := movRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrMovementNotFound
		}
		deltas, err = inventory.ReversalDeltas(current)
		if err != nil {
			return err
		}
		if err := s.validator.CheckAvailability(ctx, ledgerRepo, deltas); err != nil {
			return err
		}
		if _, err := s.ledger.BulkApplyDeltas(ctx, ledgerRepo, deltas); err != nil {
			return err
		}
		deleted = current
		return movRepo.Delete(ctx, id)
	})
	if err != nil {
		return s.reject("delete", id, domain.WrapPersistence("delete movement", err))
	}

	s.logger.Info().Str("movement_id", id).Str("user_id", userID).Msg("movimiento eliminado")
	deleted.UserID = userID
	s.publish(ctx, EventMovementDeleted, deleted, deltas)
	return nil
}

// GetMovement obtiene un movimiento con sus líneas.
func (s *MovementService) GetMovement(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := s.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.WrapPersistence("get movement", err)
	}
	if m == nil {
		return nil, domain.ErrMovementNotFound
	}
	return m, nil
}

// ListMovements lista movimientos según el filtro.
func (s *MovementService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	list, err := s.movementRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.WrapPersistence("list movements", err)
	}
	return list, nil
}

// reject registra el rechazo y devuelve err sin cambios.
func (s *MovementService) reject(op, movementID string, err error) error {
	ev := s.logger.Warn()
	if errors.Is(err, domain.ErrPersistence) {
		ev = s.logger.Error()
	}
	ev = ev.Err(err).Str("op", op).Str("movement_id", movementID)
	var insufficient *domain.InsufficientQuantityError
	if errors.As(err, &insufficient) {
		ev = ev.Str("warehouse_id", insufficient.WarehouseID).
			Str("product_id", insufficient.ProductID).
			Int64("available", insufficient.Available).
			Int64("requested", insufficient.Requested)
	}
	ev.Msg("movimiento rechazado")
	return err
}

// publish notifica el cambio ya confirmado. Un fallo solo se registra.
func (s *MovementService) publish(ctx context.Context, t EventType, m *entity.Movement, deltas []inventory.LedgerDelta) {
	if s.publisher == nil {
		return
	}
	event := MovementEvent{
		Type:         t,
		MovementID:   m.ID,
		MovementType: m.Type,
		UserID:       m.UserID,
		OccurredAt:   s.now(),
		Deltas:       deltas,
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error().Err(err).
			Str("movement_id", m.ID).
			Str("event_type", string(t)).
			Msg("no se pudo publicar el evento del movimiento")
	}
}

// finish cierra el span de la operación y la reporta a las métricas.
func (s *MovementService) finish(span trace.Span, op string, start time.Time, errp *error) {
	if s.metrics != nil {
		s.metrics.ObserveMovementOp(op, *errp, time.Since(start))
	}
	endSpan(span, *errp)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func toLines(in []LineInput) []entity.MovementLine {
	lines := make([]entity.MovementLine, 0, len(in))
	for _, l := range in {
		lines = append(lines, entity.MovementLine{
			ID:        strings.TrimSpace(l.ID),
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			BuyPrice:  l.BuyPrice,
		})
	}
	return lines
}

func linePtrs(lines []entity.MovementLine) []*entity.MovementLine {
	out := make([]*entity.MovementLine, 0, len(lines))
	for i := range lines {
		out = append(out, &lines[i])
	}
	return out
}

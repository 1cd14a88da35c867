package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, type, value, description, voucher_description, date,
	origin_warehouse_id, destiny_warehouse_id, user_id, created_at, updated_at`

// MovementRepo implementación de MovementRepository sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste el movimiento y sus líneas en un solo batch.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, string(m.Type), m.Value, m.Description, m.VoucherDescription, m.Date,
		nullIfEmpty(m.OriginWarehouseID), nullIfEmpty(m.DestinyWarehouseID), m.UserID, m.CreatedAt, m.UpdatedAt,
	)
	for i := range m.Lines {
		l := &m.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.MovementID = m.ID
		queueInsertLine(batch, l, i)
	}
	if err := execBatch(ctx, r.q, batch); err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate bloquea la fila del movimiento (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *MovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, id, true)
}

func (r *MovementRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	lines, err := r.linesOf(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	m.Lines = lines[m.ID]
	return m, nil
}

// List aplica el filtro y carga las líneas de todos los movimientos en una sola consulta.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Type != "" {
		where = append(where, "type = "+arg(string(f.Type)))
	}
	if f.WarehouseID != "" {
		p := arg(f.WarehouseID)
		where = append(where, "(origin_warehouse_id::text = "+p+" OR destiny_warehouse_id::text = "+p+")")
	}
	if f.From != nil {
		where = append(where, "date >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= "+arg(*f.To))
	}

	query := `SELECT ` + movementColumns + ` FROM stock_movements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	var ids []string
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}

	lines, err := r.linesOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		m.Lines = lines[m.ID]
	}
	return list, nil
}

// UpdateLines aplica los cambios de líneas y el nuevo valor en un solo batch.
func (r *MovementRepo) UpdateLines(ctx context.Context, movementID string, value *decimal.Decimal, toUpdate, toCreate []*entity.MovementLine, toRemove []string) error {
	var next int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(line_no) + 1, 0) FROM stock_movement_lines WHERE movement_id = $1`, movementID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("update lines: next line_no: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE stock_movements SET value = $2, updated_at = $3 WHERE id = $1`, movementID, value, time.Now())
	for _, l := range toUpdate {
		batch.Queue(`
			UPDATE stock_movement_lines SET product_id = $3, quantity = $4, buy_price = $5
			WHERE id = $1 AND movement_id = $2`,
			l.ID, movementID, l.ProductID, l.Quantity, l.BuyPrice,
		).Exec(func(tag pgconn.CommandTag) error {
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("línea %s no pertenece al movimiento %s", l.ID, movementID)
			}
			return nil
		})
	}
	if len(toRemove) > 0 {
		batch.Queue(`DELETE FROM stock_movement_lines WHERE movement_id = $1 AND id = ANY($2::uuid[])`, movementID, toRemove)
	}
	for i, l := range toCreate {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.MovementID = movementID
		queueInsertLine(batch, l, next+i)
	}
	if err := execBatch(ctx, r.q, batch); err != nil {
		return fmt.Errorf("update lines: %w", err)
	}
	return nil
}

func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) linesOf(ctx context.Context, movementIDs []string) (map[string][]entity.MovementLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, movement_id, product_id, quantity, buy_price
		FROM stock_movement_lines WHERE movement_id = ANY($1::uuid[])
		ORDER BY movement_id, line_no`, movementIDs)
	if err != nil {
		return nil, fmt.Errorf("list movement lines: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.MovementLine, len(movementIDs))
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ProductID, &l.Quantity, &l.BuyPrice); err != nil {
			return nil, fmt.Errorf("scan movement line: %w", err)
		}
		out[l.MovementID] = append(out[l.MovementID], l)
	}
	return out, rows.Err()
}

func queueInsertLine(batch *pgx.Batch, l *entity.MovementLine, lineNo int) {
	batch.Queue(`
		INSERT INTO stock_movement_lines (id, movement_id, line_no, product_id, quantity, buy_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.MovementID, lineNo, l.ProductID, l.Quantity, l.BuyPrice,
	)
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var mtype string
	var origin, destiny *string
	err := row.Scan(
		&m.ID, &mtype, &m.Value, &m.Description, &m.VoucherDescription, &m.Date,
		&origin, &destiny, &m.UserID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(mtype)
	m.OriginWarehouseID = deref(origin)
	m.DestinyWarehouseID = deref(destiny)
	return &m, nil
}

// execBatch envía el batch y consume todos los resultados; el primer error corta.
func execBatch(ctx context.Context, q Querier, batch *pgx.Batch) error {
	br := q.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return err
	}
	return nil
}

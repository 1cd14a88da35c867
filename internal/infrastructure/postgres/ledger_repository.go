package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `id, warehouse_id, product_id, quantity, buy_price, last_update`

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL. Acepta pool o tx (Querier).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

func (r *LedgerRepo) Get(ctx context.Context, warehouseID, productID string) (*entity.LedgerEntry, error) {
	e, err := scanLedgerEntry(r.q.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM inventory_ledger WHERE warehouse_id = $1 AND product_id = $2`,
		warehouseID, productID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// GetForUpdate crea la entrada en cero si falta y la bloquea con SELECT FOR UPDATE.
// Dos transacciones concurrentes sobre el mismo par quedan serializadas en la fila.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.LedgerEntry, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_ledger (warehouse_id, product_id, quantity, buy_price, last_update)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (warehouse_id, product_id) DO NOTHING`,
		warehouseID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure ledger entry: %w", err)
	}
	e, err := scanLedgerEntry(r.q.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM inventory_ledger WHERE warehouse_id = $1 AND product_id = $2 FOR UPDATE`,
		warehouseID, productID,
	))
	if err != nil {
		return nil, fmt.Errorf("lock ledger entry: %w", err)
	}
	return e, nil
}

func (r *LedgerRepo) Upsert(ctx context.Context, e *entity.LedgerEntry) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO inventory_ledger (warehouse_id, product_id, quantity, buy_price, last_update)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, buy_price = EXCLUDED.buy_price, last_update = EXCLUDED.last_update
		RETURNING id`,
		e.WarehouseID, e.ProductID, e.Quantity, e.BuyPrice, e.LastUpdate,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepo) ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM inventory_ledger WHERE warehouse_id = $1 ORDER BY product_id`
	args := []any{warehouseID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	return r.list(ctx, "list ledger by warehouse", query, args...)
}

func (r *LedgerRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.LedgerEntry, error) {
	return r.list(ctx, "list ledger by product",
		`SELECT `+ledgerColumns+` FROM inventory_ledger WHERE product_id = $1 ORDER BY warehouse_id`, productID)
}

// ListBelowMinimum cruza el ledger con el catálogo; warehouseID vacío incluye todas las bodegas.
func (r *LedgerRepo) ListBelowMinimum(ctx context.Context, warehouseID string) ([]entity.LowStockItem, error) {
	query := `
		SELECT l.warehouse_id, l.product_id, p.sku, p.description, l.quantity, p.minimum_quantity, l.buy_price
		FROM inventory_ledger l
		JOIN products p ON p.id = l.product_id
		WHERE l.quantity < p.minimum_quantity
		  AND ($1 = '' OR l.warehouse_id::text = $1)
		ORDER BY l.warehouse_id, l.product_id`
	rows, err := r.q.Query(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list below minimum: %w", err)
	}
	defer rows.Close()
	var out []entity.LowStockItem
	for rows.Next() {
		var it entity.LowStockItem
		if err := rows.Scan(&it.WarehouseID, &it.ProductID, &it.SKU, &it.Description,
			&it.Quantity, &it.MinimumQuantity, &it.BuyPrice); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	if err := row.Scan(&e.ID, &e.WarehouseID, &e.ProductID, &e.Quantity, &e.BuyPrice, &e.LastUpdate); err != nil {
		return nil, err
	}
	return &e, nil
}

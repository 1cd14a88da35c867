// Package memory implementa el gateway de persistencia en proceso.
// Las transacciones trabajan sobre una copia del estado confirmado y solo la publican
// si la función termina sin error y el contexto sigue vigente.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// state datos transaccionales (movimientos y ledger).
type state struct {
	movements map[string]*entity.Movement
	ledger    map[domaininv.LedgerKey]*entity.LedgerEntry
}

func newState() *state {
	return &state{
		movements: make(map[string]*entity.Movement),
		ledger:    make(map[domaininv.LedgerKey]*entity.LedgerEntry),
	}
}

func (s *state) clone() *state {
	c := &state{
		movements: make(map[string]*entity.Movement, len(s.movements)),
		ledger:    make(map[domaininv.LedgerKey]*entity.LedgerEntry, len(s.ledger)),
	}
	for id, m := range s.movements {
		c.movements[id] = m.Clone()
	}
	for k, e := range s.ledger {
		cp := *e
		c.ledger[k] = &cp
	}
	return c
}

// Store gateway en memoria. txMu serializa las transacciones; mu protege el estado confirmado
// y el catálogo, y nunca se mantiene mientras corre la función de una transacción.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	committed  *state
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
}

// NewStore crea un gateway vacío.
func NewStore() *Store {
	return &Store{
		committed:  newState(),
		products:   make(map[string]*entity.Product),
		warehouses: make(map[string]*entity.Warehouse),
	}
}

// Run ejecuta fn con repositorios atados a una copia del estado; confirma solo si fn retorna nil.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	return s.apply(ctx, func(work *state) error {
		return fn(&MovementRepo{store: s, tx: work}, &LedgerRepo{store: s, tx: work})
	})
}

func (s *Store) apply(ctx context.Context, fn func(work *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.committed)
}

// Movements repositorio de movimientos fuera de transacción (cada escritura confirma sola).
func (s *Store) Movements() *MovementRepo { return &MovementRepo{store: s} }

// Ledger repositorio del ledger fuera de transacción.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{store: s} }

// Products repositorio del catálogo de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{store: s} }

// Warehouses repositorio del catálogo de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{store: s} }

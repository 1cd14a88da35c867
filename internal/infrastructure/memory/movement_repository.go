package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo movimientos en memoria. tx nil opera sobre el estado confirmado.
type MovementRepo struct {
	store *Store
	tx    *state
}

func (r *MovementRepo) read(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.store.read(fn)
}

func (r *MovementRepo) write(ctx context.Context, fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.store.apply(ctx, fn)
}

// Create guarda una copia del movimiento; asigna IDs faltantes al movimiento y sus líneas.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	for i := range m.Lines {
		if m.Lines[i].ID == "" {
			m.Lines[i].ID = uuid.New().String()
		}
		m.Lines[i].MovementID = m.ID
	}
	return r.write(ctx, func(st *state) error {
		if _, ok := st.movements[m.ID]; ok {
			return fmt.Errorf("insert movement %s: ya existe", m.ID)
		}
		st.movements[m.ID] = m.Clone()
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.read(func(st *state) error {
		out = st.movements[id].Clone()
		return nil
	})
	return out, err
}

// GetByIDForUpdate las transacciones en memoria ya son serializadas por el Store.
func (r *MovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) List(_ context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	err := r.read(func(st *state) error {
		for _, m := range st.movements {
			if matches(m, filter) {
				out = append(out, m.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func matches(m *entity.Movement, f repository.MovementFilter) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.WarehouseID != "" && m.OriginWarehouseID != f.WarehouseID && m.DestinyWarehouseID != f.WarehouseID {
		return false
	}
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Date.After(*f.To) {
		return false
	}
	return true
}

// UpdateLines reemplaza las líneas actualizadas, agrega las nuevas, quita las eliminadas y guarda el valor.
func (r *MovementRepo) UpdateLines(ctx context.Context, movementID string, value *decimal.Decimal, toUpdate, toCreate []*entity.MovementLine, toRemove []string) error {
	return r.write(ctx, func(st *state) error {
		m, ok := st.movements[movementID]
		if !ok {
			return fmt.Errorf("update lines: movimiento %s no existe", movementID)
		}
		byID := make(map[string]int, len(m.Lines))
		for i, l := range m.Lines {
			byID[l.ID] = i
		}
		for _, l := range toUpdate {
			i, ok := byID[l.ID]
			if !ok {
				return fmt.Errorf("update line %s: no pertenece al movimiento %s", l.ID, movementID)
			}
			upd := *l
			upd.MovementID = movementID
			m.Lines[i] = upd
		}
		removed := make(map[string]bool, len(toRemove))
		for _, id := range toRemove {
			removed[id] = true
		}
		lines := m.Lines[:0]
		for _, l := range m.Lines {
			if !removed[l.ID] {
				lines = append(lines, l)
			}
		}
		for _, l := range toCreate {
			if l.ID == "" {
				l.ID = uuid.New().String()
			}
			l.MovementID = movementID
			lines = append(lines, *l)
		}
		m.Lines = lines
		if value != nil {
			v := *value
			m.Value = &v
		}
		m.UpdatedAt = time.Now()
		return nil
	})
}

func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	return r.write(ctx, func(st *state) error {
		delete(st.movements, id)
		return nil
	})
}

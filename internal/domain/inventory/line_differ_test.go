package inventory_test

import (
	"testing"

	"github.com/jhoicas/stock-movements/internal/domain/entity"
	"github.com/jhoicas/stock-movements/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, productID string, qty int64) entity.MovementLine {
	return entity.MovementLine{ID: id, ProductID: productID, Quantity: qty, BuyPrice: decimal.NewFromInt(10)}
}

func TestDiffLines_ClasificaActualizadasCreadasYEliminadas(t *testing.T) {
	existing := []entity.MovementLine{line("l1", "p1", 4), line("l2", "p2", 1)}
	proposed := []entity.MovementLine{line("l1", "p1", 6), line("", "p3", 3)}

	diff := inventory.DiffLines(existing, proposed)

	require.Len(t, diff.ToUpdate, 1)
	assert.Equal(t, "l1", diff.ToUpdate[0].ID)
	assert.Equal(t, int64(6), diff.ToUpdate[0].Quantity)

	require.Len(t, diff.ToCreate, 1)
	assert.Equal(t, "p3", diff.ToCreate[0].ProductID)

	require.Len(t, diff.ToRemove, 1)
	assert.Equal(t, "l2", diff.ToRemove[0].ID)

	prev, ok := diff.Previous("l1")
	require.True(t, ok)
	assert.Equal(t, int64(4), prev.Quantity, "debe conservar la versión persistida")
}

func TestDiffLines_UnionIgualAPropuestas(t *testing.T) {
	existing := []entity.MovementLine{line("l1", "p1", 4), line("l2", "p2", 1)}
	proposed := []entity.MovementLine{
		line("l2", "p2", 1),
		line("desconocida", "p1", 2),
		line("", "p4", 7),
		line("l1", "p1", 4),
	}

	diff := inventory.DiffLines(existing, proposed)

	union := append(append([]entity.MovementLine{}, diff.ToUpdate...), diff.ToCreate...)
	assert.ElementsMatch(t, proposed, union, "ToUpdate ∪ ToCreate debe ser exactamente el conjunto propuesto")
	assert.Empty(t, diff.ToRemove)

	// Un ID que no pertenece al movimiento se trata como línea nueva.
	createdIDs := []string{}
	for _, l := range diff.ToCreate {
		createdIDs = append(createdIDs, l.ID)
	}
	assert.Contains(t, createdIDs, "desconocida")
}

func TestDiffLines_IdempotenteConMismaEntrada(t *testing.T) {
	existing := []entity.MovementLine{line("l1", "p1", 4), line("l2", "p2", 1), line("l3", "p3", 9)}
	proposed := []entity.MovementLine{line("l3", "p3", 1), line("", "p5", 2), line("l1", "p1", 4)}

	first := inventory.DiffLines(existing, proposed)
	second := inventory.DiffLines(existing, proposed)

	assert.Equal(t, first.ToUpdate, second.ToUpdate)
	assert.Equal(t, first.ToCreate, second.ToCreate)
	assert.Equal(t, first.ToRemove, second.ToRemove)
}

func TestDiffLines_IDDuplicadoNoSeClasificaDosVeces(t *testing.T) {
	existing := []entity.MovementLine{line("l1", "p1", 4)}
	proposed := []entity.MovementLine{line("l1", "p1", 5), line("l1", "p1", 6)}

	diff := inventory.DiffLines(existing, proposed)

	assert.Len(t, diff.ToUpdate, 1)
	assert.Len(t, diff.ToCreate, 1, "la segunda aparición no puede volver a coincidir")
}

func TestLineDiff_Changed(t *testing.T) {
	existing := []entity.MovementLine{line("l1", "p1", 4), line("l2", "p2", 1)}
	changedPrice := line("l2", "p2", 1)
	changedPrice.BuyPrice = decimal.NewFromInt(11)
	proposed := []entity.MovementLine{line("l1", "p1", 4), changedPrice}

	diff := inventory.DiffLines(existing, proposed)

	assert.False(t, diff.Changed(proposed[0]))
	assert.True(t, diff.Changed(proposed[1]))
	require.Len(t, diff.Unchanged(), 1)
	assert.Equal(t, "l1", diff.Unchanged()[0].ID)
}

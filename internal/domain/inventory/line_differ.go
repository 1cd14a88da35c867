package inventory

import "github.com/jhoicas/stock-movements/internal/domain/entity"

// LineDiff clasificación de las líneas propuestas en una edición frente a las existentes.
// ToUpdate ∪ ToCreate contiene exactamente las líneas propuestas; ninguna línea aparece en dos conjuntos.
type LineDiff struct {
	ToUpdate []entity.MovementLine
	ToCreate []entity.MovementLine
	ToRemove []entity.MovementLine

	previous map[string]entity.MovementLine
}

// DiffLines compara por ID de línea (sin coincidencias por producto).
// Una línea propuesta con ID que no pertenece al movimiento se trata como nueva.
// El orden de salida respeta el orden de entrada, así que la función es determinista.
func DiffLines(existing, proposed []entity.MovementLine) LineDiff {
	byID := make(map[string]entity.MovementLine, len(existing))
	for _, l := range existing {
		byID[l.ID] = l
	}

	diff := LineDiff{previous: make(map[string]entity.MovementLine)}
	matched := make(map[string]bool, len(proposed))
	for _, p := range proposed {
		if old, ok := byID[p.ID]; ok && p.ID != "" && !matched[p.ID] {
			diff.ToUpdate = append(diff.ToUpdate, p)
			diff.previous[p.ID] = old
			matched[p.ID] = true
			continue
		}
		diff.ToCreate = append(diff.ToCreate, p)
	}
	for _, l := range existing {
		if !matched[l.ID] {
			diff.ToRemove = append(diff.ToRemove, l)
		}
	}
	return diff
}

// Previous devuelve la versión persistida de una línea de ToUpdate.
func (d LineDiff) Previous(id string) (entity.MovementLine, bool) {
	l, ok := d.previous[id]
	return l, ok
}

// Changed reporta si una línea de ToUpdate difiere de su versión persistida.
func (d LineDiff) Changed(line entity.MovementLine) bool {
	old, ok := d.previous[line.ID]
	if !ok {
		return true
	}
	return old.ProductID != line.ProductID ||
		old.Quantity != line.Quantity ||
		!old.BuyPrice.Equal(line.BuyPrice)
}

// Unchanged líneas de ToUpdate idénticas a su versión persistida.
func (d LineDiff) Unchanged() []entity.MovementLine {
	var out []entity.MovementLine
	for _, l := range d.ToUpdate {
		if !d.Changed(l) {
			out = append(out, l)
		}
	}
	return out
}

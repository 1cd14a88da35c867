package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo cerrado de movimiento de inventario.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         MovementType = "IN"         // entrada (compra)
	MovementTypeOUT        MovementType = "OUT"        // salida (venta/consumo)
	MovementTypeTRANSFER   MovementType = "TRANSFER"   // traslado entre bodegas
	MovementTypeADJUSTMENT MovementType = "ADJUSTMENT" // ajuste con delta firmado
)

// MaxLineQuantity cota del valor absoluto de la cantidad de una línea.
const MaxLineQuantity int64 = 1_000_000_000_000

// MovementEffect multiplicadores de signo que un tipo aplica a la bodega origen y destino.
// Para ADJUSTMENT la cantidad de la línea ya viene firmada, por eso Origin = +1.
type MovementEffect struct {
	Origin  int64
	Destiny int64
}

var movementEffects = map[MovementType]MovementEffect{
	MovementTypeIN:         {Origin: 0, Destiny: 1},
	MovementTypeOUT:        {Origin: -1, Destiny: 0},
	MovementTypeTRANSFER:   {Origin: -1, Destiny: 1},
	MovementTypeADJUSTMENT: {Origin: 1, Destiny: 0},
}

// ParseMovementType normaliza y valida el tipo. ok=false si no es un valor reconocido.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := movementEffects[t]
	return t, ok
}

// Valid indica si el tipo es uno de los valores enumerados.
func (t MovementType) Valid() bool {
	_, ok := movementEffects[t]
	return ok
}

// Effect devuelve la tabla direccional del tipo (cero para tipos inválidos).
func (t MovementType) Effect() MovementEffect {
	return movementEffects[t]
}

// RequiresOrigin OUT, TRANSFER y ADJUSTMENT operan sobre la bodega origen.
func (t MovementType) RequiresOrigin() bool { return t.Effect().Origin != 0 }

// RequiresDestiny IN y TRANSFER operan sobre la bodega destino.
func (t MovementType) RequiresDestiny() bool { return t.Effect().Destiny != 0 }

// SignedQuantity indica si las líneas de este tipo llevan cantidad firmada.
func (t MovementType) SignedQuantity() bool { return t == MovementTypeADJUSTMENT }

// Movement registro de un evento de inventario con sus líneas.
// OriginWarehouseID / DestinyWarehouseID vacíos significan ausencia.
type Movement struct {
	ID                 string
	Type               MovementType
	Value              *decimal.Decimal
	Description        string
	VoucherDescription string
	Date               time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	OriginWarehouseID  string
	DestinyWarehouseID string
	UserID             string
	Lines              []MovementLine
}

// MovementLine cantidad de un producto dentro de un movimiento.
// MovementID es una referencia de consulta; el Movement es el dueño de la línea.
type MovementLine struct {
	ID         string
	MovementID string
	ProductID  string
	Quantity   int64
	BuyPrice   decimal.Decimal
}

// Clone copia profunda del movimiento (las líneas no se comparten).
func (m *Movement) Clone() *Movement {
	if m == nil {
		return nil
	}
	c := *m
	if m.Value != nil {
		v := *m.Value
		c.Value = &v
	}
	c.Lines = append([]MovementLine(nil), m.Lines...)
	return &c
}

// LineByID busca una línea por ID.
func (m *Movement) LineByID(id string) (MovementLine, bool) {
	for _, l := range m.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return MovementLine{}, false
}

// Package pdf genera el comprobante imprimible de un movimiento de inventario.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo de movimiento  │  N° Comprobante + Fecha      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  BODEGAS: Origen → Destino                                   │
//	│  DESCRIPCIÓN del comprobante                                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | SKU | Descripción | P.Compra | Subtotal       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL: Valor del movimiento                                 │
//	│  FOOTER: QR con el ID + usuario                              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var typeTitles = map[entity.MovementType]string{
	entity.MovementTypeIN:         "ENTRADA DE INVENTARIO",
	entity.MovementTypeOUT:        "SALIDA DE INVENTARIO",
	entity.MovementTypeTRANSFER:   "TRASLADO ENTRE BODEGAS",
	entity.MovementTypeADJUSTMENT: "AJUSTE DE INVENTARIO",
}

// ── Generator ─────────────────────────────────────────────────────────────────

var _ inventory.VoucherGenerator = (*MarotoVoucherGenerator)(nil)

// MarotoVoucherGenerator implementa inventory.VoucherGenerator usando Maroto v2.
type MarotoVoucherGenerator struct {
	company string
}

// NewMarotoVoucherGenerator construye el generador. company aparece como autor del documento.
func NewMarotoVoucherGenerator(company string) *MarotoVoucherGenerator {
	return &MarotoVoucherGenerator{company: company}
}

// GenerateMovementVoucher genera el PDF y devuelve sus bytes.
func (g *MarotoVoucherGenerator) GenerateMovementVoucher(_ context.Context, data inventory.VoucherData) ([]byte, error) {
	mov := data.Movement
	if mov == nil {
		return nil, fmt.Errorf("pdf: movimiento requerido")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de movimiento "+mov.ID, true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(mov))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(warehousesRow(data.Origin, data.Destiny))
	if desc := nonEmpty(mov.VoucherDescription, mov.Description); desc != "" {
		m.AddRows(descriptionRow(desc))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(mov.Lines, data.Products)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(mov))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(mov))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: tipo de movimiento (izq) y N° comprobante + fecha (der).
func headerRow(mov *entity.Movement) core.Row {
	title := typeTitles[mov.Type]
	if title == "" {
		title = string(mov.Type)
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Tipo: "+string(mov.Type), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("COMPROBANTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(shortID(mov.ID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+mov.Date.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// warehousesRow: bodega origen y destino; las ausentes se muestran con guion.
func warehousesRow(origin, destiny *entity.Warehouse) core.Row {
	block := func(label string, w *entity.Warehouse) core.Col {
		name := "—"
		if w != nil {
			name = nonEmpty(w.Description, w.ID)
		}
		return col.New(6).Add(
			text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		)
	}
	return row.New(14).Add(block("BODEGA ORIGEN", origin), block("BODEGA DESTINO", destiny))
}

func descriptionRow(desc string) core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(desc, props.Text{Size: 8, Top: 2, Color: colorGray}),
	))
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Cant.", 1, align.Center),
		h("SKU", 2, align.Left),
		h("Descripción del producto", 4, align.Left),
		h("P. Compra", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

// tableDetailRows: una fila por línea. Los ajustes negativos muestran la cantidad con signo.
func tableDetailRows(lines []entity.MovementLine, products map[string]*entity.Product) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		sku, desc := l.ProductID, ""
		if p := products[l.ProductID]; p != nil {
			sku, desc = p.SKU, p.Description
		}
		subtotal := decimal.NewFromInt(l.Quantity).Abs().Mul(l.BuyPrice)
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(sku,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(4).Add(text.New(desc,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.BuyPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New("$"+formatMoney(subtotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalRow: valor del movimiento alineado a la derecha.
func totalRow(mov *entity.Movement) core.Row {
	value := decimal.Zero
	if mov.Value != nil {
		value = *mov.Value
	}
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("VALOR TOTAL:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New("$"+formatMoney(value), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

// footerRow: QR con el ID completo y el usuario que registró el movimiento.
func footerRow(mov *entity.Movement) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(mov.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("ID: "+mov.ID, props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
			text.New("Registrado por: "+nonEmpty(mov.UserID, "—"), props.Text{
				Size: 8, Top: 10, Left: 3, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Líneas: %d", len(mov.Lines)), props.Text{
				Size: 8, Top: 16, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// formatMoney redondea a 2 decimales e inserta puntos de miles en la parte entera.
// Ej: 25000 → "25.000,00", 1234567.5 → "1.234.567,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}

// Package pdf genera el comprobante de venta de caja.
//
// Layout de la página:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Sucursal + código   │  N° Comprobante + Fecha      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Cajero / Cliente / Medio de pago                           │
//	│  TABLA: Cant | Producto | P.Unit | IVA | Subtotal            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Impuestos / Descuento / TOTAL / Cambio │
//	│  QR de verificación + estado                                │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
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

	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

var paymentLabels = map[string]string{
	entity.PaymentCash:     "Efectivo",
	entity.PaymentCard:     "Tarjeta",
	entity.PaymentTransfer: "Transferencia",
	entity.PaymentEWallet:  "Billetera digital",
}

// ReceiptGenerator implementa sales.ReceiptRenderer con Maroto v2.
type ReceiptGenerator struct{}

// NewReceiptGenerator construye el generador.
func NewReceiptGenerator() *ReceiptGenerator { return &ReceiptGenerator{} }

// SaleReceipt genera el PDF del comprobante. products se usa para mostrar SKU y nombre;
// si falta un producto se imprime su id.
func (g *ReceiptGenerator) SaleReceipt(sale *entity.Sale, branch *entity.Branch, products map[string]*entity.Product) ([]byte, error) {
	if sale == nil || branch == nil {
		return nil, fmt.Errorf("pdf: venta y sucursal son obligatorias")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante "+sale.InvoiceNumber, true).
		WithAuthor(branch.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(sale, branch))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(infoRow(sale))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(sale.Items, products)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(sale))
	m.AddRows(footerRows(sale)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(sale *entity.Sale, branch *entity.Branch) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(branch.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Sucursal "+branch.Code, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("COMPROBANTE DE VENTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(sale.InvoiceNumber, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+sale.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func infoRow(sale *entity.Sale) core.Row {
	customer := nonEmpty(sale.CustomerID, "Consumidor final")
	return row.New(10).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Cajero: %s   |   Cliente: %s   |   Pago: %s",
				sale.CashierID, customer, nonEmpty(paymentLabels[sale.PaymentMethod], sale.PaymentMethod),
			), props.Text{Size: 8, Top: 2, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Producto", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Subtotal", 3, align.Right),
	)
}

func itemRows(items []entity.SaleItem, products map[string]*entity.Product) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		name := it.ProductID
		if p, ok := products[it.ProductID]; ok && p != nil {
			name = p.SKU + " " + p.Name
		}
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(percent(it.TaxRate), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(money(it.Subtotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalsRow(sale *entity.Sale) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	return row.New(32).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 0),
			label("Impuestos:", 5),
			label("Descuento:", 10),
			text.New("TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 15}),
			label("Recibido:", 21),
			label("Cambio:", 26),
		),
		col.New(3).Add(
			value(money(sale.Subtotal), 0),
			value(money(sale.TaxAmount), 5),
			value("-"+money(sale.Discount), 10),
			text.New(money(sale.Total), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 15}),
			value(money(sale.AmountPaid), 21),
			value(money(sale.Change), 26),
		),
	)
}

func footerRows(sale *entity.Sale) []core.Row {
	rows := []core.Row{row.New(3)}
	if sale.Status != entity.SaleStatusCompleted {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("DOCUMENTO "+strings.ToUpper(statusLabel(sale.Status)), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center, Color: colorAlert, Top: 1,
			}),
		)))
	}
	qr := fmt.Sprintf("%s|%s|%s", sale.InvoiceNumber, sale.Total.StringFixed(2), sale.CreatedAt.Format("20060102150405"))
	rows = append(rows, row.New(35).Add(
		col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Gracias por su compra.", props.Text{Style: fontstyle.Bold, Size: 10, Top: 6, Left: 3, Color: colorPrimary}),
			text.New("Conserve este comprobante para cambios o devoluciones.", props.Text{Size: 8, Top: 14, Left: 3, Color: colorGray}),
		),
	))
	return rows
}

func statusLabel(status string) string {
	switch status {
	case entity.SaleStatusCancelled:
		return "anulado"
	case entity.SaleStatusRefunded:
		return "reembolsado"
	default:
		return status
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign, d = "-", d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + formatThousands(intPart) + "," + frac
}

// percent muestra la tasa (0.19 -> "19%").
func percent(rate decimal.Decimal) string {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.StringFixed(0) + "%"
	}
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}

// formatThousands inserta puntos de miles: "1000000" -> "1.000.000".
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

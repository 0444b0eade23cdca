// Package pdf genera la guía de empaque de un documento de salida.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Bodega             │  N° Documento + Fecha         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATARIO: Nombre + Tel + Dirección                     │
//	│  TRANSPORTE: Transportadora + Guía (si ya despachó)         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | SKU | Descripción                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: total de unidades + QR del número de documento     │
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

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

var _ ports.PackingSlipGenerator = (*MarotoPackingSlipGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPackingSlipGenerator implementa ports.PackingSlipGenerator usando Maroto v2.
type MarotoPackingSlipGenerator struct{}

// NewMarotoPackingSlipGenerator construye el generador.
func NewMarotoPackingSlipGenerator() *MarotoPackingSlipGenerator { return &MarotoPackingSlipGenerator{} }

// PackingSlip genera el PDF y devuelve sus bytes.
func (g *MarotoPackingSlipGenerator) PackingSlip(doc *entity.OutboundOrder, warehouse *entity.Warehouse) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("pdf: documento de salida nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Guía de empaque "+doc.OutboundNo, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, warehouse))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receiverRow(doc.Receiver))
	if doc.Carrier != "" || doc.TrackingNumber != "" {
		m.AddRows(carrierRow(doc))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(doc.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(footerRow(doc))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: bodega (izq) y N° documento + fecha (der).
func headerRow(doc *entity.OutboundOrder, warehouse *entity.Warehouse) core.Row {
	whName, whAddr := doc.WarehouseID, ""
	if warehouse != nil {
		whName = nonEmpty(warehouse.Name, warehouse.Code)
		whAddr = warehouse.Address
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(whName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(whAddr, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("GUÍA DE EMPAQUE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(doc.OutboundNo, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+doc.CreatedAt.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// receiverRow: datos del destinatario.
func receiverRow(a entity.Address) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(a.Name, "—"), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Tel: %s   |   %s", nonEmpty(a.Phone, "—"), formatAddress(a)),
				props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func carrierRow(doc *entity.OutboundOrder) core.Row {
	return row.New(8).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Transportadora: %s   |   Guía: %s",
				nonEmpty(doc.Carrier, "—"), nonEmpty(doc.TrackingNumber, "—")),
				props.Text{Size: 8, Top: 2}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("SKU", 3, align.Left),
		h("Descripción", 8, align.Left),
	)
}

// tableItemRows: una fila por línea del documento.
func tableItemRows(items []entity.OutboundOrderItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				fmt.Sprintf("%d", it.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				it.SKU,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(8).Add(text.New(
				nonEmpty(it.ProductName, "—"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
		))
	}
	return result
}

// footerRow: total de unidades y QR con el número de documento para escanear en bodega.
func footerRow(doc *entity.OutboundOrder) core.Row {
	return row.New(40).Add(
		col.New(8).Add(
			text.New(fmt.Sprintf("Total unidades: %d", doc.TotalQuantity()), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 4, Color: colorPrimary,
			}),
			text.New("Orden: "+doc.OrderID, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
		col.New(4).Add(code.NewQr(doc.OutboundNo, props.Rect{
			Percent: 90,
			Center:  true,
		})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatAddress une las partes no vacías de la dirección.
func formatAddress(a entity.Address) string {
	var parts []string
	for _, p := range []string{a.Line1, a.Line2, a.District, a.City, a.Province, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return nonEmpty(strings.Join(parts, ", "), "—")
}

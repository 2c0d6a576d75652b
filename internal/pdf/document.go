// Package pdf renders quote and invoice documents with a fixed layout:
// issuer header, client block, itemized table, tax breakdown, totals, notes,
// footer.
package pdf

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/sfall/freelance-office/internal/i18n"
)

type Party struct {
	Name    string
	Detail  string // company or SIRET line
	Address string
	Email   string
	Phone   string
}

type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Document is the renderer's input, already flattened from the model.
type Document struct {
	Kind          string // i18n code: "quote" or "invoice"
	Number        string
	Lang          string
	Issuer        Party
	Client        Party
	Items         []Item
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	TaxApplicable bool
	Notes         string
	IssuedAt      time.Time
	DeadlineLabel string // i18n code: "valid_until" or "due_on"
	Deadline      time.Time
	FooterIBAN    string
}

const dateLayout = "02/01/2006"

// Render produces the PDF bytes for a document.
func Render(doc Document) ([]byte, error) {
	t := func(code string) string { return i18n.T(doc.Lang, code) }

	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	title := fmt.Sprintf("%s %s", t(doc.Kind), doc.Number)
	m.AddRows(
		row.New(10).Add(
			text.NewCol(7, doc.Issuer.Name, props.Text{Size: 14, Style: fontstyle.Bold}),
			text.NewCol(5, title, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
		),
		row.New(5).Add(
			text.NewCol(7, doc.Issuer.Address, props.Text{Size: 8}),
			text.NewCol(5, fmt.Sprintf("%s %s", t("issued_on"), doc.IssuedAt.Format(dateLayout)), props.Text{Size: 9, Align: align.Right}),
		),
		row.New(5).Add(
			text.NewCol(7, fmt.Sprintf("SIRET %s - %s", doc.Issuer.Detail, doc.Issuer.Email), props.Text{Size: 8}),
			text.NewCol(5, fmt.Sprintf("%s %s", t(doc.DeadlineLabel), doc.Deadline.Format(dateLayout)), props.Text{Size: 9, Align: align.Right}),
		),
	)

	m.AddRow(8, col.New(12))
	m.AddRows(clientBlock(doc.Client)...)
	m.AddRow(6, col.New(12))

	m.AddRow(7,
		text.NewCol(6, t("description"), props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, t("quantity"), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, t("unit_price"), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, t("line_total"), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRows(row.New(2).Add(line.NewCol(12)))
	for _, it := range doc.Items {
		m.AddRow(6,
			text.NewCol(6, it.Description, props.Text{Size: 9}),
			text.NewCol(2, it.Quantity.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(it.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(it.Total), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRows(row.New(2).Add(line.NewCol(12)))

	m.AddRow(6,
		col.New(8),
		text.NewCol(2, t("subtotal"), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(doc.Subtotal), props.Text{Size: 9, Align: align.Right}),
	)
	if doc.TaxApplicable {
		taxLabel := fmt.Sprintf("%s (%s%%)", t("tax"), doc.TaxRate.Mul(decimal.NewFromInt(100)).String())
		m.AddRow(6,
			col.New(8),
			text.NewCol(2, taxLabel, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(doc.TaxAmount), props.Text{Size: 9, Align: align.Right}),
		)
	} else {
		m.AddRow(5, text.NewCol(12, t("tax_not_applicable"), props.Text{Size: 8, Align: align.Right, Style: fontstyle.Italic}))
	}
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, t("total"), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, money(doc.Total), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	if doc.Notes != "" {
		m.AddRow(8, col.New(12))
		m.AddRow(5, text.NewCol(12, t("notes"), props.Text{Size: 9, Style: fontstyle.Bold}))
		m.AddRow(6, text.NewCol(12, doc.Notes, props.Text{Size: 9}))
	}

	if doc.FooterIBAN != "" {
		m.AddRow(10, col.New(12))
		m.AddRow(5, text.NewCol(12, "IBAN "+doc.FooterIBAN, props.Text{Size: 8, Align: align.Center}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func clientBlock(p Party) []core.Row {
	rows := []core.Row{
		row.New(5).Add(text.NewCol(12, p.Name, props.Text{Size: 10, Style: fontstyle.Bold})),
	}
	if p.Detail != "" {
		rows = append(rows, row.New(4).Add(text.NewCol(12, p.Detail, props.Text{Size: 9})))
	}
	if p.Address != "" {
		rows = append(rows, row.New(4).Add(text.NewCol(12, p.Address, props.Text{Size: 9})))
	}
	contact := p.Email
	if p.Phone != "" {
		if contact != "" {
			contact += " / "
		}
		contact += p.Phone
	}
	if contact != "" {
		rows = append(rows, row.New(4).Add(text.NewCol(12, contact, props.Text{Size: 9})))
	}
	return rows
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

package report

import (
	"fmt"

	"facturas/internal/core"
)

// FlatTable is a section rendered to text cells, ready for transports that
// do not know about decimals or null periods.
type FlatTable struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Flatten renders every cell of the sections as text.
func Flatten(sections []Section) ([]FlatTable, error) {
	out := make([]FlatTable, 0, len(sections))
	for _, s := range sections {
		ft := FlatTable{
			Title:   s.Title,
			Columns: append([]string{}, s.Table.Columns...),
			Rows:    make([][]string, 0, s.Table.Len()),
		}
		for i, r := range s.Table.Rows {
			cells, err := core.FormatRow(r)
			if err != nil {
				return nil, fmt.Errorf("flatten %s row %d: %w", s.Table.Name, i, err)
			}
			ft.Rows = append(ft.Rows, cells)
		}
		out = append(out, ft)
	}
	return out, nil
}

// Invoice table column names.
var invoiceColumns = []string{
	"name", ColIssuerRFC, "issuer_name", ColConcepts, ColTotal, "issue_date", ColYear, ColMonth, ColTax, ColUsageCode,
}

// InvoiceTable lays the filtered records out as a table, one row per invoice.
func InvoiceTable(invoices []core.Invoice) core.SummaryTable {
	rows := make([]core.Row, 0, len(invoices))
	for _, inv := range invoices {
		p := inv.Period()
		rows = append(rows, core.Row{
			inv.Name, inv.IssuerRFC, inv.IssuerName, inv.ConceptKey(), inv.Total,
			inv.IssueDate, p.Year, p.Month, inv.Tax, inv.UsageCode,
		})
	}
	return core.SummaryTable{Name: "facturas", Columns: append([]string{}, invoiceColumns...), Rows: rows}
}

package report

import (
	"github.com/shopspring/decimal"

	"facturas/internal/core"
)

// Section titles, fixed in Spanish.
var sectionTitles = []struct {
	table string
	title string
}{
	{TableByYear, "Totales por año"},
	{TableByYearMonth, "Totales por mes (año/mes)"},
	{TableTaxByYear, "Impuestos pagados por año"},
	{TableTaxByYearMonth, "Impuestos pagados por mes (año/mes)"},
	{TableByIssuerYearMonth, "Totales e impuestos por año y mes por RFC emisor"},
	{TableByConceptYearMonth, "Totales e impuestos por año y mes por concepto"},
	{TableByUsageYearMonth, "Totales e impuestos por año y mes por uso de CFDI"},
}

// Section pairs a table with its heading.
type Section struct {
	Title string
	Table core.SummaryTable
}

// ChartPoint is one point of the monthly spending line.
type ChartPoint struct {
	Label string
	Value decimal.Decimal
}

// Summary is the full result of one Summarize call.
type Summary struct {
	Filter   Filter
	Invoices []core.Invoice
	Chart    []ChartPoint

	tables map[string]core.SummaryTable
}

// Table returns a table by name. Unknown names give an empty table.
func (s Summary) Table(name string) core.SummaryTable {
	if t, ok := s.tables[name]; ok {
		return t
	}
	return core.SummaryTable{Name: name}
}

// Sections returns the seven tables with their titles in presentation order.
func (s Summary) Sections() []Section {
	out := make([]Section, 0, len(sectionTitles))
	for _, st := range sectionTitles {
		out = append(out, Section{Title: st.title, Table: s.Table(st.table)})
	}
	return out
}

// Empty reports whether no invoice passed the filter.
func (s Summary) Empty() bool {
	return len(s.Invoices) == 0
}

// GrandTotal sums Total over the filtered invoices.
func (s Summary) GrandTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range s.Invoices {
		sum = sum.Add(inv.Total)
	}
	return sum
}

// GrandTax sums Tax over the filtered invoices.
func (s Summary) GrandTax() decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range s.Invoices {
		sum = sum.Add(inv.Tax)
	}
	return sum
}

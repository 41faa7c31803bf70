// Package report turns a record set into the grouped sum tables and chart
// series shown to the user.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/core"
)

// Column names shared by every summary table.
const (
	ColYear      = "year"
	ColMonth     = "month"
	ColTotal     = "total"
	ColTax       = "tax"
	ColIssuerRFC = "issuer_rfc"
	ColConcepts  = "concepts"
	ColUsageCode = "usage_code"
)

// Table names in presentation order.
const (
	TableByYear             = "by_year"
	TableByYearMonth        = "by_year_month"
	TableTaxByYear          = "tax_by_year"
	TableTaxByYearMonth     = "tax_by_year_month"
	TableByIssuerYearMonth  = "by_issuer_year_month"
	TableByConceptYearMonth = "by_concept_year_month"
	TableByUsageYearMonth   = "by_usage_year_month"
)

// Filter restricts the invoices that take part in a summary.
type Filter struct {
	// IssuerRFC is matched as a case-insensitive substring. Blank means all.
	IssuerRFC string
}

// Active reports whether the filter excludes anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.IssuerRFC) != ""
}

// Match reports whether inv passes the filter.
func (f Filter) Match(inv core.Invoice) bool {
	needle := strings.ToLower(strings.TrimSpace(f.IssuerRFC))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(inv.IssuerRFC), needle)
}

// grouping describes one summary table: how to key an invoice and which
// amounts to add up.
type grouping struct {
	name    string
	keyCols []string
	key     func(inv core.Invoice, p core.Period) []any
	sums    []string
}

var groupings = []grouping{
	{
		name:    TableByYear,
		keyCols: []string{ColYear},
		key:     func(_ core.Invoice, p core.Period) []any { return []any{p.Year} },
		sums:    []string{ColTotal},
	},
	{
		name:    TableByYearMonth,
		keyCols: []string{ColYear, ColMonth},
		key:     func(_ core.Invoice, p core.Period) []any { return []any{p.Year, p.Month} },
		sums:    []string{ColTotal},
	},
	{
		name:    TableTaxByYear,
		keyCols: []string{ColYear},
		key:     func(_ core.Invoice, p core.Period) []any { return []any{p.Year} },
		sums:    []string{ColTax},
	},
	{
		name:    TableTaxByYearMonth,
		keyCols: []string{ColYear, ColMonth},
		key:     func(_ core.Invoice, p core.Period) []any { return []any{p.Year, p.Month} },
		sums:    []string{ColTax},
	},
	{
		name:    TableByIssuerYearMonth,
		keyCols: []string{ColIssuerRFC, ColYear, ColMonth},
		key:     func(inv core.Invoice, p core.Period) []any { return []any{inv.IssuerRFC, p.Year, p.Month} },
		sums:    []string{ColTotal, ColTax},
	},
	{
		name:    TableByConceptYearMonth,
		keyCols: []string{ColConcepts, ColYear, ColMonth},
		key:     func(inv core.Invoice, p core.Period) []any { return []any{inv.ConceptKey(), p.Year, p.Month} },
		sums:    []string{ColTotal, ColTax},
	},
	{
		name:    TableByUsageYearMonth,
		keyCols: []string{ColUsageCode, ColYear, ColMonth},
		key:     func(inv core.Invoice, p core.Period) []any { return []any{inv.UsageCode, p.Year, p.Month} },
		sums:    []string{ColTotal, ColTax},
	},
}

// Engine computes summaries. It is stateless; the zero value is ready to use.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Summarize filters the set and builds every summary table and the chart.
// The result depends only on the set contents and the filter.
func (e *Engine) Summarize(set core.RecordSet, filter Filter) Summary {
	invoices := make([]core.Invoice, 0, set.Len())
	periods := make([]core.Period, 0, set.Len())
	for _, inv := range set.Invoices() {
		if !filter.Match(inv) {
			continue
		}
		invoices = append(invoices, inv)
		periods = append(periods, inv.Period())
	}

	s := Summary{
		Filter:   filter,
		Invoices: invoices,
		tables:   make(map[string]core.SummaryTable, len(groupings)),
	}
	for _, g := range groupings {
		s.tables[g.name] = aggregate(g, invoices, periods)
	}
	s.Chart = chartSeries(s.Table(TableByYearMonth))
	return s
}

type bucket struct {
	key  []any
	sums []decimal.Decimal
}

func aggregate(g grouping, invoices []core.Invoice, periods []core.Period) core.SummaryTable {
	columns := append(append([]string{}, g.keyCols...), g.sums...)
	index := make(map[string]*bucket)
	var buckets []*bucket

	for i, inv := range invoices {
		key := g.key(inv, periods[i])
		id := keyID(key)
		b, ok := index[id]
		if !ok {
			b = &bucket{key: key, sums: make([]decimal.Decimal, len(g.sums))}
			for j := range b.sums {
				b.sums[j] = decimal.Zero
			}
			index[id] = b
			buckets = append(buckets, b)
		}
		for j, col := range g.sums {
			b.sums[j] = b.sums[j].Add(amount(inv, col))
		}
	}

	sort.Slice(buckets, func(a, b int) bool {
		return compareKeys(buckets[a].key, buckets[b].key) < 0
	})

	rows := make([]core.Row, 0, len(buckets))
	for _, b := range buckets {
		row := make(core.Row, 0, len(columns))
		row = append(row, b.key...)
		for _, s := range b.sums {
			row = append(row, s)
		}
		rows = append(rows, row)
	}
	return core.SummaryTable{Name: g.name, Columns: columns, Rows: rows}
}

func amount(inv core.Invoice, col string) decimal.Decimal {
	if col == ColTax {
		return inv.Tax
	}
	return inv.Total
}

// keyID encodes a key tuple for map lookup. Unknown periods get a marker no
// real value can produce.
func keyID(key []any) string {
	var b strings.Builder
	for _, k := range key {
		switch v := k.(type) {
		case string:
			b.WriteString("s:")
			b.WriteString(v)
		case core.NullInt:
			if v.Valid {
				b.WriteString("i:")
				b.WriteString(v.String())
			} else {
				b.WriteString("n:")
			}
		}
		b.WriteByte(0)
	}
	return b.String()
}

func compareKeys(a, b []any) int {
	for i := range a {
		var c int
		switch av := a[i].(type) {
		case string:
			c = strings.Compare(av, b[i].(string))
		case core.NullInt:
			c = av.Compare(b[i].(core.NullInt))
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

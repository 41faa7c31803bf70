package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleSet() core.RecordSet {
	return core.NewRecordSet(
		core.Invoice{
			Name: "A.xml", Total: dec("100.0"), Tax: dec("16.0"), IssueDate: "2024-01-05",
			IssuerRFC: "AAA010101AAA", Concepts: []string{"Service X"}, UsageCode: "G03",
		},
		core.Invoice{
			Name: "B.xml", Total: dec("200.0"), Tax: dec("32.0"), IssueDate: "2024-02-10",
			IssuerRFC: "BBB010101BBB", Concepts: []string{"Service Y"}, UsageCode: "G01",
		},
	)
}

func cell(t *testing.T, tbl core.SummaryTable, row int, col string) any {
	t.Helper()
	v, ok := tbl.Get(row, col)
	require.True(t, ok, "%s[%d].%s", tbl.Name, row, col)
	return v
}

func assertDec(t *testing.T, want string, got any) {
	t.Helper()
	d, ok := got.(decimal.Decimal)
	require.True(t, ok, "not a decimal: %T", got)
	assert.True(t, dec(want).Equal(d), "want %s, got %s", want, d)
}

func TestSummarizeByYearAndMonth(t *testing.T) {
	s := NewEngine().Summarize(sampleSet(), Filter{})

	byYear := s.Table(TableByYear)
	require.Equal(t, 1, byYear.Len())
	assert.Equal(t, []string{ColYear, ColTotal}, byYear.Columns)
	assert.Equal(t, core.IntOf(2024), cell(t, byYear, 0, ColYear))
	assertDec(t, "300", cell(t, byYear, 0, ColTotal))

	byMonth := s.Table(TableByYearMonth)
	require.Equal(t, 2, byMonth.Len())
	assert.Equal(t, core.IntOf(1), cell(t, byMonth, 0, ColMonth))
	assertDec(t, "100", cell(t, byMonth, 0, ColTotal))
	assert.Equal(t, core.IntOf(2), cell(t, byMonth, 1, ColMonth))
	assertDec(t, "200", cell(t, byMonth, 1, ColTotal))

	taxYear := s.Table(TableTaxByYear)
	assert.Equal(t, []string{ColYear, ColTax}, taxYear.Columns)
	assertDec(t, "48", cell(t, taxYear, 0, ColTax))

	require.Len(t, s.Chart, 2)
	assert.Equal(t, "2024-01", s.Chart[0].Label)
	assert.Equal(t, "2024-02", s.Chart[1].Label)
	assertDec(t, "200", ChartMax(s.Chart))
}

func TestSummarizeCrossTables(t *testing.T) {
	s := NewEngine().Summarize(sampleSet(), Filter{})

	issuer := s.Table(TableByIssuerYearMonth)
	assert.Equal(t, []string{ColIssuerRFC, ColYear, ColMonth, ColTotal, ColTax}, issuer.Columns)
	require.Equal(t, 2, issuer.Len())
	assert.Equal(t, "AAA010101AAA", cell(t, issuer, 0, ColIssuerRFC))
	assertDec(t, "16", cell(t, issuer, 0, ColTax))

	usage := s.Table(TableByUsageYearMonth)
	require.Equal(t, 2, usage.Len())
	// ascending key order: G01 before G03
	assert.Equal(t, "G01", cell(t, usage, 0, ColUsageCode))
	assert.Equal(t, "G03", cell(t, usage, 1, ColUsageCode))

	concept := s.Table(TableByConceptYearMonth)
	assert.Equal(t, "Service X", cell(t, concept, 0, ColConcepts))
}

func TestSummarizeConceptKey(t *testing.T) {
	set := core.NewRecordSet(
		core.Invoice{Name: "1", Total: dec("10"), IssueDate: "2024-03-01", Concepts: []string{"A", "B"}},
		core.Invoice{Name: "2", Total: dec("5"), IssueDate: "2024-03-02", Concepts: []string{"A", "B"}},
		core.Invoice{Name: "3", Total: dec("7"), IssueDate: "2024-03-03"},
	)
	concept := NewEngine().Summarize(set, Filter{}).Table(TableByConceptYearMonth)
	require.Equal(t, 2, concept.Len())
	assert.Equal(t, "", cell(t, concept, 0, ColConcepts))
	assertDec(t, "7", cell(t, concept, 0, ColTotal))
	assert.Equal(t, "A, B", cell(t, concept, 1, ColConcepts))
	assertDec(t, "15", cell(t, concept, 1, ColTotal))
}

func TestSummarizeUnknownDateBucket(t *testing.T) {
	set := core.NewRecordSet(
		core.Invoice{Name: "ok.xml", Total: dec("10"), IssueDate: "2024-05-01T00:00:00"},
		core.Invoice{Name: "bad.xml", Total: dec("25"), IssueDate: "ayer"},
	)
	s := NewEngine().Summarize(set, Filter{})

	byYear := s.Table(TableByYear)
	require.Equal(t, 2, byYear.Len())
	assert.Equal(t, core.IntOf(2024), cell(t, byYear, 0, ColYear))
	assert.Equal(t, core.NullInt{}, cell(t, byYear, 1, ColYear))
	assertDec(t, "25", cell(t, byYear, 1, ColTotal))

	byMonth := s.Table(TableByYearMonth)
	require.Equal(t, 2, byMonth.Len())
	assert.Equal(t, core.NullInt{}, cell(t, byMonth, 1, ColMonth))

	require.Len(t, s.Chart, 2)
	assert.Equal(t, core.UnknownPeriodLabel, s.Chart[1].Label)
}

func TestSummarizeFilter(t *testing.T) {
	e := NewEngine()

	s := e.Summarize(sampleSet(), Filter{IssuerRFC: "  aaa01 "})
	require.Len(t, s.Invoices, 1)
	assert.Equal(t, "A.xml", s.Invoices[0].Name)
	assertDec(t, "100", cell(t, s.Table(TableByYear), 0, ColTotal))

	blank := e.Summarize(sampleSet(), Filter{IssuerRFC: "   "})
	assert.Len(t, blank.Invoices, 2)
	assert.False(t, Filter{IssuerRFC: " "}.Active())

	none := e.Summarize(sampleSet(), Filter{IssuerRFC: "ZZZ"})
	assert.True(t, none.Empty())
	assert.Empty(t, none.Chart)
	for _, sec := range none.Sections() {
		assert.Equal(t, 0, sec.Table.Len(), sec.Table.Name)
		assert.NotEmpty(t, sec.Table.Columns)
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	s := NewEngine().Summarize(core.Dedupe(nil), Filter{})
	assert.True(t, s.Empty())
	require.Len(t, s.Sections(), 7)
	assert.True(t, s.GrandTotal().IsZero())
}

func TestSummarizeIdempotent(t *testing.T) {
	e := NewEngine()
	a := e.Summarize(sampleSet(), Filter{})
	b := e.Summarize(sampleSet(), Filter{})
	assert.Equal(t, a.Sections(), b.Sections())
	assert.Equal(t, a.Chart, b.Chart)
}

func TestSummarizeSumConsistency(t *testing.T) {
	set := core.NewRecordSet(
		core.Invoice{Name: "1", Total: dec("10.10"), Tax: dec("1.61"), IssueDate: "2023-12-01", IssuerRFC: "X"},
		core.Invoice{Name: "2", Total: dec("20.20"), Tax: dec("3.23"), IssueDate: "2024-01-01", IssuerRFC: "Y"},
		core.Invoice{Name: "3", Total: dec("30.30"), Tax: dec("4.84"), IssueDate: "???", IssuerRFC: "X"},
	)
	s := NewEngine().Summarize(set, Filter{})

	for _, sec := range s.Sections() {
		for _, col := range []string{ColTotal, ColTax} {
			if sec.Table.ColumnIndex(col) < 0 {
				continue
			}
			sum := decimal.Zero
			for i := range sec.Table.Rows {
				sum = sum.Add(cell(t, sec.Table, i, col).(decimal.Decimal))
			}
			want := s.GrandTotal()
			if col == ColTax {
				want = s.GrandTax()
			}
			assert.True(t, want.Equal(sum), "%s.%s: want %s got %s", sec.Table.Name, col, want, sum)
		}
	}
}

func TestSectionsOrderAndTitles(t *testing.T) {
	secs := NewEngine().Summarize(sampleSet(), Filter{}).Sections()
	require.Len(t, secs, 7)
	assert.Equal(t, "Totales por año", secs[0].Title)
	assert.Equal(t, TableByYear, secs[0].Table.Name)
	assert.Equal(t, "Totales e impuestos por año y mes por uso de CFDI", secs[6].Title)
	assert.Equal(t, TableByUsageYearMonth, secs[6].Table.Name)
}

func TestFlatten(t *testing.T) {
	flat, err := Flatten(NewEngine().Summarize(sampleSet(), Filter{}).Sections())
	require.NoError(t, err)
	require.Len(t, flat, 7)
	assert.Equal(t, []string{"2024", "300.00"}, flat[0].Rows[0])

	_, err = Flatten([]Section{{Title: "x", Table: core.SummaryTable{Name: "x", Columns: []string{"a"}, Rows: []core.Row{{1.5}}}}})
	assert.ErrorIs(t, err, core.ErrUnsupportedValue)
}

func TestInvoiceTable(t *testing.T) {
	s := NewEngine().Summarize(sampleSet(), Filter{})
	tbl := InvoiceTable(s.Invoices)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "A.xml", cell(t, tbl, 0, "name"))
	assert.Equal(t, "Service X", cell(t, tbl, 0, ColConcepts))
	assert.Equal(t, core.IntOf(1), cell(t, tbl, 0, ColMonth))
}

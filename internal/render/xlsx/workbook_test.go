package xlsx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"facturas/internal/core"
	"facturas/internal/report"
)

func TestBuildWorkbook(t *testing.T) {
	set := core.NewRecordSet(
		core.Invoice{Name: "A.xml", Total: decimal.RequireFromString("100"), IssueDate: "2024-01-05", IssuerRFC: "AAA"},
		core.Invoice{Name: "B.xml", Total: decimal.RequireFromString("200.5"), IssueDate: "no date", IssuerRFC: "BBB"},
	)
	s := report.NewEngine().Summarize(set, report.Filter{})

	out, err := Build(s.Sections(), report.InvoiceTable(s.Invoices))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 8)
	assert.Equal(t, report.TableByYear, sheets[0])
	assert.Equal(t, "facturas", sheets[7])

	rows, err := f.GetRows(report.TableByYear)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"year", "total"}, rows[0])
	assert.Equal(t, "2024", rows[1][0])
	assert.Equal(t, core.UnknownPeriodLabel, rows[2][0])

	records, err := f.GetRows("facturas")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestBuildUnsupportedCell(t *testing.T) {
	bad := []report.Section{{Title: "x", Table: core.SummaryTable{
		Name: "by_year", Columns: []string{"year"}, Rows: []core.Row{{struct{}{}}},
	}}}
	_, err := Build(bad, core.SummaryTable{})

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "year", re.Column)
	assert.ErrorIs(t, err, core.ErrUnsupportedValue)
}

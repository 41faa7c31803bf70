package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturas/internal/report"
	"facturas/internal/services"
	"facturas/internal/storage"
)

// Chart canvas, in SVG user units.
const (
	chartWidth   = 720
	chartHeight  = 260
	chartPadding = 40
)

type (
	chartPoint struct {
		X, Y  float64
		Label string
		Value string
	}

	chartView struct {
		Width, Height int
		Baseline      float64
		Polyline      string
		Points        []chartPoint
		Max           string
	}

	failureView struct {
		Label string
		Error string
	}

	reportPage struct {
		Title      string
		BatchID    string
		CreatedAt  string
		Filter     string
		Query      string
		Documents  int
		Records    int
		Matched    int
		GrandTotal string
		GrandTax   string
		Failures   []failureView
		Invoices   report.FlatTable
		Sections   []report.FlatTable
		Chart      chartView
		Exportable bool
	}

	batchRow struct {
		ID        string
		CreatedAt string
		Documents int
		Records   int
		Failures  int
		Failed    string
		Available bool
	}

	indexPage struct {
		Title    string
		MaxFiles int
		MaxMB    int64
		Batches  []batchRow
	}
)

func buildReportPage(title string, b *services.Batch, sum report.Summary, exportable bool) (reportPage, error) {
	sections, err := report.Flatten(sum.Sections())
	if err != nil {
		return reportPage{}, err
	}
	invoices, err := report.Flatten([]report.Section{{Title: "Facturas", Table: report.InvoiceTable(sum.Invoices)}})
	if err != nil {
		return reportPage{}, err
	}

	page := reportPage{
		Title:      title,
		BatchID:    b.ID,
		CreatedAt:  b.CreatedAt.Format(time.DateTime),
		Filter:     sum.Filter.IssuerRFC,
		Query:      filterQuery(sum.Filter),
		Documents:  b.Documents,
		Records:    b.Records.Len(),
		Matched:    len(sum.Invoices),
		GrandTotal: sum.GrandTotal().StringFixed(2),
		GrandTax:   sum.GrandTax().StringFixed(2),
		Invoices:   invoices[0],
		Sections:   sections,
		Chart:      buildChart(sum.Chart),
		Exportable: exportable,
	}
	for _, f := range b.Failures {
		page.Failures = append(page.Failures, failureView{Label: f.Label, Error: f.Cause.Error()})
	}
	return page, nil
}

// buildChart lays the monthly totals out left to right on a zero-based
// vertical axis.
func buildChart(points []report.ChartPoint) chartView {
	view := chartView{
		Width:    chartWidth,
		Height:   chartHeight,
		Baseline: chartHeight - chartPadding,
		Max:      report.ChartMax(points).StringFixed(2),
	}
	if len(points) == 0 {
		return view
	}

	top := report.ChartMax(points)
	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)

	coords := make([]string, 0, len(points))
	for i, p := range points {
		x := float64(chartWidth) / 2
		if len(points) > 1 {
			x = chartPadding + plotW*float64(i)/float64(len(points)-1)
		}
		y := view.Baseline
		if top.IsPositive() && p.Value.IsPositive() {
			y -= plotH * p.Value.Div(top).InexactFloat64()
		}
		view.Points = append(view.Points, chartPoint{X: x, Y: y, Label: p.Label, Value: p.Value.StringFixed(2)})
		coords = append(coords, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	view.Polyline = strings.Join(coords, " ")
	return view
}

func buildBatchRows(entries []storage.BatchEntry, available func(id string) bool) []batchRow {
	rows := make([]batchRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, batchRow{
			ID:        e.ID,
			CreatedAt: e.CreatedAt.Local().Format(time.DateTime),
			Documents: e.Documents,
			Records:   e.Records,
			Failures:  e.Failures,
			Failed:    strings.Join(e.FailedLabels, ", "),
			Available: available(e.ID),
		})
	}
	return rows
}

// summaryJSON is the body of GET /reports/{id}/summary.json.
type summaryJSON struct {
	BatchID    string             `json:"batch_id"`
	Title      string             `json:"title"`
	Filter     string             `json:"filter"`
	Documents  int                `json:"documents"`
	Records    int                `json:"records"`
	Matched    int                `json:"matched"`
	GrandTotal decimal.Decimal    `json:"grand_total"`
	GrandTax   decimal.Decimal    `json:"grand_tax"`
	Failures   []failureJSON      `json:"failures"`
	Tables     []report.FlatTable `json:"tables"`
	Chart      []chartPointJSON   `json:"chart"`
}

type failureJSON struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

type chartPointJSON struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

func buildSummaryJSON(title string, b *services.Batch, sum report.Summary) (summaryJSON, error) {
	tables, err := report.Flatten(sum.Sections())
	if err != nil {
		return summaryJSON{}, err
	}
	out := summaryJSON{
		BatchID:    b.ID,
		Title:      title,
		Filter:     sum.Filter.IssuerRFC,
		Documents:  b.Documents,
		Records:    b.Records.Len(),
		Matched:    len(sum.Invoices),
		GrandTotal: sum.GrandTotal(),
		GrandTax:   sum.GrandTax(),
		Failures:   make([]failureJSON, 0, len(b.Failures)),
		Tables:     tables,
		Chart:      make([]chartPointJSON, 0, len(sum.Chart)),
	}
	for _, f := range b.Failures {
		out.Failures = append(out.Failures, failureJSON{Document: f.Label, Error: f.Cause.Error()})
	}
	for _, p := range sum.Chart {
		out.Chart = append(out.Chart, chartPointJSON{Label: p.Label, Value: p.Value})
	}
	return out, nil
}

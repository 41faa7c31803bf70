package report

import (
	"github.com/shopspring/decimal"

	"facturas/internal/core"
)

// chartSeries reads the by_year_month table into labelled points, keeping the
// table order.
func chartSeries(t core.SummaryTable) []ChartPoint {
	points := make([]ChartPoint, 0, t.Len())
	for i := range t.Rows {
		year, _ := t.Get(i, ColYear)
		month, _ := t.Get(i, ColMonth)
		total, _ := t.Get(i, ColTotal)

		p := core.Period{Year: year.(core.NullInt), Month: month.(core.NullInt)}
		points = append(points, ChartPoint{Label: p.Label(), Value: total.(decimal.Decimal)})
	}
	return points
}

// ChartMax returns the largest point value, or zero.
func ChartMax(points []ChartPoint) decimal.Decimal {
	top := decimal.Zero
	for _, p := range points {
		if p.Value.GreaterThan(top) {
			top = p.Value
		}
	}
	return top
}

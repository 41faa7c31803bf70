package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedValue is returned when a table cell holds a type that has no
// text representation.
var ErrUnsupportedValue = errors.New("unsupported cell value")

// Row holds one value per column of its table.
type Row []any

// SummaryTable is a grouped-and-summed view: group-key columns first, sum
// columns last.
type SummaryTable struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t SummaryTable) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1.
func (t SummaryTable) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Get returns the value of a named column in the given row.
func (t SummaryTable) Get(row int, column string) (any, bool) {
	if row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	idx := t.ColumnIndex(column)
	if idx < 0 || idx >= len(t.Rows[row]) {
		return nil, false
	}
	return t.Rows[row][idx], true
}

// Record returns a row as a column-name mapping.
func (t SummaryTable) Record(row int) map[string]any {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	out := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(t.Rows[row]) {
			out[c] = t.Rows[row][i]
		}
	}
	return out
}

// FormatValue renders a cell as text. Money is always shown with two decimals.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case NullInt:
		return val.String(), nil
	case decimal.Decimal:
		return val.StringFixed(2), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// FormatRow renders every cell of a row.
func FormatRow(r Row) ([]string, error) {
	out := make([]string, len(r))
	for i, v := range r {
		s, err := FormatValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

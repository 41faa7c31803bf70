// Package pdf renders report sections as a paginated PDF document.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"facturas/internal/core"
	"facturas/internal/report"
)

const (
	// gridColumns is the width of a maroto row.
	gridColumns = 12
	cellHeight  = 7
)

var headerBackground = &props.Color{Red: 211, Green: 211, Blue: 211}

// RenderError reports a table cell that could not be turned into text.
type RenderError struct {
	Table  string
	Row    int
	Column string
	Cause  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s row %d column %s: %v", e.Table, e.Row, e.Column, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Assembler builds the PDF report.
type Assembler struct {
	pageNumberPattern string
	compress          bool
}

// NewAssembler returns an Assembler with page numbers in the footer.
func NewAssembler() *Assembler {
	return &Assembler{pageNumberPattern: "Página {current} de {total}", compress: true}
}

// Assemble writes the title and then, for each section in order, its heading,
// a grey header row and one bordered row per table row. No bytes are produced
// when any cell is unsupported.
func (a *Assembler) Assemble(title string, sections []report.Section) ([]byte, error) {
	formatted := make([][][]string, len(sections))
	for i, s := range sections {
		rows, err := formatTable(s.Table)
		if err != nil {
			return nil, err
		}
		formatted[i] = rows
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: a.pageNumberPattern,
			Place:   props.RightBottom,
		}).
		WithCompression(a.compress).
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(gridColumns, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	for i, s := range sections {
		m.AddRow(12,
			text.NewCol(gridColumns, s.Title, props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   4,
			}),
		)
		widths := columnWidths(len(s.Table.Columns))
		m.AddRows(gridRow(s.Table.Columns, widths, true))
		for _, cells := range formatted[i] {
			m.AddRows(gridRow(cells, widths, false))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func formatTable(t core.SummaryTable) ([][]string, error) {
	out := make([][]string, 0, t.Len())
	for r, rowValues := range t.Rows {
		cells := make([]string, len(rowValues))
		for c, v := range rowValues {
			s, err := core.FormatValue(v)
			if err != nil {
				column := ""
				if c < len(t.Columns) {
					column = t.Columns[c]
				}
				return nil, &RenderError{Table: t.Name, Row: r, Column: column, Cause: err}
			}
			cells[c] = s
		}
		out = append(out, cells)
	}
	return out, nil
}

func gridRow(cells []string, widths []int, header bool) mcore.Row {
	style := &props.Cell{
		BorderType:      border.Full,
		BorderThickness: 0.2,
	}
	textProps := props.Text{Size: 8, Top: 1.5, Left: 1, Right: 1}
	if header {
		style.BackgroundColor = headerBackground
		textProps.Style = fontstyle.Bold
	}

	cols := make([]mcore.Col, 0, len(cells))
	for i, c := range cells {
		w := 1
		if i < len(widths) {
			w = widths[i]
		}
		cols = append(cols, col.New(w).Add(text.New(c, textProps)).WithStyle(style))
	}
	return row.New(cellHeight).Add(cols...)
}

// columnWidths spreads the grid over n columns, giving the remainder to the
// leftmost ones. Tables wider than the grid get one unit per column.
func columnWidths(n int) []int {
	if n == 0 {
		return nil
	}
	widths := make([]int, n)
	base, extra := gridColumns/n, gridColumns%n
	if base == 0 {
		base, extra = 1, 0
	}
	for i := range widths {
		widths[i] = base
		if i < extra {
			widths[i]++
		}
	}
	return widths
}

// Package xlsx renders report sections as a spreadsheet workbook.
package xlsx

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"facturas/internal/core"
	"facturas/internal/report"
)

const defaultSheet = "Sheet1"

// RenderError reports a table cell that has no spreadsheet representation.
type RenderError struct {
	Sheet  string
	Row    int
	Column string
	Cause  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render sheet %s row %d column %s: %v", e.Sheet, e.Row, e.Column, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Build writes one sheet per section, named after its table. The record
// table gets the last sheet unless it has no columns.
func Build(sections []report.Section, records core.SummaryTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D3D3D3"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}

	tables := make([]core.SummaryTable, 0, len(sections)+1)
	for _, s := range sections {
		tables = append(tables, s.Table)
	}
	if len(records.Columns) > 0 {
		tables = append(tables, records)
	}

	for _, t := range tables {
		if err := writeSheet(f, t, header, money); err != nil {
			return nil, err
		}
	}
	if len(tables) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
		f.SetActiveSheet(0)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t core.SummaryTable, header, money int) error {
	if _, err := f.NewSheet(t.Name); err != nil {
		return fmt.Errorf("new sheet %s: %w", t.Name, err)
	}

	headerCells := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		headerCells[i] = c
	}
	if err := f.SetSheetRow(t.Name, "A1", &headerCells); err != nil {
		return fmt.Errorf("sheet %s header: %w", t.Name, err)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(t.Name, "A1", last, header); err != nil {
			return fmt.Errorf("sheet %s header style: %w", t.Name, err)
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			value, isMoney, err := cellValue(v)
			if err != nil {
				column := ""
				if c < len(t.Columns) {
					column = t.Columns[c]
				}
				return &RenderError{Sheet: t.Name, Row: r, Column: column, Cause: err}
			}
			if err := f.SetCellValue(t.Name, cell, value); err != nil {
				return fmt.Errorf("sheet %s cell %s: %w", t.Name, cell, err)
			}
			if isMoney {
				if err := f.SetCellStyle(t.Name, cell, cell, money); err != nil {
					return fmt.Errorf("sheet %s cell %s style: %w", t.Name, cell, err)
				}
			}
		}
	}
	return nil
}

// cellValue keeps amounts and known periods numeric so spreadsheets can sum
// them; everything else goes through the text formatter.
func cellValue(v any) (any, bool, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.Round(2).InexactFloat64(), true, nil
	case core.NullInt:
		if val.Valid {
			return val.Int, false, nil
		}
	}
	s, err := core.FormatValue(v)
	return s, false, err
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/report"
	"facturas/internal/sheets"
)

func TestExporterStoresRequests(t *testing.T) {
	e := New()
	req := sheets.ExportRequest{
		BatchID: "b1",
		Title:   "Reporte de gastos",
		Tables:  []report.FlatTable{{Title: "Totales por año", Columns: []string{"year", "total"}}},
	}

	ref, err := e.ExportSummary(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "mem:b1:1", ref)
	require.Len(t, e.Exports(), 1)
	assert.Equal(t, "b1", e.Exports()[0].BatchID)
}

func TestExporterRejectsEmpty(t *testing.T) {
	_, err := New().ExportSummary(context.Background(), sheets.ExportRequest{BatchID: "b1"})
	assert.ErrorIs(t, err, sheets.ErrEmptyExport)

	_, err = New().ExportSummary(context.Background(), sheets.ExportRequest{Tables: []report.FlatTable{{}}})
	assert.Error(t, err)
}

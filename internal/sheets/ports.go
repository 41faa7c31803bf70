package sheets

import (
	"context"
	"errors"

	"facturas/internal/report"
)

// ErrEmptyExport is returned for a request without tables.
var ErrEmptyExport = errors.New("export request has no tables")

// ExportRequest is a flattened summary ready to be written to a spreadsheet.
type ExportRequest struct {
	BatchID string
	Title   string
	Filter  string // issuer RFC the tables were filtered by, empty for all
	Tables  []report.FlatTable
}

// Validate checks the request names a batch and carries tables.
func (r ExportRequest) Validate() error {
	if r.BatchID == "" {
		return errors.New("export request without batch id")
	}
	if len(r.Tables) == 0 {
		return ErrEmptyExport
	}
	return nil
}

// Ports for outbound adapters.
type (
	// SummaryExporter writes a summary somewhere outside the process and
	// returns a reference to where it went.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, req ExportRequest) (ref string, err error)
	}
)

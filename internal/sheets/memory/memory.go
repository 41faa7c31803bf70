package memory

import (
	"context"
	"fmt"
	"sync"

	"facturas/internal/sheets"
)

// Exporter keeps exported summaries in process. It backs local development
// and tests.
type Exporter struct {
	mu    sync.Mutex
	items []sheets.ExportRequest
}

var _ sheets.SummaryExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportSummary stores the request and returns a synthetic reference.
func (e *Exporter) ExportSummary(_ context.Context, req sheets.ExportRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, req)
	return fmt.Sprintf("mem:%s:%d", req.BatchID, len(e.items)), nil
}

// Exports returns a copy of every stored request in arrival order.
func (e *Exporter) Exports() []sheets.ExportRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.ExportRequest(nil), e.items...)
}

// Package worker handles export messages consumed from the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"facturas/internal/amqp"
	"facturas/internal/sheets"
)

// ExportWorker writes queued summaries with a synchronous exporter.
type ExportWorker struct {
	exporter sheets.SummaryExporter
	handled  atomic.Int64
	failed   atomic.Int64
}

func NewExportWorker(exporter sheets.SummaryExporter) *ExportWorker {
	return &ExportWorker{exporter: exporter}
}

// HandleExportMessage writes one summary. A returned error makes the
// consumer requeue the message.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"batch_id", msg.BatchID,
		"tables", len(msg.Tables),
		"queued_at", msg.Timestamp)

	ref, err := w.exporter.ExportSummary(ctx, sheets.ExportRequest{
		BatchID: msg.BatchID,
		Title:   msg.Title,
		Filter:  msg.Filter,
		Tables:  msg.Tables,
	})
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("export batch %s: %w", msg.BatchID, err)
	}

	w.handled.Add(1)
	slog.InfoContext(ctx, "Export message written", "batch_id", msg.BatchID, "ref", ref)
	return nil
}

// Stats returns how many messages were written and how many failed.
func (w *ExportWorker) Stats() (handled, failed int64) {
	return w.handled.Load(), w.failed.Load()
}

// Package queued defers summary exports to the export worker through AMQP.
package queued

import (
	"context"
	"fmt"

	"facturas/internal/amqp"
	"facturas/internal/sheets"
)

// Publisher sends export messages to the broker.
type Publisher interface {
	PublishExport(ctx context.Context, msg *amqp.ExportMessage) error
}

// Exporter publishes the request instead of writing it. The worker picks it
// up and writes it with the Google adapter.
type Exporter struct {
	pub Publisher
}

var _ sheets.SummaryExporter = (*Exporter)(nil)

func New(pub Publisher) *Exporter {
	return &Exporter{pub: pub}
}

// ExportSummary returns "queued:<batch id>" once the broker accepted the
// message.
func (e *Exporter) ExportSummary(ctx context.Context, req sheets.ExportRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	msg := amqp.NewExportMessage(req.BatchID, req.Title, req.Tables)
	msg.Filter = req.Filter
	if err := e.pub.PublishExport(ctx, msg); err != nil {
		return "", fmt.Errorf("queue export %s: %w", req.BatchID, err)
	}
	return "queued:" + req.BatchID, nil
}

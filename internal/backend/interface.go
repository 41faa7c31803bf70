package backend

import (
	"context"

	"facturas/internal/sheets"
	"facturas/internal/storage"
)

// Backend bundles the outbound adapters the service runs with.
type Backend struct {
	Audit         storage.AuditLog
	Exporter      sheets.SummaryExporter
	ExportBackend ExportType
	// Ready reports whether the adapters can serve requests.
	Ready func(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// AuditType selects where batch metadata goes.
type AuditType string

const (
	MemoryAudit AuditType = "memory"
	SQLiteAudit AuditType = "sqlite"
)

// ExportType selects how summaries leave the process.
type ExportType string

const (
	MemoryExport ExportType = "memory"
	SheetsExport ExportType = "sheets"
	AMQPExport   ExportType = "amqp"
)

func (t AuditType) IsValid() bool {
	return t == MemoryAudit || t == SQLiteAudit
}

func (t ExportType) IsValid() bool {
	switch t {
	case MemoryExport, SheetsExport, AMQPExport:
		return true
	default:
		return false
	}
}

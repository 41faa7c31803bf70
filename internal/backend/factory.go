package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"facturas/internal/amqp"
	"facturas/internal/sheets"
	gsheet "facturas/internal/sheets/google"
	"facturas/internal/sheets/memory"
	"facturas/internal/sheets/queued"
	"facturas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the audit log first and the exporter second. When
// the exporter fails the audit log is closed before returning.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	audit, ready, err := f.createAudit(config)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, audit.Close)

	exporter, closeExporter, err := f.createExporter(ctx, config)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	if closeExporter != nil {
		cleanups = append(cleanups, closeExporter)
	}

	return &BackendResult{
		Backend: &Backend{
			Audit:         audit,
			Exporter:      exporter,
			ExportBackend: config.Export,
			Ready:         ready,
		},
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createAudit(config Config) (storage.AuditLog, func(context.Context) error, error) {
	switch config.Audit {
	case SQLiteAudit:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite audit log", "db_path", config.SQLiteDBPath)
		return repo, repo.Ping, nil
	default:
		f.logger.Info("Initialized memory audit log", "capacity", config.AuditCapacity)
		return storage.NewMemoryLog(config.AuditCapacity), func(context.Context) error { return nil }, nil
	}
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (sheets.SummaryExporter, CleanupFunc, error) {
	switch config.Export {
	case SheetsExport:
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: config.GoogleServiceAccountJSON,
			File: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter")
		return cli, nil, nil

	case AMQPExport:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.Info("Initialized AMQP exporter",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return queued.New(client), client.Close, nil

	default:
		f.logger.Info("Initialized memory exporter")
		return memory.New(), nil, nil
	}
}

package backend

import (
	"fmt"

	"facturas/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Audit  AuditType
	Export ExportType

	// SQLite specific
	SQLiteDBPath string
	// Memory audit log capacity
	AuditCapacity int

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Audit:                    AuditType(appConfig.DataBackend),
		Export:                   ExportType(appConfig.ExportBackend),
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		AuditCapacity:            appConfig.BatchCacheSize,
		AMQPURL:                  appConfig.AMQPURL,
		AMQPExchange:             appConfig.AMQPExchange,
		AMQPQueue:                appConfig.AMQPQueue,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Audit.IsValid() {
		return fmt.Errorf("invalid audit backend: %s", c.Audit)
	}
	if !c.Export.IsValid() {
		return fmt.Errorf("invalid export backend: %s", c.Export)
	}
	if c.Audit == SQLiteAudit && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite audit backend")
	}

	switch c.Export {
	case AMQPExport:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp export backend")
		}
	case SheetsExport:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets export backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("service account credentials are required for sheets export backend")
		}
	}
	return nil
}

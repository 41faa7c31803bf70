package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	insertBatch = `INSERT INTO batches (id, created_at, documents, records, failures, failed_labels)
VALUES (?, ?, ?, ?, ?, ?)`
	selectRecentBatches = `SELECT id, created_at, documents, records, failures, failed_labels
FROM batches ORDER BY created_at DESC, id DESC LIMIT ?`
)

// SQLiteRepository persists the audit log in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) RecordBatch(ctx context.Context, e BatchEntry) error {
	labels := e.FailedLabels
	if labels == nil {
		labels = []string{}
	}
	encoded, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode failed labels: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, insertBatch,
		e.ID, e.CreatedAt.UTC(), e.Documents, e.Records, e.Failures, string(encoded)); err != nil {
		return fmt.Errorf("insert batch %s: %w", e.ID, err)
	}

	slog.DebugContext(ctx, "Batch saved to SQLite",
		"batch_id", e.ID,
		"documents", e.Documents,
		"records", e.Records,
		"failures", e.Failures)
	return nil
}

// RecentBatches returns up to limit entries, newest first.
func (r *SQLiteRepository) RecentBatches(ctx context.Context, limit int) ([]BatchEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectRecentBatches, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent batches: %w", err)
	}
	defer rows.Close()

	var out []BatchEntry
	for rows.Next() {
		var (
			e       BatchEntry
			created time.Time
			labels  string
		)
		if err := rows.Scan(&e.ID, &created, &e.Documents, &e.Records, &e.Failures, &labels); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		e.CreatedAt = created
		if err := json.Unmarshal([]byte(labels), &e.FailedLabels); err != nil {
			return nil, fmt.Errorf("decode failed labels of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}

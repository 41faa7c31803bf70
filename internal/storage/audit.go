// Package storage keeps the audit log of ingested upload batches. Only batch
// metadata is stored; invoice records never leave the process.
package storage

import (
	"context"
	"sync"
	"time"
)

// BatchEntry describes one ingested upload batch.
type BatchEntry struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Documents    int       `json:"documents"`
	Records      int       `json:"records"`
	Failures     int       `json:"failures"`
	FailedLabels []string  `json:"failed_labels"`
}

// AuditLog records batches and lists the most recent ones.
type AuditLog interface {
	RecordBatch(ctx context.Context, e BatchEntry) error
	RecentBatches(ctx context.Context, limit int) ([]BatchEntry, error)
	Close() error
}

// MemoryLog keeps the last capacity entries in process.
type MemoryLog struct {
	mu       sync.RWMutex
	capacity int
	entries  []BatchEntry
}

// NewMemoryLog creates a MemoryLog. capacity below one keeps 100 entries.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity < 1 {
		capacity = 100
	}
	return &MemoryLog{capacity: capacity}
}

func (m *MemoryLog) RecordBatch(_ context.Context, e BatchEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.FailedLabels = append([]string(nil), e.FailedLabels...)
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]BatchEntry(nil), m.entries[over:]...)
	}
	return nil
}

// RecentBatches returns up to limit entries, newest first.
func (m *MemoryLog) RecentBatches(_ context.Context, limit int) ([]BatchEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]BatchEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryLog) Close() error { return nil }

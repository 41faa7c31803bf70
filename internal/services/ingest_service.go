package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"facturas/internal/cache"
	"facturas/internal/cfdi"
	"facturas/internal/core"
	"facturas/internal/log"
	"facturas/internal/metrics"
	"facturas/internal/storage"
)

var (
	ErrNoDocuments   = errors.New("no documents uploaded")
	ErrBatchNotFound = errors.New("batch not found or expired")
)

// Batch is the result of one upload. It is never modified after Ingest
// returns it.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Documents int
	Records   core.RecordSet
	Failures  []*cfdi.ExtractionError
}

// FailedLabels lists the documents that could not be extracted.
func (b *Batch) FailedLabels() []string {
	out := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		out = append(out, f.Label)
	}
	return out
}

// Extractor turns raw documents into records.
type Extractor interface {
	ExtractBatch(ctx context.Context, docs []cfdi.Document) cfdi.BatchResult
}

// IngestService extracts, deduplicates and keeps upload batches.
type IngestService struct {
	extractor Extractor
	batches   cache.Cache[*Batch]
	audit     storage.AuditLog
	metrics   *metrics.Metrics
	logger    *log.Logger

	now   func() time.Time
	newID func() string
}

// NewIngestService wires the service. metrics may be nil.
func NewIngestService(extractor Extractor, batches cache.Cache[*Batch], audit storage.AuditLog, m *metrics.Metrics, logger *log.Logger) *IngestService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &IngestService{
		extractor: extractor,
		batches:   batches,
		audit:     audit,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentIngest),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Ingest builds a fresh batch from the uploaded documents. Documents that
// fail extraction are reported on the batch and never abort it.
func (s *IngestService) Ingest(ctx context.Context, docs []cfdi.Document) (*Batch, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	start := s.now()
	res := s.extractor.ExtractBatch(ctx, docs)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest cancelled: %w", err)
	}

	batch := &Batch{
		ID:        s.newID(),
		CreatedAt: start,
		Documents: len(docs),
		Records:   core.Dedupe(res.Records),
		Failures:  res.Failures,
	}
	s.batches.Set(batch.ID, batch)

	for _, f := range batch.Failures {
		s.logger.WarnContext(ctx, "Document could not be extracted",
			log.FieldBatchID, batch.ID,
			log.FieldDocument, f.Label,
			log.FieldError, f.Cause)
	}

	entry := storage.BatchEntry{
		ID:           batch.ID,
		CreatedAt:    batch.CreatedAt,
		Documents:    batch.Documents,
		Records:      batch.Records.Len(),
		Failures:     len(batch.Failures),
		FailedLabels: batch.FailedLabels(),
	}
	if s.audit != nil {
		if err := s.audit.RecordBatch(ctx, entry); err != nil {
			// the batch is usable without its audit entry
			s.logger.ErrorContext(ctx, "Failed to record batch", log.FieldBatchID, batch.ID, log.FieldError, err)
		}
	}

	s.metrics.ObserveBatch(len(res.Records), len(res.Failures), s.now().Sub(start))
	fields := log.NewFields().
		WithBatch(batch.ID, batch.Documents, batch.Records.Len(), len(batch.Failures)).
		WithOperation(log.OpIngest)
	s.logger.InfoContext(ctx, "Batch ingested", fields.ToSlice()...)

	return batch, nil
}

// Batch returns a cached batch.
func (s *IngestService) Batch(id string) (*Batch, error) {
	b, ok := s.batches.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return b, nil
}

// RecentBatches lists audit entries, newest first.
func (s *IngestService) RecentBatches(ctx context.Context, limit int) ([]storage.BatchEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.RecentBatches(ctx, limit)
}

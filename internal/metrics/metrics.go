// Package metrics exposes Prometheus counters for ingestion and rendering.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	documents       *prometheus.CounterVec
	batches         prometheus.Counter
	batchDocuments  prometheus.Histogram
	extractDuration prometheus.Histogram
	renders         *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

// New registers the collectors on registerer, or on the default registerer
// when nil.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturas_documents_total",
			Help: "Uploaded CFDI documents by extraction result.",
		}, []string{"result"}), // ok | error
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facturas_batches_total",
			Help: "Ingested upload batches.",
		}),
		batchDocuments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facturas_batch_documents",
			Help:    "Documents per upload batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		extractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facturas_extract_duration_seconds",
			Help:    "Time spent extracting one upload batch.",
			Buckets: prometheus.DefBuckets,
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturas_renders_total",
			Help: "Rendered report artifacts by format and result.",
		}, []string{"format", "result"}), // pdf | xlsx
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturas_exports_total",
			Help: "Summary exports by backend and result.",
		}, []string{"backend", "result"}),
	}

	registerer.MustRegister(
		m.documents,
		m.batches,
		m.batchDocuments,
		m.extractDuration,
		m.renders,
		m.exports,
	)
	return m
}

// ObserveBatch records one ingested batch.
func (m *Metrics) ObserveBatch(ok, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.documents.WithLabelValues(ResultOK).Add(float64(ok))
	m.documents.WithLabelValues(ResultError).Add(float64(failed))
	m.batchDocuments.Observe(float64(ok + failed))
	m.extractDuration.Observe(took.Seconds())
}

// ObserveRender records one PDF or XLSX rendering.
func (m *Metrics) ObserveRender(format string, err error) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(format, result(err)).Inc()
}

// ObserveExport records one summary export.
func (m *Metrics) ObserveExport(backend string, err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(backend, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

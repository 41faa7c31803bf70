package services

import (
	"context"
	"fmt"

	"facturas/internal/log"
	"facturas/internal/metrics"
	"facturas/internal/render/pdf"
	"facturas/internal/render/xlsx"
	"facturas/internal/report"
	"facturas/internal/sheets"
)

// Artifact formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// ReportService summarizes batches and renders or exports the result.
type ReportService struct {
	engine        *report.Engine
	assembler     *pdf.Assembler
	exporter      sheets.SummaryExporter
	exportBackend string
	title         string
	metrics       *metrics.Metrics
	logger        *log.Logger
}

// ReportOptions configures a ReportService.
type ReportOptions struct {
	Title         string
	Exporter      sheets.SummaryExporter
	ExportBackend string
	Metrics       *metrics.Metrics
	Logger        *log.Logger
}

func NewReportService(opts ReportOptions) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	title := opts.Title
	if title == "" {
		title = "Reporte de gastos"
	}
	return &ReportService{
		engine:        report.NewEngine(),
		assembler:     pdf.NewAssembler(),
		exporter:      opts.Exporter,
		exportBackend: opts.ExportBackend,
		title:         title,
		metrics:       opts.Metrics,
		logger:        logger.WithComponent(log.ComponentReport),
	}
}

// Title is the report heading used by every artifact.
func (s *ReportService) Title() string {
	return s.title
}

// Summary computes the tables for a batch.
func (s *ReportService) Summary(b *Batch, filter report.Filter) report.Summary {
	return s.engine.Summarize(b.Records, filter)
}

// PDF renders the summary of a batch.
func (s *ReportService) PDF(ctx context.Context, b *Batch, filter report.Filter) ([]byte, error) {
	out, err := s.assembler.Assemble(s.title, s.Summary(b, filter).Sections())
	s.observeRender(ctx, b, FormatPDF, err)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out, nil
}

// XLSX renders the summary and the filtered records as a workbook.
func (s *ReportService) XLSX(ctx context.Context, b *Batch, filter report.Filter) ([]byte, error) {
	sum := s.Summary(b, filter)
	out, err := xlsx.Build(sum.Sections(), report.InvoiceTable(sum.Invoices))
	s.observeRender(ctx, b, FormatXLSX, err)
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return out, nil
}

// Export sends the summary to the configured exporter and returns its
// reference.
func (s *ReportService) Export(ctx context.Context, b *Batch, filter report.Filter) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("no exporter configured")
	}
	tables, err := report.Flatten(s.Summary(b, filter).Sections())
	if err != nil {
		return "", fmt.Errorf("flatten summary: %w", err)
	}

	ref, err := s.exporter.ExportSummary(ctx, sheets.ExportRequest{
		BatchID: b.ID,
		Title:   s.title,
		Filter:  filter.IssuerRFC,
		Tables:  tables,
	})
	s.metrics.ObserveExport(s.exportBackend, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Summary export failed", log.FieldBatchID, b.ID, log.FieldError, err)
		return "", fmt.Errorf("export summary: %w", err)
	}

	s.logger.InfoContext(ctx, "Summary exported",
		log.FieldBatchID, b.ID,
		log.FieldExportRef, ref,
		log.FieldFilter, filter.IssuerRFC)
	return ref, nil
}

func (s *ReportService) observeRender(ctx context.Context, b *Batch, format string, err error) {
	s.metrics.ObserveRender(format, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Report rendering failed",
			log.FieldBatchID, b.ID,
			log.FieldFormat, format,
			log.FieldError, err)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"facturas/internal/log"
	"facturas/internal/report"
	"facturas/internal/services"
)

// Download file names.
const (
	pdfFilename  = "reporte_gastos.pdf"
	xlsxFilename = "reporte_gastos.xlsx"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.ingest.RecentBatches(ctx, recentBatches)
	if err != nil {
		// the form works without the history
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list recent batches", log.FieldError, err)
	}

	page := indexPage{
		Title:    s.reports.Title(),
		MaxFiles: s.uploads.MaxFiles,
		MaxMB:    s.uploads.MaxBytes >> 20,
		Batches: buildBatchRows(entries, func(id string) bool {
			_, err := s.ingest.Batch(id)
			return err == nil
		}),
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := ParseUploads(w, r, s.uploads)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Upload rejected", log.FieldError, err)
		uploadError(err).Write(w)
		return
	}

	batch, err := s.ingest.Ingest(ctx, docs)
	if err != nil {
		if errors.Is(err, services.ErrNoDocuments) {
			BadRequestError("No se recibió ningún archivo").Write(w)
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Ingest failed", log.FieldError, err)
		InternalServerError("No se pudo procesar la carga").Write(w)
		return
	}

	s.renderReport(w, r, batch)
}

func uploadError(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, ErrNoFiles):
		return BadRequestError("Seleccione al menos un archivo XML")
	case errors.Is(err, ErrTooManyFiles):
		return BadRequestError("Demasiados archivos: " + err.Error())
	case errors.Is(err, ErrUploadTooLarge):
		return PayloadTooLargeError("La carga excede el tamaño permitido")
	default:
		return BadRequestError("Formato de carga no válido")
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	s.renderReport(w, r, batch)
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, batch *services.Batch) {
	ctx := r.Context()
	// after an upload the multipart values are already in r.Form
	filter, err := RequestFilter(r)
	if err != nil {
		log.FromContext(ctx).DebugContext(ctx, "Rejected report query", log.FieldError, err)
		BadRequestError("Filtro no válido").Write(w)
		return
	}

	page, err := buildReportPage(s.reports.Title(), batch, s.reports.Summary(batch, filter), s.exportable)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to build report page", log.FieldBatchID, batch.ID, log.FieldError, err)
		InternalServerError("No se pudo generar el reporte").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "report.html", page)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, services.FormatPDF, "application/pdf", pdfFilename, s.reports.PDF)
}

func (s *Server) handleXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, services.FormatXLSX, xlsxMIME, xlsxFilename, s.reports.XLSX)
}

type artifactFunc func(ctx context.Context, b *services.Batch, filter report.Filter) ([]byte, error)

// serveArtifact renders a download. A render failure aborts only this
// download; the report page stays available.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, format, mime, filename string, build artifactFunc) {
	batch, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	filter, err := RequestFilter(r)
	if err != nil {
		BadRequestError("Filtro no válido").Write(w)
		return
	}

	out, err := build(ctx, batch, filter)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Artifact rendering failed",
			log.FieldBatchID, batch.ID,
			log.FieldFormat, format,
			log.FieldError, err)
		InternalServerError("No se pudo generar el archivo " + format).Write(w)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, batch.CreatedAt, bytes.NewReader(out))
}

func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	filter, err := RequestFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filter"})
		return
	}

	body, err := buildSummaryJSON(s.reports.Title(), batch, s.reports.Summary(batch, filter))
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to build summary", log.FieldBatchID, batch.ID, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "summary unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportable {
		NotFoundError("La exportación no está habilitada").Write(w)
		return
	}
	batch, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	filter, err := RequestFilter(r)
	if err != nil {
		BadRequestError("Formato de solicitud no válido").Write(w)
		return
	}

	ref, err := s.reports.Export(r.Context(), batch, filter)
	if err != nil {
		InternalServerError("No se pudo exportar el resumen").
			TriggerErrorNotification("Exportación fallida").
			Write(w)
		return
	}
	SuccessResponse("Resumen exportado: " + ref).
		TriggerSummaryExported(batch.ID, ref).
		TriggerSuccessNotification("Resumen exportado").
		Write(w)
}

// lookupBatch resolves {id} or writes a 404.
func (s *Server) lookupBatch(w http.ResponseWriter, r *http.Request) (*services.Batch, bool) {
	batch, err := s.ingest.Batch(r.PathValue("id"))
	if err != nil {
		NotFoundError("El reporte no existe o ha expirado; vuelva a cargar los archivos").Write(w)
		return nil, false
	}
	return batch, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"templates": "ok"}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Hits(),
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// render executes into a buffer so a template error never leaves a half
// written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed", "template", name, log.FieldError, err)
		InternalServerError("Error al generar la página").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

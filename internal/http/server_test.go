package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/cache"
	"facturas/internal/cfdi"
	"facturas/internal/metrics"
	"facturas/internal/middleware/ratelimit"
	"facturas/internal/services"
	"facturas/internal/sheets/memory"
	"facturas/internal/storage"
)

const invoiceTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Total="%s" Fecha="%s">
  <cfdi:Emisor Rfc="%s" Nombre="Proveedor"/>
  <cfdi:Receptor UsoCFDI="G03"/>
  <cfdi:Conceptos><cfdi:Concepto Descripcion="Papelería"/></cfdi:Conceptos>
  <cfdi:Impuestos><cfdi:Traslados><cfdi:Traslado Importe="16.00"/></cfdi:Traslados></cfdi:Impuestos>
</cfdi:Comprobante>`

func invoiceXML(total, date, rfc string) []byte {
	return []byte(fmt.Sprintf(invoiceTemplate, total, date, rfc))
}

type testEnv struct {
	srv      *Server
	ingest   *services.IngestService
	exporter *memory.Exporter
}

func newTestEnv(t *testing.T, exportable bool) testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ingest := services.NewIngestService(
		cfdi.NewExtractor(cfdi.WithWorkers(2)),
		cache.NewLRUCache[*services.Batch](10, time.Hour),
		storage.NewMemoryLog(10), m, nil)
	exporter := memory.New()
	reports := services.NewReportService(services.ReportOptions{Exporter: exporter, ExportBackend: "memory", Metrics: m})

	srv, err := NewServer(":0", Dependencies{
		Ingest:     ingest,
		Reports:    reports,
		Exportable: exportable,
		Gatherer:   reg,
		Uploads:    UploadLimits{MaxBytes: 1 << 20, MaxFiles: 3},
		RateLimit:  ratelimit.Config{RequestsPerMinute: 100},
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.limiter.Stop() })
	return testEnv{srv: srv, ingest: ingest, exporter: exporter}
}

type upload struct {
	name string
	data []byte
}

func uploadRequest(t *testing.T, rfc string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(FilesField, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	if rfc != "" {
		require.NoError(t, mw.WriteField("rfc", rfc))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// ingestBatch uploads two invoices and returns the batch id.
func (e testEnv) ingestBatch(t *testing.T) string {
	t.Helper()
	rec := e.do(uploadRequest(t, "",
		upload{"a.xml", invoiceXML("116.00", "2024-01-15T10:00:00", "AAA010101AAA")},
		upload{"b.xml", invoiceXML("232.00", "2024-02-03T09:30:00", "BBB010101BBB")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries, err := e.ingest.RecentBatches(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0].ID
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reporte de gastos")
	assert.Contains(t, rec.Body.String(), `name="files"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsBackendFailure(t *testing.T) {
	env := newTestEnv(t, false)
	env.srv.ready = func(ctx context.Context) error { return errors.New("database is locked") }

	rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestUploadRendersReport(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(uploadRequest(t, "",
		upload{"a.xml", invoiceXML("116.00", "2024-01-15T10:00:00", "AAA010101AAA")},
		upload{"a.xml", invoiceXML("116", "2024-01-15T10:00:00", "AAA010101AAA")},
		upload{"roto.xml", []byte("<cfdi:Comprobante")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()

	assert.Contains(t, body, "Totales por año")
	assert.Contains(t, body, "Totales e impuestos por año y mes por uso de CFDI")
	assert.Contains(t, body, "roto.xml")
	assert.Contains(t, body, "116.00")
	assert.Contains(t, body, "<polyline")
	assert.Contains(t, body, "Exportar resumen")
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(uploadRequest(t, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div class="error">`)

	many := make([]upload, 4)
	for i := range many {
		many[i] = upload{fmt.Sprintf("%d.xml", i), invoiceXML("1", "2024-01-01", "AAA")}
	}
	rec = env.do(uploadRequest(t, "", many...))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Demasiados archivos")

	big := upload{"big.xml", bytes.Repeat([]byte("x"), 2<<20)}
	rec = env.do(uploadRequest(t, "", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReportFilterAndDownloads(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.ingestBatch(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/reports/"+id+"?rfc=bbb", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "232.00")
	assert.NotContains(t, rec.Body.String(), "AAA010101AAA")
	assert.Contains(t, rec.Body.String(), "/reports/"+id+"/pdf?rfc=bbb")
	assert.NotContains(t, rec.Body.String(), "Exportar resumen")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/reports/"+id+"/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reporte_gastos.pdf")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/reports/"+id+"/xlsx?rfc=aaa", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reporte_gastos.xlsx")
}

func TestMalformedFilterIsRejected(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.ingestBatch(t)

	for _, path := range []string{"", "/pdf", "/xlsx", "/summary.json"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/reports/"+id+path+"?rfc=%zz", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestSummaryJSON(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.ingestBatch(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/reports/"+id+"/summary.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		BatchID    string `json:"batch_id"`
		Records    int    `json:"records"`
		GrandTotal string `json:"grand_total"`
		Tables     []struct {
			Title string     `json:"title"`
			Rows  [][]string `json:"rows"`
		} `json:"tables"`
		Chart []struct {
			Label string `json:"label"`
		} `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.BatchID)
	assert.Equal(t, 2, got.Records)
	assert.Equal(t, "348", got.GrandTotal)
	require.Len(t, got.Tables, 7)
	assert.Equal(t, [][]string{{"2024", "348.00"}}, got.Tables[0].Rows)
	require.Len(t, got.Chart, 2)
	assert.Equal(t, "2024-01", got.Chart[0].Label)
	assert.Equal(t, "2024-02", got.Chart[1].Label)
}

func TestUnknownBatch(t *testing.T) {
	env := newTestEnv(t, true)
	for _, path := range []string{"/reports/nope", "/reports/nope/pdf", "/reports/nope/summary.json"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.ingestBatch(t)

	form := url.Values{"rfc": {"AAA"}}
	req := httptest.NewRequest(http.MethodPost, "/reports/"+id+"/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "mem:"+id+":1")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "summary:exported")

	exports := env.exporter.Exports()
	require.Len(t, exports, 1)
	assert.Equal(t, [][]string{{"2024", "116.00"}}, exports[0].Tables[0].Rows)
}

func TestExportDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.ingestBatch(t)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/reports/"+id+"/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, env.exporter.Exports())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestBatch(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `facturas_documents_total{result="ok"} 2`)
}

func TestRequestIDIsKept(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", extractRequestID(req))

	req.Header.Set("X-Request-ID", "has space")
	assert.True(t, strings.HasPrefix(extractRequestID(req), "req_"))
}

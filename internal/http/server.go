package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facturas/internal/log"
	"facturas/internal/middleware/ratelimit"
	"facturas/internal/middleware/security"
	"facturas/internal/services"
	appweb "facturas/web"
)

// recentBatches is how many audit entries the index page lists.
const recentBatches = 20

// Dependencies are the services and limits the server runs with.
type Dependencies struct {
	Ingest  *services.IngestService
	Reports *services.ReportService

	// Exportable enables the export button and route.
	Exportable bool
	// Ready is polled by /readyz. nil means always ready.
	Ready func(ctx context.Context) error
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	Uploads   UploadLimits
	RateLimit ratelimit.Config
	Logger    *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	ingest    *services.IngestService
	reports   *services.ReportService
	limiter   *ratelimit.Limiter
	ready     func(ctx context.Context) error
	logger    *log.Logger

	uploads    UploadLimits
	exportable bool
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires every route.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		templates:  t,
		ingest:     deps.Ingest,
		reports:    deps.Reports,
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		ready:      deps.Ready,
		logger:     logger,
		uploads:    deps.Uploads,
		exportable: deps.Exportable,
		started:    time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	limit := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, extractClientIP(r))
		TooManyRequestsError("Demasiadas solicitudes, intente más tarde").Write(w)
	})

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /reports", limit(http.HandlerFunc(s.handleUpload)))
	mux.HandleFunc("GET /reports/{id}", s.handleReport)
	mux.Handle("GET /reports/{id}/pdf", security.NoStore(http.HandlerFunc(s.handlePDF)))
	mux.Handle("GET /reports/{id}/xlsx", security.NoStore(http.HandlerFunc(s.handleXLSX)))
	mux.Handle("GET /reports/{id}/summary.json", security.NoStore(http.HandlerFunc(s.handleSummaryJSON)))
	mux.Handle("POST /reports/{id}/export", limit(http.HandlerFunc(s.handleExport)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = log.AccessLog(extractClientIP)(handler)
	handler = log.RequestIDMiddleware(extractRequestID)(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"facturas/internal/backend"
	"facturas/internal/cache"
	"facturas/internal/cfdi"
	"facturas/internal/cli"
	apphttp "facturas/internal/http"
	"facturas/internal/log"
	"facturas/internal/metrics"
	"facturas/internal/middleware/ratelimit"
	"facturas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot, nil)
	logger := cli.SetupLogger(cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err,
			"audit", cfg.DataBackend, "export", cfg.ExportBackend)
		os.Exit(1)
	}
	be := result.Backend

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	batches := cache.NewLRUCache[*services.Batch](cfg.BatchCacheSize, cfg.BatchTTL)
	ingest := services.NewIngestService(
		cfdi.NewExtractor(cfdi.WithWorkers(cfg.ExtractWorkers)),
		batches, be.Audit, m, logger)
	reports := services.NewReportService(services.ReportOptions{
		Title:         cfg.ReportTitle,
		Exporter:      be.Exporter,
		ExportBackend: string(be.ExportBackend),
		Metrics:       m,
		Logger:        logger,
	})

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Ingest:     ingest,
		Reports:    reports,
		Exportable: be.Exporter != nil,
		Ready:      be.Ready,
		Gatherer:   registry,
		Uploads:    apphttp.UploadLimits{MaxBytes: cfg.MaxUploadBytes, MaxFiles: cfg.MaxFiles},
		RateLimit:  ratelimit.DefaultConfig(),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger, batches)
	go janitor.Run(ctx, time.Minute)

	logger.Info("Starting facturas server",
		"port", cfg.Port,
		"audit", cfg.DataBackend,
		"export", cfg.ExportBackend,
		"workers", cfg.ExtractWorkers)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	<-janitor.Done()
	logger.Info("Server stopped gracefully")
}

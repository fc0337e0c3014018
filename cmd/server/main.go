package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc_builder_app_go/config"
	"doc_builder_app_go/db"
	"doc_builder_app_go/handlers"
	"doc_builder_app_go/middleware"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/jobs"
	"doc_builder_app_go/services/logging"
	"doc_builder_app_go/services/metrics"
	"doc_builder_app_go/services/pagination"
	"doc_builder_app_go/services/tracing"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Controllers idle for longer than this are dropped by the cleanup job
const controllerIdleTimeout = 2 * time.Hour

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	provider, err := tracing.NewProvider(context.Background(), tracing.Config{
		Enabled:       cfg.TracingEnabled,
		Environment:   cfg.Environment,
		Endpoint:      cfg.TracingEndpoint,
		SamplingRatio: cfg.TracingSamplingRatio,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Initialize database
	if cfg.TursoDatabaseURL != "" {
		err = db.InitializeRemote(cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment)
	} else {
		err = db.Initialize(cfg.DBPath, cfg.Environment)
	}
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.Document{}, &models.LineItem{}, &models.DocumentExport{}); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	services.InitializeStorage(cfg)

	measurer, closeMeasurer := newMeasurer(cfg, logger)
	defer closeMeasurer()

	metricsCfg := metrics.Config{ServiceName: tracing.ServiceName, Environment: cfg.Environment}
	appMetrics := metrics.New(prometheus.DefaultRegisterer, metricsCfg)

	previewOpts := services.PreviewOptionsFromConfig(cfg)
	previewOpts.Observer = appMetrics
	preview := services.NewPreviewService(measurer, previewOpts, logger)
	defer preview.Close()
	metrics.RegisterControllerGauge(prometheus.DefaultRegisterer, metricsCfg, preview.Controllers)

	exports := services.NewExportService(db.DB, preview, services.Storage, services.NewPDFRenderer(cfg.ChromePath), cfg, logger)
	exports.SetMetrics(appMetrics)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Use(middleware.Tracing())

	// Make config and services available to handlers
	e.Use(handlers.WithServices(cfg, preview, exports))

	e.GET("/health", handlers.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Preview pages
	e.GET("/documents/:id/preview", handlers.PreviewHandler, middleware.PreviewCSP())

	api := e.Group("/api")
	api.Use(middleware.APIRateLimiter.Middleware())
	{
		api.POST("/documents", handlers.CreateDocumentHandler)
		api.GET("/documents/:id", handlers.GetDocumentHandler)
		api.PUT("/documents/:id", handlers.UpdateDocumentHandler)
		api.DELETE("/documents/:id", handlers.DeleteDocumentHandler)
		api.GET("/documents/:id/pagination", handlers.PaginationHandler)

		// Exports
		api.POST("/documents/:id/exports", handlers.CreateExportHandler, middleware.ExportRateLimiter.Middleware())
		api.GET("/documents/:id/exports", handlers.ListExportsHandler)
		api.GET("/documents/:id/exports/:exportId/download", handlers.DownloadExportHandler)
		api.POST("/documents/:id/exports/:exportId/send", handlers.SendExportHandler, middleware.SendRateLimiter.Middleware())

		// Bulk line items
		api.GET("/line-items/template", handlers.GetLineItemTemplateHandler)
		api.POST("/documents/:id/items/import", handlers.ImportLineItemsHandler, middleware.ImportRateLimiter.Middleware())
	}

	// Controller pruning and export retention
	scheduler, err := jobs.StartScheduler(db.DB, preview, services.Storage, jobs.SchedulerOptions{
		ControllerIdle:  controllerIdleTimeout,
		ExportRetention: time.Duration(cfg.ExportRetentionDays) * 24 * time.Hour,
		Metrics:         appMetrics,
	}, logger)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// Start server
	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("measure_engine", cfg.MeasureEngine))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("tracer provider shutdown failed", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}

// newMeasurer picks the measurement engine. Chrome falls back to the markup
// estimator when the browser cannot be started.
func newMeasurer(cfg *config.Config, logger *zap.Logger) (pagination.Measurer, func()) {
	if cfg.MeasureEngine == config.MeasureEngineChrome {
		chrome, err := services.NewChromeMeasurer(cfg.ChromePath, cfg.MeasureConcurrency, logger)
		if err == nil {
			return chrome, chrome.Close
		}
		logger.Warn("chrome measurer unavailable, using markup estimator", zap.Error(err))
	}
	return services.NewMarkupEstimator(services.DefaultEstimatorOptions()), func() {}
}

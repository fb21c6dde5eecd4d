// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakamer71/owl-ocr/cmd/owl-ocr-api/handlers"
	"github.com/sakamer71/owl-ocr/cmd/owl-ocr-api/middleware"
	"github.com/sakamer71/owl-ocr/internal/config"
	"github.com/sakamer71/owl-ocr/internal/extract"
	"github.com/sakamer71/owl-ocr/internal/jobs"
	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/metrics"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/service"
	"github.com/sakamer71/owl-ocr/internal/worker"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(cfg *config.Config, store jobstore.Store, logger *observability.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Security.CORSOrigins))
	r.Use(middleware.Security(middleware.SecurityConfig{
		RateLimitEnabled:     cfg.Security.RateLimitEnabled,
		RateLimitWindow:      cfg.Security.RateLimitWindow,
		RateLimitMaxRequests: cfg.Security.RateLimitMaxRequests,
	}))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware)
	}
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Wire the extraction capabilities from the configured commands
	registry := extract.NewRegistry()
	commands := map[jobs.FileType][]string{
		jobs.FileTypeImage: cfg.Extract.ImageCommand,
		jobs.FileTypePDF:   cfg.Extract.PDFCommand,
		jobs.FileTypePPTX:  cfg.Extract.PPTXCommand,
	}
	for fileType, argv := range commands {
		capability, err := extract.NewCommandCapability(argv, logger)
		if err != nil {
			logger.Error().Err(err).Str("file_type", string(fileType)).Msg("Skipping extractor registration")
			continue
		}
		registry.Register(fileType, capability)
	}

	dispatcher := worker.NewDispatcher(store, registry, worker.Config{OutputDir: cfg.Jobs.OutputDir}, logger)
	svc := service.NewJobService(store, dispatcher, logger)

	processHandler := handlers.NewProcessHandler(logger, svc, cfg.Jobs.UploadDir)
	jobsHandler := handlers.NewJobsHandler(logger, svc)
	healthHandler := handlers.NewHealthHandler(logger, store)

	r.Get("/", healthHandler.Root)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Post("/process", processHandler.Process)
		r.Post("/process/image", processHandler.ProcessImage)
		r.Post("/process/pdf", processHandler.ProcessPDF)
		r.Post("/process/pptx", processHandler.ProcessPPTX)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/cleanup", jobsHandler.Cleanup)
			r.Get("/{jobID}", jobsHandler.GetJob)
			r.Get("/{jobID}/result", jobsHandler.GetResult)
			r.Delete("/{jobID}", jobsHandler.DeleteJob)
		})
	})

	return r
}

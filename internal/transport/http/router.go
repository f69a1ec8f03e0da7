package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apierrors "probereport/internal/errors"
	"probereport/internal/middleware"
)

// RouterConfig carries the collaborators of the report browser router
type RouterConfig struct {
	Logger       *slog.Logger
	ErrorHandler *apierrors.ErrorHandler
	Datasets     DatasetServiceInterface
	Health       *HealthHandler
	OutputDir    string
	Metrics      http.Handler
	Tracer       trace.Tracer
	Meter        metric.Meter
	RateLimit    float64
	Burst        int
}

// NewRouter assembles middleware and routes
func NewRouter(cfg RouterConfig) (chi.Router, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}

	otelMW, err := middleware.NewOTelMiddleware(cfg.Tracer, cfg.Meter)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(otelMW.Handler)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(errorHandler))
	r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.Burst, logger).Handler)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.HealthCheck)
		r.Get("/readyz", cfg.Health.ReadinessCheck)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Datasets != nil {
		r.Mount("/api/datasets", NewDatasetHandler(cfg.Datasets, logger, errorHandler).Routes())
	}
	if cfg.OutputDir != "" {
		r.Get("/charts/*", chartServer(cfg.OutputDir, errorHandler))
	}

	return r, nil
}

// chartServer serves rendered files without directory listings
func chartServer(dir string, errorHandler *apierrors.ErrorHandler) http.HandlerFunc {
	fs := http.StripPrefix("/charts", http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			errorHandler.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	}
}

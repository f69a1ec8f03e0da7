package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"probereport/internal/config"
	apperrors "probereport/internal/errors"
	"probereport/internal/infrastructure"
	"probereport/internal/report"
	"probereport/internal/services"
	handlers "probereport/internal/transport/http"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Application is the report browser
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Pipeline      *report.Pipeline
	Datasets      *services.DatasetService
	Health        *services.HealthService
	Router        chi.Router
	Server        *http.Server
}

// NewApplication builds the datasets described by cfg and wires the HTTP
// server around them. Any dataset failure is fatal.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if len(cfg.Datasets) == 0 {
		return nil, apperrors.NewConfigError("no datasets configured", nil)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Pipeline: report.NewPipeline(cfg,
			report.WithTracer(providers.Tracer),
			report.WithMetrics(metrics),
			report.WithLogger(logger)),
	}

	if err := a.initializeServices(ctx); err != nil {
		return nil, err
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices(ctx context.Context) error {
	start := time.Now()
	datasets, err := services.LoadDatasetService(ctx, a.Pipeline, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.Datasets = datasets
	a.Health = services.NewHealthService(config.AppVersion, config.NewPaths(a.Config), datasets, a.Logger)

	a.Logger.InfoContext(ctx, "Datasets loaded",
		slog.Int("datasets", datasets.Count()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (a *Application) setupRouter() error {
	r, err := handlers.NewRouter(handlers.RouterConfig{
		Logger:       a.Logger,
		ErrorHandler: apperrors.NewErrorHandler(a.Logger, false),
		Datasets:     a.Datasets,
		Health:       handlers.NewHealthHandler(a.Health, a.Logger),
		OutputDir:    a.Config.OutputDir,
		Metrics:      a.OTelProviders.PrometheusHTTP,
		Tracer:       a.OTelProviders.Tracer,
		Meter:        a.OTelProviders.Meter,
		RateLimit:    a.Config.Server.RateLimit,
		Burst:        a.Config.Server.Burst,
	})
	if err != nil {
		return err
	}
	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Start serves in the background. A listener failure cancels ctx via cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting report browser",
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("output_dir", a.Config.OutputDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down report browser")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Shutdown complete")
	return nil
}

// Run serves until interrupted or the listener fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(ctx)
}

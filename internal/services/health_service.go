package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"probereport/internal/config"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// DatasetCounter reports how many datasets are being served
type DatasetCounter interface {
	Count() int
}

// HealthService provides liveness and readiness checks for the report browser
type HealthService struct {
	version   string
	paths     *config.Paths
	datasets  DatasetCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service
func NewHealthService(version string, paths *config.Paths, datasets DatasetCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		datasets:  datasets,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns liveness with basic runtime information
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports ready once datasets are loaded and the output
// directory is reachable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"datasets": hs.checkDatasets(),
			"output":   hs.checkOutputDir(),
		},
	}

	for _, svc := range status.Services {
		if sh, ok := svc.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "Readiness check failed", slog.Any("services", status.Services))
	}
	return status
}

func (hs *HealthService) checkDatasets() ServiceHealth {
	if hs.datasets == nil || hs.datasets.Count() == 0 {
		return ServiceHealth{Status: "not_ready", Message: "no datasets loaded"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkOutputDir() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "ready", Message: "no output directory configured"}
	}
	info, err := os.Stat(hs.paths.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			// Charts are optional for browsing.
			return ServiceHealth{Status: "ready", Message: "output directory not created yet"}
		}
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: "output path is not a directory"}
	}
	return ServiceHealth{Status: "ready"}
}

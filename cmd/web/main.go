package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"probereport/internal/app"
	"probereport/internal/config"
	"probereport/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	port := flag.Int("port", 0, "listen port (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureTraceID(context.Background())

	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.ErrorContext(ctx, "Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

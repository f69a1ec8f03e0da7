// Command plotreport aggregates probe measurement files into combined
// datasets, derives the tombstone and sqrt columns, exports them and renders
// the chart catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"probereport/internal/config"
	apperrors "probereport/internal/errors"
	"probereport/internal/infrastructure"
	"probereport/internal/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("plotreport failed",
			slog.String("error", err.Error()),
			slog.String("error_type", string(apperrors.TypeOf(err))))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	infrastructure.CloseLogFile()
}

// options holds the command-line flags
type options struct {
	configPath string
	name       string
	root       string
	pattern    string
	schema     string
	outDir     string
	noCharts   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("plotreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	fs.StringVar(&opts.name, "name", "", "name of the ad-hoc dataset (defaults to the root directory name)")
	fs.StringVar(&opts.root, "root", "", "directory holding the input files (describes an ad-hoc dataset)")
	fs.StringVar(&opts.pattern, "pattern", "", "glob matched against file names under -root")
	fs.StringVar(&opts.schema, "schema", "", "input schema: auto, v1, v2 or v3")
	fs.StringVar(&opts.outDir, "out", "", "output directory for exports and charts")
	fs.BoolVar(&opts.noCharts, "no-charts", false, "skip chart rendering")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// apply overlays the flags onto cfg. -root or -pattern replaces the configured
// datasets with a single ad-hoc one.
func (o *options) apply(cfg *config.Config) error {
	if o.root != "" || o.pattern != "" {
		root := o.root
		if root == "" {
			root = config.DefaultRoot
		}
		pattern := o.pattern
		if pattern == "" {
			pattern = config.DefaultPattern
		}
		name := o.name
		if name == "" {
			name = filepath.Base(filepath.Clean(root))
			if name == "." || name == string(filepath.Separator) {
				name = "adhoc"
			}
		}
		cfg.Datasets = []config.DatasetConfig{config.NewDatasetConfig(name, root, pattern)}
	}
	if o.schema != "" {
		for i := range cfg.Datasets {
			cfg.Datasets[i].Schema = o.schema
		}
	}
	if o.outDir != "" {
		cfg.OutputDir = o.outDir
	}
	if o.noCharts {
		cfg.Render.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return apperrors.NewConfigError("invalid options", err)
	}
	return nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return apperrors.NewConfigError("invalid arguments", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return apperrors.NewConfigError("failed to load configuration", err)
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize logger", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize telemetry", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	logger.InfoContext(ctx, "Starting plotreport",
		slog.String("version", config.AppVersion),
		slog.Int("datasets", len(cfg.Datasets)),
		slog.String("output_dir", cfg.OutputDir),
		slog.Bool("charts", cfg.Render.Enabled))

	pipeline := report.NewPipeline(cfg,
		report.WithTracer(providers.Tracer),
		report.WithMetrics(metrics),
		report.WithLogger(logger))

	results, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsFile != "" {
		if err := providers.WriteMetricsFile(cfg.Telemetry.MetricsFile); err != nil {
			return apperrors.NewStorageError("failed to write metrics file", err)
		}
	}

	printSummary(stdout, results)
	return nil
}

func printSummary(w io.Writer, results []*report.Result) {
	for _, res := range results {
		fmt.Fprintf(w, "%s: %d files, %d rows, %d exports, %d charts",
			res.Name, len(res.Files), res.Dataset.Len(), len(res.Exports), len(res.Charts))
		if len(res.Skipped) > 0 {
			fmt.Fprintf(w, " (%d skipped)", len(res.Skipped))
		}
		fmt.Fprintln(w)
	}
}

package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"probereport/internal/chart"
	"probereport/internal/config"
	"probereport/internal/dataset"
	apperrors "probereport/internal/errors"
	"probereport/internal/exporter"
	"probereport/internal/files"
	"probereport/internal/infrastructure"
)

// Stage names, also used as span names and metric attributes
const (
	StageDiscover  = "discover"
	StageAggregate = "aggregate"
	StageDerive    = "derive"
	StageExport    = "export"
	StageRender    = "render"
)

// Result describes what the pipeline produced for one dataset
type Result struct {
	Name      string
	Dataset   *dataset.Dataset
	Files     []files.FileInfo
	NonFinite map[string]int
	Exports   []string
	Charts    []chart.Result
	Skipped   []string
}

// Pipeline runs the configured datasets
type Pipeline struct {
	cfg      *config.Config
	manager  *files.Manager
	exporter *exporter.DatasetExporter
	renderer chart.Renderer
	tracer   trace.Tracer
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRenderer replaces the gonum/plot renderer
func WithRenderer(r chart.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithTracer sets the tracer used for stage spans
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithMetrics sets the instruments stages record into
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline for cfg
func NewPipeline(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		tracer: otel.Tracer(infrastructure.MeterName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger = infrastructure.WithComponent(p.logger, "report")
	p.manager = files.NewManager(config.NewPaths(cfg)).WithLogger(p.logger)
	p.exporter = exporter.NewDatasetExporter(p.manager)
	if p.renderer == nil {
		p.renderer = chart.NewPlotRenderer(p.manager)
	}
	return p
}

// Manager returns the output file manager
func (p *Pipeline) Manager() *files.Manager {
	return p.manager
}

// Run processes every configured dataset in order
func (p *Pipeline) Run(ctx context.Context) ([]*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)

	if len(p.cfg.Datasets) == 0 {
		return nil, apperrors.NewConfigError("no datasets configured", nil)
	}
	for _, dc := range p.cfg.Datasets {
		if _, err := ChartSpecs(dc); err != nil {
			return nil, err
		}
	}

	names := make([]string, len(p.cfg.Datasets))
	for i, dc := range p.cfg.Datasets {
		names[i] = dc.Name
	}
	if err := config.NewPaths(p.cfg).EnsureDirectories(names...); err != nil {
		return nil, apperrors.NewStorageError("failed to prepare output directory", err)
	}

	results := make([]*Result, 0, len(p.cfg.Datasets))
	for _, dc := range p.cfg.Datasets {
		res, err := p.RunDataset(ctx, dc)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Build discovers, aggregates and derives one dataset without writing anything
func (p *Pipeline) Build(ctx context.Context, dc config.DatasetConfig) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.tracer.Start(ctx, "report.dataset",
		trace.WithAttributes(attribute.String("dataset", dc.Name)))
	defer span.End()

	res, err := p.build(ctx, dc)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return res, err
}

func (p *Pipeline) build(ctx context.Context, dc config.DatasetConfig) (*Result, error) {
	res := &Result{Name: dc.Name}

	schema, err := dataset.LookupSchema(dc.Schema)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid schema", err).WithContext("dataset", dc.Name)
	}

	err = p.stage(ctx, dc.Name, StageDiscover, func(ctx context.Context) error {
		found, err := files.Discover(dc.Root, dc.Pattern)
		if err != nil {
			return err
		}
		res.Files = found
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"files": len(found)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var combined *dataset.Dataset
	err = p.stage(ctx, dc.Name, StageAggregate, func(ctx context.Context) error {
		ds, err := dataset.NewAggregator(dc.Name, schema).Aggregate(files.Paths(res.Files))
		if err != nil {
			return err
		}
		combined = ds
		p.metrics.AddFiles(ctx, dc.Name, len(res.Files))
		p.metrics.AddRows(ctx, dc.Name, ds.Len())
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{"rows": ds.Len()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, dc.Name, StageDerive, func(ctx context.Context) error {
		derived, stats, err := dataset.DeriveColumns(combined, dataset.NonFinitePolicy(dc.NonFinite))
		if err != nil {
			return err
		}
		res.Dataset = derived
		res.NonFinite = stats.NonFinite
		for col, n := range stats.NonFinite {
			p.metrics.AddNonFinite(ctx, dc.Name, col, n)
		}
		if total := stats.Total(); total > 0 {
			p.logger.WarnContext(ctx, "Derived columns contain non-finite values",
				slog.String("dataset", dc.Name),
				slog.Int("tombstones", stats.NonFinite[dataset.ColTombstones]),
				slog.Int("sqrt_unsuccessful", stats.NonFinite[dataset.ColSqrtUnsuccessful]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dc.SortBy != "" {
		sorted, err := res.Dataset.SortBy(dc.SortBy)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid sort column", err).WithContext("dataset", dc.Name)
		}
		res.Dataset = sorted
	}

	return res, nil
}

// RunDataset builds one dataset, exports it and renders its charts
func (p *Pipeline) RunDataset(ctx context.Context, dc config.DatasetConfig) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.tracer.Start(ctx, "report.dataset",
		trace.WithAttributes(attribute.String("dataset", dc.Name)))
	defer span.End()

	start := time.Now()
	res, err := p.runDataset(ctx, dc)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	p.logger.InfoContext(ctx, "Dataset complete",
		slog.String("dataset", dc.Name),
		slog.Int("files", len(res.Files)),
		slog.Int("rows", res.Dataset.Len()),
		slog.Int("charts", len(res.Charts)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (p *Pipeline) runDataset(ctx context.Context, dc config.DatasetConfig) (*Result, error) {
	res, err := p.build(ctx, dc)
	if err != nil {
		return nil, err
	}

	// Charts are resolved before the export so a chart that cannot be
	// drawn fails the dataset with nothing written.
	var specs []chart.Spec
	if p.cfg.Render.Enabled {
		specs, err = p.resolveCharts(ctx, dc, res)
		if err != nil {
			return nil, err
		}
	}

	err = p.stage(ctx, dc.Name, StageExport, func(ctx context.Context) error {
		if dc.Export.CSV {
			if err := p.exporter.ExportCSV(res.Dataset); err != nil {
				return err
			}
			res.Exports = append(res.Exports, exporter.CSVPath(res.Dataset))
		}
		if dc.Export.XLSX {
			if err := p.exporter.ExportXLSX(res.Dataset); err != nil {
				return err
			}
			res.Exports = append(res.Exports, exporter.XLSXPath(res.Dataset))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !p.cfg.Render.Enabled {
		return res, nil
	}

	err = p.stage(ctx, dc.Name, StageRender, func(ctx context.Context) error {
		charts, err := chart.RenderAll(ctx, p.renderer, res.Dataset, specs, chart.StyleFromConfig(p.cfg.Render), p.cfg.Render.Workers)
		if err != nil {
			return err
		}
		res.Charts = charts
		for range charts {
			p.metrics.AddChart(ctx, dc.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// ChartSpecs converts and validates the configured charts of a dataset. An
// empty list means the built-in catalog, which is resolved once the dataset
// is built.
func ChartSpecs(dc config.DatasetConfig) ([]chart.Spec, error) {
	specs := make([]chart.Spec, 0, len(dc.Charts))
	outputs := make(map[string]string)
	for _, cc := range dc.Charts {
		spec := chart.FromConfig(cc)
		if err := spec.Validate(); err != nil {
			return nil, apperrors.NewConfigError("invalid chart", err).WithContext("dataset", dc.Name)
		}
		if prev, ok := outputs[spec.Output]; ok {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("charts %s and %s write the same output %s", prev, spec.Name, spec.Output), nil).
				WithContext("dataset", dc.Name)
		}
		outputs[spec.Output] = spec.Name
		specs = append(specs, spec)
	}
	return specs, nil
}

// resolveCharts returns the charts to draw for res. Configured charts must
// all be drawable. Catalog charts missing a column or left without points
// are recorded in res.Skipped.
func (p *Pipeline) resolveCharts(ctx context.Context, dc config.DatasetConfig, res *Result) ([]chart.Spec, error) {
	if len(dc.Charts) > 0 {
		specs, err := ChartSpecs(dc)
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			if _, err := chart.Prepare(res.Dataset, spec); err != nil {
				return nil, err
			}
		}
		return specs, nil
	}

	var keep []chart.Spec
	for _, spec := range chart.CatalogFor(res.Dataset) {
		if !spec.Applicable(res.Dataset) {
			res.Skipped = append(res.Skipped, spec.Name)
			p.logger.DebugContext(ctx, "Skipping catalog chart with missing columns",
				slog.String("dataset", dc.Name),
				slog.String("chart", spec.Name))
			continue
		}
		if _, err := chart.Prepare(res.Dataset, spec); err != nil {
			if !errors.Is(err, chart.ErrNoPoints) {
				return nil, err
			}
			res.Skipped = append(res.Skipped, spec.Name)
			p.logger.WarnContext(ctx, "Skipping catalog chart without plottable points",
				slog.String("dataset", dc.Name),
				slog.String("chart", spec.Name))
			continue
		}
		keep = append(keep, spec)
	}
	return keep, nil
}

// stage runs fn inside a span, logs its duration and records it
func (p *Pipeline) stage(ctx context.Context, datasetName, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "report."+name,
		trace.WithAttributes(
			attribute.String("dataset", datasetName),
			attribute.String("stage", name),
		))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	p.metrics.RecordStage(ctx, datasetName, name, elapsed, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.logger.ErrorContext(ctx, "Stage failed",
			slog.String("dataset", datasetName),
			slog.String("stage", name),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		return err
	}

	p.logger.InfoContext(ctx, "Stage complete",
		slog.String("dataset", datasetName),
		slog.String("stage", name),
		slog.Duration("duration", elapsed))
	return nil
}

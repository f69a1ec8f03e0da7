package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments recorded by a report run.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	FilesParsed     metric.Int64Counter
	RowsAggregated  metric.Int64Counter
	NonFiniteValues metric.Int64Counter
	ChartsRendered  metric.Int64Counter
	StageDuration   metric.Float64Histogram
	StageErrors     metric.Int64Counter
}

// NewPipelineMetrics creates the report instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	filesParsed, err := meter.Int64Counter(
		"probereport_files_parsed_total",
		metric.WithDescription("Input files parsed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create files counter: %w", err)
	}

	rowsAggregated, err := meter.Int64Counter(
		"probereport_rows_aggregated_total",
		metric.WithDescription("Data rows concatenated into datasets"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}

	nonFinite, err := meter.Int64Counter(
		"probereport_non_finite_values_total",
		metric.WithDescription("Derived values that came out NaN or infinite"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create non-finite counter: %w", err)
	}

	charts, err := meter.Int64Counter(
		"probereport_charts_rendered_total",
		metric.WithDescription("Chart files written"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create charts counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram(
		"probereport_stage_duration_seconds",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage histogram: %w", err)
	}

	stageErrors, err := meter.Int64Counter(
		"probereport_stage_errors_total",
		metric.WithDescription("Pipeline stages that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage error counter: %w", err)
	}

	return &PipelineMetrics{
		FilesParsed:     filesParsed,
		RowsAggregated:  rowsAggregated,
		NonFiniteValues: nonFinite,
		ChartsRendered:  charts,
		StageDuration:   stageDuration,
		StageErrors:     stageErrors,
	}, nil
}

// RecordStage records one stage execution for a dataset
func (m *PipelineMetrics) RecordStage(ctx context.Context, dataset, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("stage", stage),
	)
	m.StageDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.StageErrors.Add(ctx, 1, attrs)
	}
}

// AddFiles counts parsed files for a dataset
func (m *PipelineMetrics) AddFiles(ctx context.Context, dataset string, n int) {
	if m == nil {
		return
	}
	m.FilesParsed.Add(ctx, int64(n), metric.WithAttributes(attribute.String("dataset", dataset)))
}

// AddRows counts aggregated rows for a dataset
func (m *PipelineMetrics) AddRows(ctx context.Context, dataset string, n int) {
	if m == nil {
		return
	}
	m.RowsAggregated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("dataset", dataset)))
}

// AddNonFinite counts non-finite derived values per column
func (m *PipelineMetrics) AddNonFinite(ctx context.Context, dataset, column string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NonFiniteValues.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("column", column),
	))
}

// AddChart counts a rendered chart
func (m *PipelineMetrics) AddChart(ctx context.Context, dataset string) {
	if m == nil {
		return
	}
	m.ChartsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("dataset", dataset)))
}

// Package report runs the batch reporting pipeline.
//
// For every configured dataset the pipeline discovers the input files,
// aggregates them, derives the computed columns, exports the combined
// dataset and renders its charts. Each stage runs inside an OpenTelemetry
// span, is timed into the stage duration histogram and logged. The first
// error ends the run; nothing is retried.
package report

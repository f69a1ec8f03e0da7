// Package chart describes and renders the report charts.
//
// A Spec names the x and y columns, an optional grouping column, the chart
// kind, axis options, row filters and the output file. Specs come from
// configuration or from the built-in catalog for a schema version.
// BuildSeries turns a dataset and a Spec into plot-ready series; Renderer
// draws them. The default Renderer uses gonum/plot and writes through
// files.Manager.
//
// Style carries the image size and format explicitly; there is no package
// level plotting state.
package chart

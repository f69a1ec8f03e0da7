// Package config provides centralized configuration management for probereport.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources winning:
//
//  1. Default values (Default())
//  2. YAML configuration file
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern PROBE_* for namespacing:
//
//	PROBE_OUTPUT_DIR=plots
//	PROBE_LOGGING_LEVEL=debug
//	PROBE_RENDER_WORKERS=4
//	PROBE_TELEMETRY_METRICS_FILE=metrics/plotreport.prom
//
// Datasets can only be declared in the YAML file (or with CLI flags for a
// single ad-hoc dataset).
//
// # Datasets
//
// Each dataset names a root directory and a glob pattern relative to it:
//
//	datasets:
//	  - name: v3
//	    root: plot_data/v3
//	    pattern: "*plot.txt"
//	    schema: v3
//
// # Validation
//
// All configuration is validated at load time with go-playground/validator
// struct tags; dataset names must be unique.
package config

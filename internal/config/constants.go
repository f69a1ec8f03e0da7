package config

// Application constants
const (
	AppName    = "probereport"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces all environment overrides (PROBE_OUTPUT_DIR, ...)
	EnvPrefix = "PROBE"

	DefaultConfigFile = "probereport.yaml"
	DefaultOutputDir  = "plots"
	DefaultLogsDir    = "logs"
	DefaultRoot       = "."
	DefaultPattern    = "*.txt"
	DefaultLogLevel   = "info"

	// Render defaults, inches
	DefaultChartWidth  = 8.0
	DefaultChartHeight = 5.0
	DefaultChartFormat = "png"

	// Schema selectors accepted in configuration
	SchemaAuto = "auto"
	SchemaV1   = "v1"
	SchemaV2   = "v2"
	SchemaV3   = "v3"

	// Non-finite derived value policies
	NonFinitePropagate = "propagate"
	NonFiniteReject    = "reject"

	// Export file names inside a dataset's output directory
	CombinedCSVName  = "combined.csv"
	CombinedXLSXName = "combined.xlsx"
)

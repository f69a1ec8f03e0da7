package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	OutputDir string          `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Datasets  []DatasetConfig `yaml:"datasets" ignored:"true" validate:"dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig selects tracing and metrics outputs
type TelemetryConfig struct {
	Tracing     string `yaml:"tracing" envconfig:"TRACING" validate:"oneof=none stdout"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// RenderConfig is the explicit chart style shared by every chart of a run
type RenderConfig struct {
	Enabled  bool    `yaml:"enabled" envconfig:"ENABLED"`
	Workers  int     `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	WidthIn  float64 `yaml:"width_in" envconfig:"WIDTH_IN" validate:"gt=0"`
	HeightIn float64 `yaml:"height_in" envconfig:"HEIGHT_IN" validate:"gt=0"`
	Format   string  `yaml:"format" envconfig:"FORMAT" validate:"oneof=png svg pdf"`
}

// ServerConfig contains report browser configuration
type ServerConfig struct {
	Port      int     `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"`
	Burst     int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// DatasetConfig describes one aggregated dataset and the charts drawn from it
type DatasetConfig struct {
	Name      string        `yaml:"name" validate:"required,excludesall=/"`
	Root      string        `yaml:"root" validate:"required"`
	Pattern   string        `yaml:"pattern" validate:"required"`
	Schema    string        `yaml:"schema" validate:"oneof=auto v1 v2 v3"`
	NonFinite string        `yaml:"non_finite" validate:"oneof=propagate reject"`
	SortBy    string        `yaml:"sort_by"`
	Export    ExportConfig  `yaml:"export"`
	Charts    []ChartConfig `yaml:"charts" validate:"dive"`
}

// ExportConfig toggles the combined dataset writers
type ExportConfig struct {
	CSV  bool `yaml:"csv"`
	XLSX bool `yaml:"xlsx"`
}

// ChartConfig is the YAML form of a chart specification
type ChartConfig struct {
	Name      string         `yaml:"name" validate:"required"`
	X         string         `yaml:"x" validate:"required"`
	Y         string         `yaml:"y" validate:"required"`
	Group     string         `yaml:"group"`
	Kind      string         `yaml:"kind" validate:"omitempty,oneof=line scatter"`
	Title     string         `yaml:"title"`
	XLabel    string         `yaml:"x_label"`
	YLabel    string         `yaml:"y_label"`
	YScale    string         `yaml:"y_scale" validate:"omitempty,oneof=linear log"`
	XReversed bool           `yaml:"x_reversed"`
	Filters   []FilterConfig `yaml:"filters" validate:"dive"`
	Output    string         `yaml:"output" validate:"required"`
}

// FilterConfig is a single "column op value" row predicate
type FilterConfig struct {
	Column string `yaml:"column" validate:"required"`
	Op     string `yaml:"op" validate:"oneof=== != < <= > >="`
	Value  string `yaml:"value"`
}

// Load loads configuration from the given YAML file (or the first default
// location that exists) and applies PROBE_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDatasetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyDatasetDefaults fills optional dataset fields left empty in YAML
func (c *Config) applyDatasetDefaults() {
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.Root == "" {
			ds.Root = DefaultRoot
		}
		if ds.Pattern == "" {
			ds.Pattern = DefaultPattern
		}
		if ds.Schema == "" {
			ds.Schema = SchemaAuto
		}
		if ds.NonFinite == "" {
			ds.NonFinite = NonFinitePropagate
		}
	}
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	seen := make(map[string]bool, len(c.Datasets))
	for _, ds := range c.Datasets {
		if seen[ds.Name] {
			return fmt.Errorf("duplicate dataset name %q", ds.Name)
		}
		seen[ds.Name] = true
	}

	return nil
}

// Dataset returns the dataset configuration with the given name
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		DefaultConfigFile,
		"configs/" + DefaultConfigFile,
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: DefaultLogsDir + "/" + AppName + ".log",
		},
		Telemetry: TelemetryConfig{
			Tracing: "none",
		},
		Render: RenderConfig{
			Enabled:  true,
			Workers:  1,
			WidthIn:  DefaultChartWidth,
			HeightIn: DefaultChartHeight,
			Format:   DefaultChartFormat,
		},
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 50,
			Burst:     100,
		},
		OutputDir: DefaultOutputDir,
	}
}

// NewDatasetConfig returns a dataset configuration with defaults applied
func NewDatasetConfig(name, root, pattern string) DatasetConfig {
	ds := DatasetConfig{
		Name:    name,
		Root:    root,
		Pattern: pattern,
		Export:  ExportConfig{CSV: true},
	}
	c := Config{Datasets: []DatasetConfig{ds}}
	c.applyDatasetDefaults()
	return c.Datasets[0]
}

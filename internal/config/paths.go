package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves every output location of a run from the configured output directory
type Paths struct {
	OutputDir string
	LogsDir   string
}

// NewPaths builds Paths for a configuration
func NewPaths(cfg *Config) *Paths {
	logsDir := DefaultLogsDir
	if cfg.Logging.FilePath != "" {
		logsDir = filepath.Dir(cfg.Logging.FilePath)
	}
	return &Paths{
		OutputDir: cfg.OutputDir,
		LogsDir:   logsDir,
	}
}

// DatasetDir returns the directory holding all outputs of one dataset
func (p *Paths) DatasetDir(dataset string) string {
	return filepath.Join(p.OutputDir, dataset)
}

// ChartPath returns the file path of a rendered chart
func (p *Paths) ChartPath(dataset, filename string) string {
	return filepath.Join(p.DatasetDir(dataset), filename)
}

// ExportPath returns the file path of a dataset export
func (p *Paths) ExportPath(dataset, filename string) string {
	return filepath.Join(p.DatasetDir(dataset), filename)
}

// EnsureDirectories creates the output directory and one subdirectory per dataset
func (p *Paths) EnsureDirectories(datasets ...string) error {
	dirs := []string{p.OutputDir}
	for _, name := range datasets {
		dirs = append(dirs, p.DatasetDir(name))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

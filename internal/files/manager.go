package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"probereport/internal/config"
	apperrors "probereport/internal/errors"
)

// Manager writes and lists report outputs below the configured output directory
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths, logger: slog.Default()}
}

// WithLogger returns a copy of the manager that logs to logger
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	return &Manager{paths: m.paths, logger: logger}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	m.logger.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// WriteFile writes data to path through a temporary file in the same
// directory, so readers never observe a partially written output.
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temporary file", err).WithContext("path", fullPath)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to write file", err).WithContext("path", fullPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to close file", err).WithContext("path", fullPath)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to set file mode", err).WithContext("path", fullPath)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to move file into place", err).WithContext("path", fullPath)
	}

	m.logger.Info("Wrote file",
		slog.String("path", fullPath),
		slog.Int("size_bytes", len(data)))

	return nil
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(m.resolvePath(path))
}

// ListFiles returns the names of the regular files in a directory, sorted.
// Hidden files (including in-flight temporaries) are skipped.
func (m *Manager) ListFiles(dir string) ([]string, error) {
	fullPath := m.resolvePath(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", fullPath, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

// resolvePath resolves a path relative to the output directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.paths.OutputDir, path)
}

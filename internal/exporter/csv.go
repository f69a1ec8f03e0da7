package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"

	"probereport/internal/files"
)

// utf8BOM helps Excel recognise UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	manager *files.Manager
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(manager *files.Manager) *CSVWriter {
	return &CSVWriter{manager: manager}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// Encode renders headers and records as CSV bytes
func Encode(options WriteOptions) ([]byte, error) {
	var buf bytes.Buffer

	if options.BOMPrefix {
		buf.Write(utf8BOM)
	}

	writer := csv.NewWriter(&buf)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes a CSV file relative to the output directory
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	data, err := Encode(options)
	if err != nil {
		return err
	}
	return w.manager.WriteFile(filePath, data)
}

// WriteSimpleCSV writes a CSV file with headers and records and no BOM
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

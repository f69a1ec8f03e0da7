package exporter

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"probereport/internal/config"
	"probereport/internal/dataset"
	apperrors "probereport/internal/errors"
	"probereport/internal/files"
)

// Sheet names of the xlsx export
const (
	DataSheet  = "data"
	FilesSheet = "files"
)

// DatasetExporter writes combined datasets below the output directory
type DatasetExporter struct {
	manager *files.Manager
	csv     *CSVWriter
}

// NewDatasetExporter creates an exporter writing through manager
func NewDatasetExporter(manager *files.Manager) *DatasetExporter {
	return &DatasetExporter{manager: manager, csv: NewCSVWriter(manager)}
}

// CSVPath returns the output-relative path of a dataset's CSV export
func CSVPath(ds *dataset.Dataset) string {
	return filepath.Join(ds.Name, config.CombinedCSVName)
}

// XLSXPath returns the output-relative path of a dataset's xlsx export
func XLSXPath(ds *dataset.Dataset) string {
	return filepath.Join(ds.Name, config.CombinedXLSXName)
}

// ExportCSV writes <dataset>/combined.csv
func (e *DatasetExporter) ExportCSV(ds *dataset.Dataset) error {
	records := make([][]string, len(ds.Rows))
	for i, row := range ds.Rows {
		records[i] = formatRecord(row, ds.Columns)
	}

	if err := e.csv.WriteSimpleCSV(CSVPath(ds), headers(ds), records); err != nil {
		return apperrors.NewStorageError("failed to export csv", err).WithContext("dataset", ds.Name)
	}
	return nil
}

// ExportXLSX writes <dataset>/combined.xlsx with the rows on the data sheet
// and per-file provenance on the files sheet
func (e *DatasetExporter) ExportXLSX(ds *dataset.Dataset) error {
	data, err := BuildWorkbook(ds)
	if err != nil {
		return apperrors.NewStorageError("failed to build workbook", err).WithContext("dataset", ds.Name)
	}
	if err := e.manager.WriteFile(XLSXPath(ds), data); err != nil {
		return apperrors.NewStorageError("failed to export xlsx", err).WithContext("dataset", ds.Name)
	}
	return nil
}

// BuildWorkbook renders ds as xlsx bytes
func BuildWorkbook(ds *dataset.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return nil, err
	}

	header := headers(ds)
	if err := setRow(f, DataSheet, 1, toRow(header)); err != nil {
		return nil, err
	}
	for i, row := range ds.Rows {
		values := make([]interface{}, 0, len(header))
		values = append(values, row.Description, row.Filename)
		for _, c := range ds.Columns {
			values = append(values, cellValue(row, c))
		}
		if err := setRow(f, DataSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(FilesSheet); err != nil {
		return nil, err
	}
	if err := setRow(f, FilesSheet, 1, toRow([]string{"filename", "description", "schema", "rows"})); err != nil {
		return nil, err
	}
	for i, fs := range ds.Files {
		values := []interface{}{fs.Filename, fs.Description, string(fs.Schema), fs.Rows}
		if err := setRow(f, FilesSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func toRow(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

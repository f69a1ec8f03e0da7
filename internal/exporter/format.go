package exporter

import (
	"math"

	"probereport/internal/dataset"
)

// headers returns the export header row for ds
func headers(ds *dataset.Dataset) []string {
	h := make([]string, 0, len(ds.Columns)+2)
	h = append(h, dataset.ColumnDescription, dataset.ColumnFilename)
	return append(h, ds.Columns...)
}

// formatRecord lays out one row in header order. Cells a file did not have are empty.
func formatRecord(row dataset.Row, columns []string) []string {
	rec := make([]string, 0, len(columns)+2)
	rec = append(rec, row.Description, row.Filename)
	for _, c := range columns {
		cell, _ := row.Cell(c)
		rec = append(rec, cell)
	}
	return rec
}

// cellValue returns the spreadsheet value of a cell. Non-finite floats are
// written as text since the xlsx number format cannot hold them.
func cellValue(row dataset.Row, column string) interface{} {
	if v, ok := row.Values[column]; ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dataset.FormatFloat(v)
		}
		return v
	}
	if s, ok := row.Text[column]; ok {
		return s
	}
	return nil
}

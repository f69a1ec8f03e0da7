// Package exporter writes a combined dataset to disk.
//
// CSVWriter is the low-level writer: headers plus string records, written
// through files.Manager so a finished file replaces the previous one in a
// single rename. DatasetExporter lays a dataset out as
// description, filename, <columns...> and writes combined.csv and, when
// enabled, combined.xlsx with a data sheet and a files sheet.
//
// Floats use the shortest round-trip representation, so exporting the same
// dataset twice produces byte-identical CSV.
//
// Example usage:
//
//	exp := exporter.NewDatasetExporter(files.NewManager(paths))
//	if err := exp.ExportCSV(ds); err != nil {
//	    return err
//	}
package exporter

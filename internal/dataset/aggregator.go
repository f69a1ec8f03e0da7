package dataset

import (
	"sort"
	"strconv"
)

// Aggregator parses and concatenates the files of one dataset
type Aggregator struct {
	Name   string
	Schema Schema
}

// NewAggregator creates an aggregator for the named dataset
func NewAggregator(name string, schema Schema) *Aggregator {
	return &Aggregator{Name: name, Schema: schema}
}

// Aggregate parses every path with schema detection and concatenates the rows
func Aggregate(paths []string) (*Dataset, error) {
	return NewAggregator("", schemas[VersionAuto]).Aggregate(paths)
}

// Aggregate parses paths sequentially and concatenates their rows in input
// order. Columns are the union of all file headers in first-seen order. The
// first failing file aborts the aggregation.
func (a *Aggregator) Aggregate(paths []string) (*Dataset, error) {
	ds := &Dataset{Name: a.Name}
	seen := make(map[string]bool)

	for _, path := range paths {
		table, err := a.ParseFile(path)
		if err != nil {
			return nil, err
		}

		for _, c := range table.Columns {
			if !seen[c] {
				seen[c] = true
				ds.Columns = append(ds.Columns, c)
			}
		}
		ds.Rows = append(ds.Rows, table.Rows...)
		ds.Files = append(ds.Files, FileSummary{
			Filename:    table.Filename,
			Description: table.Description,
			Schema:      table.Schema,
			Rows:        len(table.Rows),
		})
	}

	return ds, nil
}

// Filter returns a dataset holding the rows for which keep returns true
func (d *Dataset) Filter(keep func(Row) bool) *Dataset {
	var rows []Row
	for _, r := range d.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return d.derive(rows, d.Columns)
}

// SortBy returns a dataset whose rows are stably ordered by column. Numeric
// values compare numerically and sort before text; rows lacking the column
// sort last.
func (d *Dataset) SortBy(column string) (*Dataset, error) {
	if !d.HasColumn(column) {
		return nil, &ColumnError{Column: column, File: d.Name, Err: ErrMissingColumn}
	}

	rows := make([]Row, len(d.Rows))
	copy(rows, d.Rows)

	sort.SliceStable(rows, func(i, j int) bool {
		return lessCell(rows[i], rows[j], column)
	})

	return d.derive(rows, d.Columns), nil
}

func lessCell(a, b Row, column string) bool {
	av, aerr := a.Float(column)
	bv, berr := b.Float(column)
	switch {
	case aerr == nil && berr == nil:
		return av < bv
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}

	as, aok := a.Cell(column)
	bs, bok := b.Cell(column)
	switch {
	case aok && bok:
		if x, err := strconv.ParseFloat(as, 64); err == nil {
			if y, err := strconv.ParseFloat(bs, 64); err == nil {
				return x < y
			}
		}
		return as < bs
	case aok:
		return true
	default:
		return false
	}
}

package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Provenance columns attached to every row during aggregation
const (
	ColumnDescription = "description"
	ColumnFilename    = "filename"
)

var (
	// ErrInsufficientHeader is returned for a file with fewer than two lines
	ErrInsufficientHeader = errors.New("insufficient header lines")
	// ErrMissingColumnHeader is returned when no column header line follows the two header lines
	ErrMissingColumnHeader = errors.New("missing column header line")
	// ErrColumnCount is returned for a data row whose field count differs from the header
	ErrColumnCount = errors.New("column count mismatch")
	// ErrMissingColumn is returned when a row has no value for a requested column
	ErrMissingColumn = errors.New("missing column")
	// ErrNonNumeric is returned when a numeric value is requested from a text column
	ErrNonNumeric = errors.New("non-numeric column")
	// ErrNonFinite is returned by the reject policy for a NaN or infinite derived value
	ErrNonFinite = errors.New("non-finite derived value")
)

// ParseError locates a failure inside a source file. Line is 1-based and
// zero when the failure is not tied to a line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnError names the column and originating file of a failed access
type ColumnError struct {
	Column string
	File   string
	Line   int
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s %q in %s (line %d)", e.Err, e.Column, e.File, e.Line)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// Row is one measurement sample. Numeric cells live in Values; cells of
// columns that were not entirely numeric in the source file live in Text.
type Row struct {
	Description string
	Filename    string
	Line        int
	Values      map[string]float64
	Text        map[string]string
}

// Float returns the numeric value of column
func (r Row) Float(column string) (float64, error) {
	if v, ok := r.Values[column]; ok {
		return v, nil
	}
	if _, ok := r.Text[column]; ok {
		return 0, &ColumnError{Column: column, File: r.Filename, Line: r.Line, Err: ErrNonNumeric}
	}
	return 0, &ColumnError{Column: column, File: r.Filename, Line: r.Line, Err: ErrMissingColumn}
}

// Cell returns the textual form of column, including the provenance columns.
// Floats are formatted with the shortest representation that round-trips.
func (r Row) Cell(column string) (string, bool) {
	switch column {
	case ColumnDescription:
		return r.Description, true
	case ColumnFilename:
		return r.Filename, true
	}
	if v, ok := r.Values[column]; ok {
		return FormatFloat(v), true
	}
	if s, ok := r.Text[column]; ok {
		return s, true
	}
	return "", false
}

// Record flattens the row into a map suitable for JSON encoding. Non-finite
// floats are rendered as strings since JSON has no representation for them.
func (r Row) Record(columns []string) map[string]interface{} {
	rec := make(map[string]interface{}, len(columns)+2)
	rec[ColumnDescription] = r.Description
	rec[ColumnFilename] = r.Filename
	for _, c := range columns {
		if v, ok := r.Values[c]; ok {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rec[c] = FormatFloat(v)
			} else {
				rec[c] = v
			}
			continue
		}
		if s, ok := r.Text[c]; ok {
			rec[c] = s
		}
	}
	return rec
}

// with returns a copy of r with column set to v
func (r Row) with(column string, v float64) Row {
	values := make(map[string]float64, len(r.Values)+1)
	for k, x := range r.Values {
		values[k] = x
	}
	values[column] = v
	r.Values = values
	return r
}

// FormatFloat formats v with the shortest representation that parses back to v
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Table is the parsed content of one source file
type Table struct {
	Path        string
	Filename    string
	Description string
	Schema      Version
	Columns     []string
	Rows        []Row
}

// FileSummary records the provenance of one file in a Dataset
type FileSummary struct {
	Filename    string  `json:"filename"`
	Description string  `json:"description"`
	Schema      Version `json:"schema"`
	Rows        int     `json:"rows"`
}

// Dataset is the ordered concatenation of rows from one or more files
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
	Files   []FileSummary
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether column is present in at least one file
func (d *Dataset) HasColumn(column string) bool {
	if column == ColumnDescription || column == ColumnFilename {
		return true
	}
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Float returns the numeric value of column in row i
func (d *Dataset) Float(i int, column string) (float64, error) {
	if i < 0 || i >= len(d.Rows) {
		return 0, fmt.Errorf("row %d out of range [0,%d)", i, len(d.Rows))
	}
	return d.Rows[i].Float(column)
}

// Descriptions returns the distinct descriptions in first-seen order
func (d *Dataset) Descriptions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range d.Files {
		if !seen[f.Description] {
			seen[f.Description] = true
			out = append(out, f.Description)
		}
	}
	return out
}

// derive returns a shallow copy sharing file summaries but with its own rows and columns
func (d *Dataset) derive(rows []Row, columns []string) *Dataset {
	return &Dataset{
		Name:    d.Name,
		Columns: columns,
		Rows:    rows,
		Files:   d.Files,
	}
}

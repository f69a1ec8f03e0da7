package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "probereport/internal/errors"
)

const maxLineBytes = 1024 * 1024

// ParseFile parses one source file, detecting its schema version from the header
func ParseFile(path string) (*Table, error) {
	return NewAggregator("", schemas[VersionAuto]).ParseFile(path)
}

// ParseFile reads path into a Table. Line 1 is the description, line 2 is
// skipped, the next non-blank line is the column header and every following
// non-blank line is a data row.
func (a *Aggregator) ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open input file", err).WithContext("file", path)
	}
	defer f.Close()

	name := filepath.Base(path)
	fail := func(line int, cause error) error {
		return apperrors.NewParsingError("failed to parse input file",
			&ParseError{File: name, Line: line, Err: cause}).WithContext("file", path)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return scanner.Text(), true
	}

	first, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, fail(0, err)
		}
		return nil, fail(0, ErrInsufficientHeader)
	}
	if _, ok := next(); !ok {
		if err := scanner.Err(); err != nil {
			return nil, fail(lineNo, err)
		}
		return nil, fail(0, ErrInsufficientHeader)
	}

	var rawHeader []string
	headerLine := 0
	for {
		line, ok := next()
		if !ok {
			break
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			rawHeader = fields
			headerLine = lineNo
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fail(lineNo, err)
	}
	if rawHeader == nil {
		return nil, fail(0, ErrMissingColumnHeader)
	}

	columns := Canonicalize(rawHeader)
	if len(columns) == 0 {
		return nil, fail(headerLine, ErrMissingColumnHeader)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] || c == ColumnDescription || c == ColumnFilename {
			return nil, fail(headerLine, fmt.Errorf("duplicate column %q", c))
		}
		seen[c] = true
	}

	// detected versions are recorded but only an explicit version is enforced
	version := a.Schema.Resolve(rawHeader)
	if err := a.Schema.Check(columns); err != nil {
		return nil, apperrors.NewSchemaError("input file does not match schema",
			&ParseError{File: name, Line: headerLine, Err: err}).
			WithContext("file", path).
			WithContext("schema", string(version))
	}

	var cells [][]string
	var lines []int
	for {
		line, ok := next()
		if !ok {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(columns) {
			return nil, fail(lineNo, fmt.Errorf("%w: got %d fields, header declares %d",
				ErrColumnCount, len(fields), len(columns)))
		}
		cells = append(cells, fields)
		lines = append(lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fail(lineNo, err)
	}

	numeric := numericColumns(columns, cells)
	description := strings.TrimSpace(first)

	rows := make([]Row, len(cells))
	for i, fields := range cells {
		row := Row{
			Description: description,
			Filename:    name,
			Line:        lines[i],
			Values:      make(map[string]float64, len(columns)),
		}
		for j, c := range columns {
			if numeric[j] {
				v, _ := strconv.ParseFloat(fields[j], 64)
				row.Values[c] = v
				continue
			}
			if row.Text == nil {
				row.Text = make(map[string]string)
			}
			row.Text[c] = fields[j]
		}
		rows[i] = row
	}

	return &Table{
		Path:        path,
		Filename:    name,
		Description: description,
		Schema:      version,
		Columns:     columns,
		Rows:        rows,
	}, nil
}

// numericColumns reports, per column, whether every cell parses as a float
func numericColumns(columns []string, cells [][]string) []bool {
	numeric := make([]bool, len(columns))
	for j := range columns {
		numeric[j] = true
		for _, fields := range cells {
			if _, err := strconv.ParseFloat(fields[j], 64); err != nil {
				numeric[j] = false
				break
			}
		}
	}
	return numeric
}

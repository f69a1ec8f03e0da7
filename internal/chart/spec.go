package chart

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot/vg"

	"probereport/internal/config"
	"probereport/internal/dataset"
)

// Kind is the chart type
type Kind string

const (
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// Scale is the y axis scale
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

// Op is a filter comparison
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// displayOutput is the interactive output target, which a headless renderer cannot honour
const displayOutput = "display"

var formats = map[string]bool{"png": true, "svg": true, "pdf": true}

// Filter is a row predicate "column op value"
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Match reports whether row satisfies the filter. Numeric cells compare
// numerically when Value parses as a number; otherwise cells compare as text.
func (f Filter) Match(row dataset.Row) (bool, error) {
	if v, err := row.Float(f.Column); err == nil {
		if want, perr := strconv.ParseFloat(f.Value, 64); perr == nil {
			return compare(f.Op, cmpFloat(v, want))
		}
	}

	cell, ok := row.Cell(f.Column)
	if !ok {
		_, err := row.Float(f.Column)
		return false, err
	}
	return compare(f.Op, strings.Compare(cell, f.Value))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compare(op Op, c int) (bool, error) {
	switch op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown filter operator %q", op)
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Column, f.Op, f.Value)
}

// Spec is the configuration of one chart
type Spec struct {
	Name      string
	X         string
	Y         string
	Group     string
	Kind      Kind
	Title     string
	XLabel    string
	YLabel    string
	YScale    Scale
	XReversed bool
	Filters   []Filter
	Output    string
}

// FromConfig converts a configured chart, applying defaults for omitted fields
func FromConfig(c config.ChartConfig) Spec {
	s := Spec{
		Name:      c.Name,
		X:         c.X,
		Y:         c.Y,
		Group:     c.Group,
		Kind:      Kind(c.Kind),
		Title:     c.Title,
		XLabel:    c.XLabel,
		YLabel:    c.YLabel,
		YScale:    Scale(c.YScale),
		XReversed: c.XReversed,
		Output:    c.Output,
	}
	for _, f := range c.Filters {
		s.Filters = append(s.Filters, Filter{Column: f.Column, Op: Op(f.Op), Value: f.Value})
	}
	return s.withDefaults()
}

func (s Spec) withDefaults() Spec {
	if s.Kind == "" {
		s.Kind = KindLine
	}
	if s.YScale == "" {
		s.YScale = ScaleLinear
	}
	if s.XLabel == "" {
		s.XLabel = s.X
	}
	if s.YLabel == "" {
		s.YLabel = s.Y
	}
	return s
}

// Validate checks the spec independently of any dataset
func (s Spec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("chart name is required")
	case s.X == "" || s.Y == "":
		return fmt.Errorf("chart %s: x and y columns are required", s.Name)
	case s.Kind != KindLine && s.Kind != KindScatter:
		return fmt.Errorf("chart %s: unsupported kind %q", s.Name, s.Kind)
	case s.YScale != ScaleLinear && s.YScale != ScaleLog:
		return fmt.Errorf("chart %s: unsupported y scale %q", s.Name, s.YScale)
	case s.Output == "":
		return fmt.Errorf("chart %s: output is required", s.Name)
	case s.Output == displayOutput:
		return fmt.Errorf("chart %s: output %q is not supported, name a file", s.Name, displayOutput)
	case s.Output != filepath.Base(s.Output):
		return fmt.Errorf("chart %s: output %q must be a file name", s.Name, s.Output)
	}

	if ext := strings.TrimPrefix(filepath.Ext(s.Output), "."); ext != "" && !formats[ext] {
		return fmt.Errorf("chart %s: unsupported output format %q", s.Name, ext)
	}

	for _, f := range s.Filters {
		if f.Column == "" {
			return fmt.Errorf("chart %s: filter column is required", s.Name)
		}
		if _, err := compare(f.Op, 0); err != nil {
			return fmt.Errorf("chart %s: %w", s.Name, err)
		}
	}
	return nil
}

// Columns returns every dataset column the spec reads
func (s Spec) Columns() []string {
	cols := []string{s.X, s.Y}
	if s.Group != "" {
		cols = append(cols, s.Group)
	}
	for _, f := range s.Filters {
		cols = append(cols, f.Column)
	}
	return cols
}

// OutputFile returns the file name to write, adding the style's format as
// extension when the output has none, and the format to encode with
func (s Spec) OutputFile(style Style) (name, format string) {
	ext := strings.TrimPrefix(filepath.Ext(s.Output), ".")
	if ext == "" {
		return s.Output + "." + style.Format, style.Format
	}
	return s.Output, ext
}

// Style is the image geometry and encoding shared by the charts of a run
type Style struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

// DefaultStyle returns the default chart style
func DefaultStyle() Style {
	return Style{
		Width:  vg.Length(config.DefaultChartWidth) * vg.Inch,
		Height: vg.Length(config.DefaultChartHeight) * vg.Inch,
		Format: config.DefaultChartFormat,
	}
}

// StyleFromConfig converts the render configuration
func StyleFromConfig(c config.RenderConfig) Style {
	s := DefaultStyle()
	if c.WidthIn > 0 {
		s.Width = vg.Length(c.WidthIn) * vg.Inch
	}
	if c.HeightIn > 0 {
		s.Height = vg.Length(c.HeightIn) * vg.Inch
	}
	if c.Format != "" {
		s.Format = c.Format
	}
	return s
}

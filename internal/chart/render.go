package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"probereport/internal/dataset"
	apperrors "probereport/internal/errors"
	"probereport/internal/files"
)

// ErrNoPoints is returned when every point of a chart was filtered or dropped
var ErrNoPoints = errors.New("no plottable points")

// Renderer draws one chart of a dataset and returns the path it wrote
type Renderer interface {
	Render(ctx context.Context, ds *dataset.Dataset, spec Spec, style Style) (string, error)
}

// PlotRenderer renders charts with gonum/plot
type PlotRenderer struct {
	manager *files.Manager
}

// NewPlotRenderer creates a renderer writing below the manager's output directory
func NewPlotRenderer(manager *files.Manager) *PlotRenderer {
	return &PlotRenderer{manager: manager}
}

// Render writes <dataset>/<output> and returns its output-relative path
func (r *PlotRenderer) Render(ctx context.Context, ds *dataset.Dataset, spec Spec, style Style) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := spec.Validate(); err != nil {
		return "", apperrors.NewRenderError("invalid chart", err).WithContext("chart", spec.Name)
	}

	set, err := Prepare(ds, spec)
	if err != nil {
		return "", err
	}

	p, err := newPlot(spec, set)
	if err != nil {
		return "", apperrors.NewRenderError("failed to build plot", err).WithContext("chart", spec.Name)
	}

	name, format := spec.OutputFile(style)
	wt, err := p.WriterTo(style.Width, style.Height, format)
	if err != nil {
		return "", apperrors.NewRenderError("failed to encode chart", err).WithContext("chart", spec.Name)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", apperrors.NewRenderError("failed to encode chart", err).WithContext("chart", spec.Name)
	}

	path := filepath.Join(ds.Name, name)
	if err := r.manager.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// Prepare builds the series of spec over ds. Missing columns are a SCHEMA
// error and a chart left without points is a RENDER error wrapping
// ErrNoPoints.
func Prepare(ds *dataset.Dataset, spec Spec) (SeriesSet, error) {
	set, err := BuildSeries(ds, spec)
	if err != nil {
		return SeriesSet{}, apperrors.NewSchemaError(fmt.Sprintf("cannot build series for chart %s", spec.Name), err).
			WithContext("chart", spec.Name)
	}
	if set.Points() == 0 {
		return SeriesSet{}, apperrors.NewRenderError(fmt.Sprintf("chart %s", spec.Name), ErrNoPoints).
			WithContext("chart", spec.Name).
			WithContext("dropped", set.Dropped)
	}
	return set, nil
}

func newPlot(spec Spec, set SeriesSet) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Add(plotter.NewGrid())

	if spec.YScale == ScaleLog {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if spec.XReversed {
		p.X.Scale = plot.InvertedScale{Normalizer: p.X.Scale}
	}

	for i, s := range set.Series {
		switch spec.Kind {
		case KindScatter:
			sc, err := plotter.NewScatter(s.Points)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", s.Name, err)
			}
			sc.GlyphStyle.Color = plotutil.Color(i)
			sc.GlyphStyle.Shape = plotutil.Shape(i)
			p.Add(sc)
			if s.Name != "" {
				p.Legend.Add(s.Name, sc)
			}
		default:
			l, err := plotter.NewLine(s.Points)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", s.Name, err)
			}
			l.LineStyle.Color = plotutil.Color(i)
			l.LineStyle.Width = 1.5
			p.Add(l)
			if s.Name != "" {
				p.Legend.Add(s.Name, l)
			}
		}
	}

	p.Legend.Top = true
	return p, nil
}

// Result is the outcome of one chart in RenderAll
type Result struct {
	Spec Spec
	Path string
}

// RenderAll renders specs concurrently with at most workers charts in flight.
// The first error cancels the remaining charts. Results keep the order of specs.
func RenderAll(ctx context.Context, r Renderer, ds *dataset.Dataset, specs []Spec, style Style, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, spec := range specs {
		g.Go(func() error {
			path, err := r.Render(ctx, ds, spec, style)
			if err != nil {
				return err
			}
			results[i] = Result{Spec: spec, Path: path}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

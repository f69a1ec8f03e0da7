package chart

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"probereport/internal/config"
	"probereport/internal/dataset"
	apperrors "probereport/internal/errors"
	"probereport/internal/files"
)

func row(desc string, values map[string]float64) dataset.Row {
	return dataset.Row{Description: desc, Filename: desc + ".txt", Line: 4, Values: values}
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:    "v3",
		Columns: []string{"freeFraction", "unsuccessful-search", "k", "sqrt_unsuccessful"},
		Rows: []dataset.Row{
			row("b", map[string]float64{"freeFraction": 0.5, "unsuccessful-search": 2, "k": 10, "sqrt_unsuccessful": 0.7}),
			row("a", map[string]float64{"freeFraction": 0.3, "unsuccessful-search": 4, "k": 2, "sqrt_unsuccessful": 0.5}),
			row("a", map[string]float64{"freeFraction": 0.1, "unsuccessful-search": 0, "k": 2, "sqrt_unsuccessful": math.Inf(1)}),
			row("b", map[string]float64{"freeFraction": 0.2, "unsuccessful-search": 8, "k": 10, "sqrt_unsuccessful": 0.35}),
		},
		Files: []dataset.FileSummary{
			{Filename: "a.txt", Description: "a", Schema: dataset.VersionV3, Rows: 2},
			{Filename: "b.txt", Description: "b", Schema: dataset.VersionV3, Rows: 2},
		},
	}
}

func TestSpecValidate(t *testing.T) {
	valid := Spec{Name: "c", X: "x", Y: "y", Kind: KindLine, YScale: ScaleLinear, Output: "c.png"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"missing name", func(s *Spec) { s.Name = "" }},
		{"missing y", func(s *Spec) { s.Y = "" }},
		{"bad kind", func(s *Spec) { s.Kind = "bar" }},
		{"bad scale", func(s *Spec) { s.YScale = "sqrt" }},
		{"display output", func(s *Spec) { s.Output = "display" }},
		{"output with directory", func(s *Spec) { s.Output = "../c.png" }},
		{"bad format", func(s *Spec) { s.Output = "c.gif" }},
		{"bad filter op", func(s *Spec) { s.Filters = []Filter{{Column: "k", Op: "~", Value: "1"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestFromConfig_Defaults(t *testing.T) {
	s := FromConfig(config.ChartConfig{
		Name: "c", X: "freeFraction", Y: "unsuccessful-search", Output: "c",
		Filters: []config.FilterConfig{{Column: "k", Op: "==", Value: "2"}},
	})
	assert.Equal(t, KindLine, s.Kind)
	assert.Equal(t, ScaleLinear, s.YScale)
	assert.Equal(t, "freeFraction", s.XLabel)
	assert.Equal(t, []Filter{{Column: "k", Op: OpEq, Value: "2"}}, s.Filters)

	name, format := s.OutputFile(Style{Format: "svg"})
	assert.Equal(t, "c.svg", name)
	assert.Equal(t, "svg", format)
}

func TestStyleFromConfig(t *testing.T) {
	s := StyleFromConfig(config.RenderConfig{WidthIn: 4, HeightIn: 3, Format: "pdf"})
	assert.Equal(t, 4*vg.Inch, s.Width)
	assert.Equal(t, 3*vg.Inch, s.Height)
	assert.Equal(t, "pdf", s.Format)
}

func TestFilterMatch(t *testing.T) {
	r := dataset.Row{Description: "baseline", Values: map[string]float64{"k": 10}, Text: map[string]string{"tag": "x"}}

	tests := []struct {
		filter Filter
		want   bool
	}{
		{Filter{"k", OpEq, "10"}, true},
		{Filter{"k", OpGt, "9"}, true},
		{Filter{"k", OpLt, "9"}, false},
		{Filter{"k", OpLe, "10.0"}, true},
		{Filter{"description", OpEq, "baseline"}, true},
		{Filter{"description", OpNe, "baseline"}, false},
		{Filter{"tag", OpGe, "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.filter.String(), func(t *testing.T) {
			got, err := tt.filter.Match(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Filter{"missing", OpEq, "1"}.Match(r)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestBuildSeries_GroupsAndSorts(t *testing.T) {
	spec := Spec{Name: "c", X: "freeFraction", Y: "unsuccessful-search", Group: "description", Kind: KindLine}

	set, err := BuildSeries(testDataset(), spec)
	require.NoError(t, err)
	require.Len(t, set.Series, 2)

	assert.Equal(t, "a", set.Series[0].Name)
	assert.Equal(t, plotter.XYs{{X: 0.1, Y: 0}, {X: 0.3, Y: 4}}, set.Series[0].Points)
	assert.Equal(t, "b", set.Series[1].Name)
	assert.Equal(t, plotter.XYs{{X: 0.2, Y: 8}, {X: 0.5, Y: 2}}, set.Series[1].Points)
	assert.Equal(t, 0, set.Dropped)
}

func TestBuildSeries_NumericGroupOrder(t *testing.T) {
	spec := Spec{Name: "c", X: "freeFraction", Y: "unsuccessful-search", Group: "k", Kind: KindScatter}

	set, err := BuildSeries(testDataset(), spec)
	require.NoError(t, err)
	require.Len(t, set.Series, 2)
	assert.Equal(t, "2", set.Series[0].Name)
	assert.Equal(t, "10", set.Series[1].Name)
	// scatter keeps row order
	assert.Equal(t, plotter.XYs{{X: 0.3, Y: 4}, {X: 0.1, Y: 0}}, set.Series[0].Points)
}

func TestBuildSeries_DropsPoints(t *testing.T) {
	t.Run("non-finite", func(t *testing.T) {
		spec := Spec{Name: "c", X: "freeFraction", Y: "sqrt_unsuccessful", Kind: KindLine}
		set, err := BuildSeries(testDataset(), spec)
		require.NoError(t, err)
		assert.Equal(t, 1, set.Dropped)
		assert.Equal(t, 3, set.Points())
	})

	t.Run("log axis non-positive", func(t *testing.T) {
		spec := Spec{Name: "c", X: "freeFraction", Y: "unsuccessful-search", Kind: KindLine, YScale: ScaleLog}
		set, err := BuildSeries(testDataset(), spec)
		require.NoError(t, err)
		assert.Equal(t, 1, set.Dropped)
		assert.Equal(t, 3, set.Points())
	})
}

func TestBuildSeries_Filters(t *testing.T) {
	spec := Spec{
		Name: "c", X: "freeFraction", Y: "unsuccessful-search", Kind: KindLine,
		Filters: []Filter{{Column: "k", Op: OpEq, Value: "10"}, {Column: "freeFraction", Op: OpGt, Value: "0.3"}},
	}
	set, err := BuildSeries(testDataset(), spec)
	require.NoError(t, err)
	require.Len(t, set.Series, 1)
	assert.Equal(t, plotter.XYs{{X: 0.5, Y: 2}}, set.Series[0].Points)
}

func TestBuildSeries_MissingColumn(t *testing.T) {
	spec := Spec{Name: "c", X: "freeFraction", Y: "insertion", Kind: KindLine}
	_, err := BuildSeries(testDataset(), spec)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	assert.False(t, spec.Applicable(testDataset()))
}

func TestCatalog(t *testing.T) {
	v2 := Catalog(dataset.VersionV2)
	v3 := Catalog(dataset.VersionV3)
	assert.Greater(t, len(v3), len(v2))

	names := make(map[string]bool)
	for _, s := range v3 {
		require.NoError(t, s.Validate(), s.Name)
		assert.False(t, names[s.Output], "duplicate output %s", s.Output)
		names[s.Output] = true
	}

	assert.Len(t, CatalogFor(testDataset()), len(v3))
	mixed := testDataset()
	mixed.Files[0].Schema = dataset.VersionV1
	assert.Len(t, CatalogFor(mixed), len(v2))
}

func TestPlotRenderer_Render(t *testing.T) {
	out := t.TempDir()
	r := NewPlotRenderer(files.NewManager(&config.Paths{OutputDir: out}))

	spec := Spec{
		Name: "c", X: "freeFraction", Y: "unsuccessful-search", Group: "description",
		Kind: KindLine, YScale: ScaleLog, XReversed: true, Output: "c",
	}
	style := Style{Width: 4 * vg.Inch, Height: 3 * vg.Inch, Format: "png"}

	path, err := r.Render(context.Background(), testDataset(), spec, style)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("v3", "c.png"), path)

	data, err := os.ReadFile(filepath.Join(out, path))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestPlotRenderer_NoPoints(t *testing.T) {
	r := NewPlotRenderer(files.NewManager(&config.Paths{OutputDir: t.TempDir()}))
	spec := Spec{
		Name: "c", X: "freeFraction", Y: "unsuccessful-search", Kind: KindScatter, YScale: ScaleLinear,
		Filters: []Filter{{Column: "k", Op: OpGt, Value: "100"}}, Output: "c.svg",
	}

	_, err := r.Render(context.Background(), testDataset(), spec, DefaultStyle())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRender))
	assert.ErrorIs(t, err, ErrNoPoints)
	assert.EqualError(t, err, "[RENDER] chart c: no plottable points")
}

func TestPrepare(t *testing.T) {
	ds := testDataset()

	set, err := Prepare(ds, Spec{Name: "ok", X: "freeFraction", Y: "sqrt_unsuccessful", Kind: KindLine})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Points())
	assert.Equal(t, 1, set.Dropped)

	_, err = Prepare(ds, Spec{Name: "missing", X: "freeFraction", Y: "insertion"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Contains(t, err.Error(), "chart missing")

	_, err = Prepare(ds, Spec{Name: "empty", X: "freeFraction", Y: "unsuccessful-search", YScale: ScaleLog,
		Filters: []Filter{{Column: "unsuccessful-search", Op: OpLe, Value: "0"}}})
	assert.ErrorIs(t, err, ErrNoPoints)
	assert.Contains(t, err.Error(), "chart empty")
}

type fakeRenderer struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	failOn   string
}

func (f *fakeRenderer) Render(ctx context.Context, ds *dataset.Dataset, spec Spec, style Style) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	f.mu.Unlock()

	if spec.Name == f.failOn {
		return "", errors.New("boom")
	}
	return spec.Name + ".png", nil
}

func TestRenderAll(t *testing.T) {
	specs := []Spec{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}

	t.Run("bounded and ordered", func(t *testing.T) {
		f := &fakeRenderer{}
		results, err := RenderAll(context.Background(), f, testDataset(), specs, DefaultStyle(), 2)
		require.NoError(t, err)
		require.Len(t, results, 4)
		for i, r := range results {
			assert.Equal(t, specs[i].Name+".png", r.Path)
		}
		assert.LessOrEqual(t, f.maxSeen.Load(), int32(2))
	})

	t.Run("first error wins", func(t *testing.T) {
		f := &fakeRenderer{failOn: "c"}
		results, err := RenderAll(context.Background(), f, testDataset(), specs, DefaultStyle(), 1)
		assert.EqualError(t, err, "boom")
		assert.Nil(t, results)
	})
}

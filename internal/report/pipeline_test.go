package report

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probereport/internal/chart"
	"probereport/internal/config"
	"probereport/internal/dataset"
	apperrors "probereport/internal/errors"
	"probereport/internal/infrastructure"
	"probereport/internal/shared/testutil"
)

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.txt"),
		[]byte("baseline\n# skipped\nfreeFraction n K unsuccessful-search\n0.5 0.4 100 2.0\n0.4 0.5 200 3.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.txt"),
		[]byte("variant\n# skipped\nfreeFraction n K unsuccessful-search\n0.3 0.6 200 4.0\n0.2 0.7 400 0\n"), 0644))
	return dir
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Datasets = []config.DatasetConfig{config.NewDatasetConfig("run", root, "*.txt")}
	return cfg
}

type recordingRenderer struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingRenderer) Render(_ context.Context, ds *dataset.Dataset, spec chart.Spec, style chart.Style) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, spec.Name)
	return filepath.Join(ds.Name, spec.Output), nil
}

func TestPipeline_Run(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	rec := &recordingRenderer{}
	var logs bytes.Buffer

	p := NewPipeline(cfg, WithRenderer(rec), WithLogger(infrastructure.NewLogger("debug", &logs)))
	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "run", res.Name)
	assert.Len(t, res.Files, 2)
	assert.Equal(t, 4, res.Dataset.Len())
	assert.Equal(t, 1, res.NonFinite[dataset.ColSqrtUnsuccessful])
	assert.Equal(t, []string{filepath.Join("run", config.CombinedCSVName)}, res.Exports)

	// successful-search is absent from the inputs
	assert.Equal(t, []string{"successful-search"}, res.Skipped)
	assert.Len(t, res.Charts, 4)
	assert.ElementsMatch(t, []string{"unsuccessful-search", "unsuccessful-search-log", "tombstones", "sqrt-unsuccessful"}, rec.names)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "run", config.CombinedCSVName))
	assert.NoError(t, err)

	assert.Contains(t, logs.String(), `"stage":"derive"`)
	assert.Contains(t, logs.String(), "non-finite")
	assert.Contains(t, logs.String(), `"trace_id"`)
}

func TestPipeline_RenderDisabled(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	cfg.Render.Enabled = false
	rec := &recordingRenderer{}

	results, err := NewPipeline(cfg, WithRenderer(rec)).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results[0].Charts)
	assert.Empty(t, rec.names)
}

func TestPipeline_ConfiguredCharts(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	cfg.Datasets[0].Charts = []config.ChartConfig{
		{Name: "only", X: "freeFraction", Y: "unsuccessful-search", Group: "description", Output: "only.png"},
	}
	rec := &recordingRenderer{}

	results, err := NewPipeline(cfg, WithRenderer(rec)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, rec.names)
	assert.Empty(t, results[0].Skipped)
}

func TestPipeline_RealRenderer(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	cfg.Datasets[0].Charts = []config.ChartConfig{
		{Name: "c", X: "K", Y: "sqrt_unsuccessful", Group: "description", YScale: "log", Output: "c"},
	}

	results, err := NewPipeline(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results[0].Charts, 1)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, results[0].Charts[0].Path))
	assert.NoError(t, err)
}

func writeZeroUnsuccessful(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Z.txt"),
		[]byte("full table\n# skipped\nfreeFraction n K unsuccessful-search\n0.5 0.4 100 0\n0.4 0.5 200 0\n"), 0644))
	return dir
}

func TestPipeline_CatalogSkipsChartsWithoutPoints(t *testing.T) {
	cfg := testConfig(t, writeZeroUnsuccessful(t))
	logger, handler := testutil.NewTestLogger(t)

	results, err := NewPipeline(cfg, WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 2, res.NonFinite[dataset.ColSqrtUnsuccessful])
	assert.Equal(t, []string{"successful-search", "unsuccessful-search-log", "sqrt-unsuccessful"}, res.Skipped)

	var drawn []string
	for _, c := range res.Charts {
		drawn = append(drawn, c.Spec.Name)
		_, err := os.Stat(filepath.Join(cfg.OutputDir, c.Path))
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{"unsuccessful-search", "tombstones"}, drawn)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "without plottable points")
	testutil.AssertLogAttr(t, handler, "chart", "sqrt-unsuccessful")
	testutil.AssertNoErrors(t, handler)
}

func TestPipeline_ConfiguredChartWithoutPoints(t *testing.T) {
	cfg := testConfig(t, writeZeroUnsuccessful(t))
	cfg.Datasets[0].Charts = []config.ChartConfig{
		{Name: "inverse", X: "freeFraction", Y: "sqrt_unsuccessful", Output: "inverse.png"},
	}

	_, err := NewPipeline(cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRender))
	assert.ErrorIs(t, err, chart.ErrNoPoints)
	assert.Contains(t, err.Error(), "chart inverse")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "run", config.CombinedCSVName))
	assert.True(t, os.IsNotExist(err), "nothing is exported when a chart cannot be drawn")
}

func TestPipeline_Errors(t *testing.T) {
	t.Run("discovery", func(t *testing.T) {
		cfg := testConfig(t, t.TempDir())
		_, err := NewPipeline(cfg).Run(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDiscovery))
	})

	t.Run("parse", func(t *testing.T) {
		root := writeInputs(t)
		require.NoError(t, os.WriteFile(filepath.Join(root, "C.txt"), []byte("one line"), 0644))
		_, err := NewPipeline(testConfig(t, root)).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, dataset.ErrInsufficientHeader)
	})

	t.Run("reject non-finite", func(t *testing.T) {
		cfg := testConfig(t, writeInputs(t))
		cfg.Datasets[0].NonFinite = config.NonFiniteReject
		_, err := NewPipeline(cfg).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, dataset.ErrNonFinite)
	})

	t.Run("configured chart missing column", func(t *testing.T) {
		cfg := testConfig(t, writeInputs(t))
		cfg.Datasets[0].Charts = []config.ChartConfig{
			{Name: "c", X: "freeFraction", Y: "insertion", Output: "c.png"},
		}
		_, err := NewPipeline(cfg).Run(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))

		_, err = os.Stat(filepath.Join(cfg.OutputDir, "run", config.CombinedCSVName))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("invalid chart is a config error", func(t *testing.T) {
		cfg := testConfig(t, writeInputs(t))
		cfg.Datasets[0].Charts = []config.ChartConfig{
			{Name: "c", X: "freeFraction", Y: "n", Output: "display"},
		}
		_, err := NewPipeline(cfg).Run(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})

	t.Run("no datasets", func(t *testing.T) {
		cfg := config.Default()
		_, err := NewPipeline(cfg).Run(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}

func TestPipeline_BuildSorted(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	dc := cfg.Datasets[0]
	dc.SortBy = "K"

	res, err := NewPipeline(cfg).Build(context.Background(), dc)
	require.NoError(t, err)

	var ks []float64
	for i := range res.Dataset.Rows {
		k, err := res.Dataset.Float(i, "K")
		require.NoError(t, err)
		ks = append(ks, k)
	}
	assert.Equal(t, []float64{100, 200, 200, 400}, ks)
	assert.Empty(t, res.Exports)
}

func TestPipeline_LogsStages(t *testing.T) {
	cfg := testConfig(t, writeInputs(t))
	logger, handler := testutil.NewTestLogger(t)

	_, err := NewPipeline(cfg, WithRenderer(&recordingRenderer{}), WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)

	testutil.AssertLogContains(t, handler, slog.LevelDebug, "Skipping catalog chart")
	testutil.AssertLogAttr(t, handler, "chart", "successful-search")
	testutil.AssertLogAttr(t, handler, "component", "report")
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "non-finite")
	testutil.AssertNoErrors(t, handler)

	for _, stage := range []string{StageDiscover, StageAggregate, StageDerive, StageExport, StageRender} {
		testutil.AssertLogAttr(t, handler, "stage", stage)
	}
}

func TestPipeline_LogsFailedStage(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	_, err := NewPipeline(testConfig(t, t.TempDir()), WithLogger(logger)).Run(context.Background())
	require.Error(t, err)

	testutil.AssertLogContains(t, handler, slog.LevelError, "Stage failed")
	testutil.AssertLogAttr(t, handler, "error_type", string(apperrors.ErrTypeDiscovery))
}

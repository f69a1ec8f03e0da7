package dataset

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "probereport/internal/errors"
)

func writeTable(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func scenarioFiles(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := writeTable(t, dir, "A.txt", "baseline\n# skipped\nfreeFraction n K unsuccessful-search\n0.5 0.4 100 2.0\n")
	b := writeTable(t, dir, "B.txt", "variant\n# skipped\nfreeFraction n K unsuccessful-search\n0.3 0.6 200 4.0\n")
	return []string{a, b}
}

func TestAggregateAndDerive_Scenario(t *testing.T) {
	ds, err := Aggregate(scenarioFiles(t))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	derived, stats, err := DeriveColumns(ds, Propagate)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total())

	first := derived.Rows[0]
	assert.Equal(t, "baseline", first.Description)
	assert.Equal(t, "A.txt", first.Filename)
	tomb, err := first.Float(ColTombstones)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, tomb, 1e-12)
	sq, err := first.Float(ColSqrtUnsuccessful)
	require.NoError(t, err)
	assert.InDelta(t, 0.70710678, sq, 1e-6)

	second := derived.Rows[1]
	assert.Equal(t, "variant", second.Description)
	assert.Equal(t, "B.txt", second.Filename)
	tomb, err = second.Float(ColTombstones)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, tomb, 1e-12)
	sq, err = second.Float(ColSqrtUnsuccessful)
	require.NoError(t, err)
	assert.Equal(t, 0.5, sq)

	assert.Equal(t, []string{ColFreeFraction, ColN, ColDeletions, ColUnsuccessfulSearch, ColTombstones, ColSqrtUnsuccessful},
		derived.Columns)

	// the input dataset is untouched
	_, err = ds.Rows[0].Float(ColTombstones)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestAggregate_Idempotent(t *testing.T) {
	paths := scenarioFiles(t)

	run := func() *Dataset {
		ds, err := Aggregate(paths)
		require.NoError(t, err)
		derived, _, err := DeriveColumns(ds, Propagate)
		require.NoError(t, err)
		return derived
	}

	assert.Equal(t, run(), run())
}

func TestAggregate_FileSummaries(t *testing.T) {
	ds, err := Aggregate(scenarioFiles(t))
	require.NoError(t, err)

	assert.Equal(t, []FileSummary{
		{Filename: "A.txt", Description: "baseline", Schema: VersionV2, Rows: 1},
		{Filename: "B.txt", Description: "variant", Schema: VersionV2, Rows: 1},
	}, ds.Files)
	assert.Equal(t, []string{"baseline", "variant"}, ds.Descriptions())
}

func TestAggregate_AbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeTable(t, dir, "good.txt", "ok\n\nn freeFraction unsuccessful-search\n1 2 3\n")
	bad := writeTable(t, dir, "bad.txt", "only one line\n")

	ds, err := Aggregate([]string{good, bad})
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, ErrInsufficientHeader)
}

func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		sentinel error
		line     int
	}{
		{"empty file", "", ErrInsufficientHeader, 0},
		{"one line", "just a description\n", ErrInsufficientHeader, 0},
		{"no column header", "desc\nskipped\n\n\n", ErrMissingColumnHeader, 0},
		{"short row", "desc\nskipped\na b c\n1 2 3\n1 2\n", ErrColumnCount, 5},
		{"long row", "desc\nskipped\na b\n1 2 3\n", ErrColumnCount, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTable(t, t.TempDir(), "in.txt", tt.content)

			table, err := ParseFile(path)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "in.txt", pe.File)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestParseFile_CommentedHeaderAndLegacyNames(t *testing.T) {
	content := "# m=1000, E[load]=0.5\n" +
		"# run 1\n" +
		"#m n K freeFraction successfull unsuccessfull E[Load]\n" +
		"1000 0.5 1 0.4 1.5 3.25 0.5\n" +
		"\n" +
		"1000 0.5 2 0.38 1.6 3.5 0.5\n"
	path := writeTable(t, t.TempDir(), "legacy.txt", content)

	table, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "# m=1000, E[load]=0.5", table.Description)
	assert.Equal(t, VersionV1, table.Schema)
	assert.Equal(t, []string{ColM, ColN, ColDeletions, ColFreeFraction, ColSuccessfulSearch, ColUnsuccessfulSearch, ColExpectedLoad},
		table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 6, table.Rows[1].Line)

	u, err := table.Rows[1].Float(ColUnsuccessfulSearch)
	require.NoError(t, err)
	assert.Equal(t, 3.5, u)
}

func TestParseFile_LoneHashToken(t *testing.T) {
	path := writeTable(t, t.TempDir(), "x.txt", "d\n\n# n freeFraction\n1 2\n")
	table, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{ColN, ColFreeFraction}, table.Columns)
}

func TestParseFile_TextColumns(t *testing.T) {
	path := writeTable(t, t.TempDir(), "mixed.txt", "  padded description \n\nlabel n\nfoo 1\nbar 2\n")

	table, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "padded description", table.Description)

	row := table.Rows[0]
	_, err = row.Float("label")
	assert.ErrorIs(t, err, ErrNonNumeric)
	_, err = row.Float("absent")
	assert.ErrorIs(t, err, ErrMissingColumn)

	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "mixed.txt", ce.File)

	cell, ok := row.Cell("label")
	assert.True(t, ok)
	assert.Equal(t, "foo", cell)
	cell, ok = row.Cell(ColumnFilename)
	assert.True(t, ok)
	assert.Equal(t, "mixed.txt", cell)
}

func TestParseFile_ExplicitSchema(t *testing.T) {
	v3, err := LookupSchema("v3")
	require.NoError(t, err)

	path := writeTable(t, t.TempDir(), "v2.txt", "d\n\nm n K freeFraction successful-search unsuccessful-search\n1 2 3 4 5 6\n")

	_, err = NewAggregator("x", v3).ParseFile(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "insertion")
}

func TestDeriveColumns_NonFinite(t *testing.T) {
	dir := t.TempDir()
	path := writeTable(t, dir, "z.txt", "zero\n\nfreeFraction n unsuccessful-search\n0.5 0.5 0\n0.5 0.5 -1\n0.5 0.5 4\n")

	ds, err := Aggregate([]string{path})
	require.NoError(t, err)

	t.Run("propagate", func(t *testing.T) {
		derived, stats, err := DeriveColumns(ds, Propagate)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.NonFinite[ColSqrtUnsuccessful])
		assert.Equal(t, 0, stats.NonFinite[ColTombstones])

		v, _ := derived.Float(0, ColSqrtUnsuccessful)
		assert.True(t, math.IsInf(v, 1))
		v, _ = derived.Float(1, ColSqrtUnsuccessful)
		assert.True(t, math.IsNaN(v))
		v, _ = derived.Float(2, ColSqrtUnsuccessful)
		assert.Equal(t, 0.5, v)
	})

	t.Run("reject", func(t *testing.T) {
		derived, _, err := DeriveColumns(ds, Reject)
		require.Error(t, err)
		assert.Nil(t, derived)
		assert.ErrorIs(t, err, ErrNonFinite)

		var ce *ColumnError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "z.txt", ce.File)
		assert.Equal(t, 4, ce.Line)
	})
}

func TestDeriveColumns_MissingInput(t *testing.T) {
	path := writeTable(t, t.TempDir(), "m.txt", "d\n\nfreeFraction n\n0.1 0.2\n")
	ds, err := Aggregate([]string{path})
	require.NoError(t, err)

	_, _, err = DeriveColumns(ds, Propagate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Contains(t, err.Error(), "m.txt")
}

func TestSortByAndFilter(t *testing.T) {
	dir := t.TempDir()
	a := writeTable(t, dir, "a.txt", "alpha\n\nk n\n8 0.1\n2 0.2\n")
	b := writeTable(t, dir, "b.txt", "beta\n\nk n\n4 0.3\n")

	ds, err := Aggregate([]string{a, b})
	require.NoError(t, err)

	sorted, err := ds.SortBy(ColWeight)
	require.NoError(t, err)
	var ks []float64
	for i := range sorted.Rows {
		v, err := sorted.Float(i, ColWeight)
		require.NoError(t, err)
		ks = append(ks, v)
	}
	assert.Equal(t, []float64{2, 4, 8}, ks)

	byDesc, err := ds.SortBy(ColumnDescription)
	require.NoError(t, err)
	assert.Equal(t, "alpha", byDesc.Rows[0].Description)

	_, err = ds.SortBy("nope")
	assert.ErrorIs(t, err, ErrMissingColumn)

	filtered := ds.Filter(func(r Row) bool { return r.Description == "beta" })
	assert.Equal(t, 1, filtered.Len())
	assert.Equal(t, 3, ds.Len())
}

func TestRecord_NonFinite(t *testing.T) {
	r := Row{Description: "d", Filename: "f", Values: map[string]float64{"a": math.Inf(1), "b": 1.5}}
	rec := r.Record([]string{"a", "b", "c"})
	assert.Equal(t, "+Inf", rec["a"])
	assert.Equal(t, 1.5, rec["b"])
	assert.NotContains(t, rec, "c")
	assert.Equal(t, "d", rec[ColumnDescription])
}

func TestSchemaRegistry(t *testing.T) {
	tests := []struct {
		header   []string
		expected Version
	}{
		{[]string{"#m", "n", "unsuccessfull"}, VersionV1},
		{[]string{"m", "n", "unsuccessful-search"}, VersionV2},
		{[]string{"#m", "k", "timeavg-load"}, VersionV3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, schemas[VersionAuto].Resolve(tt.header))
	}

	_, err := LookupSchema("v9")
	assert.Error(t, err)
	s, err := LookupSchema("")
	require.NoError(t, err)
	assert.Equal(t, VersionAuto, s.Version)

	assert.Equal(t, []string{"m", ColUnsuccessfulSearch, ColSuccessfulSearch},
		Canonicalize([]string{"#", "#m", "unsuccessfull", "successfull"}))
}

package chart

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot/plotter"

	"probereport/internal/dataset"
)

// Series is one plotted group
type Series struct {
	Name   string
	Points plotter.XYs
}

// SeriesSet is the result of BuildSeries
type SeriesSet struct {
	Series  []Series
	Dropped int
}

// Points returns the number of points across all series
func (s SeriesSet) Points() int {
	n := 0
	for _, ser := range s.Series {
		n += len(ser.Points)
	}
	return n
}

// Applicable reports whether ds has every column the spec reads
func (s Spec) Applicable(ds *dataset.Dataset) bool {
	for _, c := range s.Columns() {
		if !ds.HasColumn(c) {
			return false
		}
	}
	return true
}

// BuildSeries selects the rows passing every filter, groups them by the
// spec's group column and extracts x/y points. Points with a non-finite
// coordinate are dropped, as are points with y <= 0 on a log axis. Groups are
// ordered by key, numerically when every key is a number; line series are
// ordered by x.
func BuildSeries(ds *dataset.Dataset, spec Spec) (SeriesSet, error) {
	for _, c := range spec.Columns() {
		if !ds.HasColumn(c) {
			return SeriesSet{}, &dataset.ColumnError{Column: c, File: ds.Name, Err: dataset.ErrMissingColumn}
		}
	}

	groups := make(map[string]plotter.XYs)
	var set SeriesSet

rows:
	for _, row := range ds.Rows {
		for _, f := range spec.Filters {
			ok, err := f.Match(row)
			if err != nil {
				return SeriesSet{}, err
			}
			if !ok {
				continue rows
			}
		}

		x, err := row.Float(spec.X)
		if err != nil {
			return SeriesSet{}, err
		}
		y, err := row.Float(spec.Y)
		if err != nil {
			return SeriesSet{}, err
		}

		if !finite(x) || !finite(y) || (spec.YScale == ScaleLog && y <= 0) {
			set.Dropped++
			continue
		}

		key := ""
		if spec.Group != "" {
			cell, ok := row.Cell(spec.Group)
			if !ok {
				_, err := row.Float(spec.Group)
				return SeriesSet{}, err
			}
			key = cell
		}
		groups[key] = append(groups[key], plotter.XY{X: x, Y: y})
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortKeys(keys)

	for _, k := range keys {
		pts := groups[k]
		if spec.Kind == KindLine {
			sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
		}
		set.Series = append(set.Series, Series{Name: k, Points: pts})
	}

	return set, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sortKeys orders group keys numerically when all parse as numbers
func sortKeys(keys []string) {
	nums := make(map[string]float64, len(keys))
	for _, k := range keys {
		v, err := strconv.ParseFloat(k, 64)
		if err != nil {
			sort.Strings(keys)
			return
		}
		nums[k] = v
	}
	sort.Slice(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

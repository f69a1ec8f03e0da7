package dataset

import (
	"math"

	apperrors "probereport/internal/errors"
)

// NonFinitePolicy decides what happens to NaN or infinite derived values
type NonFinitePolicy string

const (
	// Propagate keeps non-finite values in the dataset and counts them
	Propagate NonFinitePolicy = "propagate"
	// Reject fails on the first non-finite value
	Reject NonFinitePolicy = "reject"
)

// DeriveStats reports the non-finite values produced per derived column
type DeriveStats struct {
	NonFinite map[string]int
}

// Total returns the number of non-finite values across all derived columns
func (s DeriveStats) Total() int {
	n := 0
	for _, c := range s.NonFinite {
		n += c
	}
	return n
}

// DeriveColumns returns a new dataset with two columns added to every row:
//
//	tombstones        = 1 - (freeFraction + n)
//	sqrt_unsuccessful = unsuccessful-search ^ -1/2
//
// An unsuccessful-search of zero yields +Inf and a negative one yields NaN.
// Under Reject either aborts with ErrNonFinite naming the file and line.
func DeriveColumns(ds *Dataset, policy NonFinitePolicy) (*Dataset, DeriveStats, error) {
	stats := DeriveStats{NonFinite: map[string]int{
		ColTombstones:       0,
		ColSqrtUnsuccessful: 0,
	}}

	rows := make([]Row, len(ds.Rows))
	for i, r := range ds.Rows {
		free, err := r.Float(ColFreeFraction)
		if err != nil {
			return nil, stats, apperrors.NewSchemaError("cannot derive columns", err)
		}
		n, err := r.Float(ColN)
		if err != nil {
			return nil, stats, apperrors.NewSchemaError("cannot derive columns", err)
		}
		u, err := r.Float(ColUnsuccessfulSearch)
		if err != nil {
			return nil, stats, apperrors.NewSchemaError("cannot derive columns", err)
		}

		derived := map[string]float64{
			ColTombstones:       1 - (free + n),
			ColSqrtUnsuccessful: math.Pow(u, -0.5),
		}

		for _, col := range []string{ColTombstones, ColSqrtUnsuccessful} {
			v := derived[col]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				continue
			}
			if policy == Reject {
				return nil, stats, apperrors.NewAppError(apperrors.ErrTypeValidation, "derived value rejected",
					&ColumnError{Column: col, File: r.Filename, Line: r.Line, Err: ErrNonFinite})
			}
			stats.NonFinite[col]++
		}

		r = r.with(ColTombstones, derived[ColTombstones])
		rows[i] = r.with(ColSqrtUnsuccessful, derived[ColSqrtUnsuccessful])
	}

	columns := make([]string, 0, len(ds.Columns)+2)
	for _, c := range ds.Columns {
		if c != ColTombstones && c != ColSqrtUnsuccessful {
			columns = append(columns, c)
		}
	}
	columns = append(columns, ColTombstones, ColSqrtUnsuccessful)

	return ds.derive(rows, columns), stats, nil
}

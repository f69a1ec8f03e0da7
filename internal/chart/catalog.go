package chart

import (
	"probereport/internal/dataset"
)

// baseCatalog holds the charts every schema version can draw
var baseCatalog = []Spec{
	{
		Name: "unsuccessful-search", X: dataset.ColFreeFraction, Y: dataset.ColUnsuccessfulSearch,
		Group: dataset.ColumnDescription, Kind: KindLine,
		Title: "Unsuccessful search cost", XLabel: "free fraction", YLabel: "probes",
		XReversed: true, Output: "unsuccessful-search",
	},
	{
		Name: "successful-search", X: dataset.ColFreeFraction, Y: dataset.ColSuccessfulSearch,
		Group: dataset.ColumnDescription, Kind: KindLine,
		Title: "Successful search cost", XLabel: "free fraction", YLabel: "probes",
		XReversed: true, Output: "successful-search",
	},
	{
		Name: "unsuccessful-search-log", X: dataset.ColDeletions, Y: dataset.ColUnsuccessfulSearch,
		Group: dataset.ColumnDescription, Kind: KindLine, YScale: ScaleLog,
		Title: "Unsuccessful search cost by deletions", XLabel: "deletions (K)", YLabel: "probes",
		Output: "unsuccessful-search-by-deletions",
	},
	{
		Name: "tombstones", X: dataset.ColFreeFraction, Y: dataset.ColTombstones,
		Group: dataset.ColumnDescription, Kind: KindScatter,
		Title: "Tombstone fraction", XLabel: "free fraction", YLabel: "tombstones",
		XReversed: true, Output: "tombstones",
	},
	{
		Name: "sqrt-unsuccessful", X: dataset.ColFreeFraction, Y: dataset.ColSqrtUnsuccessful,
		Group: dataset.ColumnDescription, Kind: KindLine,
		Title: "Inverse square root of unsuccessful search cost", XLabel: "free fraction", YLabel: "1/sqrt(probes)",
		XReversed: true, Output: "sqrt-unsuccessful",
	},
}

// v3Catalog adds the charts that need the k grouping and time-averaged columns
var v3Catalog = []Spec{
	{
		Name: "unsuccessful-search-by-k", X: dataset.ColFreeFraction, Y: dataset.ColUnsuccessfulSearch,
		Group: dataset.ColWeight, Kind: KindLine,
		Title: "Unsuccessful search cost by k", XLabel: "free fraction", YLabel: "probes",
		XReversed: true, Output: "unsuccessful-search-by-k",
	},
	{
		Name: "insertion", X: dataset.ColFreeFraction, Y: dataset.ColInsertion,
		Group: dataset.ColWeight, Kind: KindLine,
		Title: "Insertion cost", XLabel: "free fraction", YLabel: "probes",
		XReversed: true, Output: "insertion",
	},
	{
		Name: "timeavg-insertion", X: dataset.ColDeletions, Y: dataset.ColTimeavgInsertion,
		Group: dataset.ColWeight, Kind: KindLine, YScale: ScaleLog,
		Title: "Amortized insertion cost", XLabel: "deletions (K)", YLabel: "probes",
		Output: "timeavg-insertion",
	},
	{
		Name: "timeavg-load", X: dataset.ColWeight, Y: dataset.ColTimeavgLoad,
		Group: dataset.ColumnDescription, Kind: KindScatter,
		Title: "Time-averaged load", XLabel: "k", YLabel: "load",
		Filters: []Filter{{Column: dataset.ColTimeavgLoad, Op: OpGt, Value: "0"}},
		Output:  "timeavg-load",
	},
}

// Catalog returns the built-in charts for a schema version
func Catalog(v dataset.Version) []Spec {
	specs := make([]Spec, 0, len(baseCatalog)+len(v3Catalog))
	for _, s := range baseCatalog {
		specs = append(specs, s.withDefaults())
	}
	if v == dataset.VersionV3 {
		for _, s := range v3Catalog {
			specs = append(specs, s.withDefaults())
		}
	}
	return specs
}

// CatalogFor picks the catalog matching the files of ds. The v3 charts are
// only included when every file is v3.
func CatalogFor(ds *dataset.Dataset) []Spec {
	v := dataset.VersionV3
	for _, f := range ds.Files {
		if f.Schema != dataset.VersionV3 {
			v = dataset.VersionV2
			break
		}
	}
	if len(ds.Files) == 0 {
		v = dataset.VersionV2
	}
	return Catalog(v)
}

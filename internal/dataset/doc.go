// Package dataset turns the simulation's whitespace-delimited tables into a
// single combined Dataset.
//
// A source file has a free-form description on line 1, a comment line on
// line 2, a column header on line 3 and one sample per following line.
// ParseFile reads one file into a Table; Aggregate parses a list of files in
// order, tags every row with the file's description and base name and
// concatenates them; DeriveColumns adds the tombstones and sqrt_unsuccessful
// columns computed from the combined rows.
//
// Column names are canonicalised through the schema registry so that legacy
// files (unsuccessfull, successfull) and current files
// (unsuccessful-search, successful-search) share one vocabulary.
//
// Datasets are not modified after construction: SortBy, Filter and
// DeriveColumns all return new values, so a Dataset may be read from several
// goroutines.
package dataset

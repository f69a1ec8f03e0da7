// Package shared holds helpers used by more than one package's tests.
//
// testutil captures slog output for assertions and writes probe input files
// in the two-line-header table format the dataset parser reads.
package shared

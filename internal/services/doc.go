// Package services holds the read-side logic of the report browser.
//
// Datasets are built once at startup by the report pipeline and are never
// mutated afterwards, so every service method is safe for concurrent use
// without locking. HTTP handlers depend on the small interfaces declared in
// the transport package rather than on these concrete types.
package services

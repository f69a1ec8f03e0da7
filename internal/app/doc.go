// Package app wires the report browser together and manages its lifecycle.
//
// NewApplication builds every configured dataset once, through the same
// report pipeline the batch binary uses but without export or rendering,
// then assembles services, the HTTP router and the server around the
// results. Datasets are immutable afterwards; a restart is the only way to
// pick up new input files.
//
// # Lifecycle
//
//	app, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil { ... }
//	return app.Run() // blocks until SIGINT/SIGTERM, then shuts down
package app

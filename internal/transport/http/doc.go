// Package http implements the read-only report browser.
//
// Handlers are thin: they parse the request, call a service, and render JSON
// with go-chi/render. Every failure is turned into an RFC 7807 problem
// document by the shared errors.ErrorHandler, so handlers never write error
// bodies themselves.
//
// Routes:
//
//	GET /healthz                         liveness
//	GET /readyz                          readiness
//	GET /api/datasets                    dataset summaries
//	GET /api/datasets/{name}/rows        rows, filtered by description, filename and limit
//	GET /api/datasets/{name}/files       per-file provenance
//	GET /api/datasets/{name}/charts      files in the dataset output directory
//	GET /charts/*                        static files under the output directory
//	GET /metrics                         Prometheus exposition
package http

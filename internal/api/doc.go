// Package api implements the HTTP REST API for `perfwatch serve`.
//
// New(store, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health     state of the latest evaluation and its counts
//	GET /api/v1/report     full report: window, summary, groups, diagnostics
//	GET /api/v1/outliers   outlier findings, highest z-score first
//	GET /api/v1/baselines  baselines by group and concurrency
//	GET /api/v1/days       evaluated days still held by the store
//	GET /api/v1/alerts     recently delivered alerts, newest first
//
// report, outliers and baselines accept ?day=YYYY-MM-DD to read an earlier
// day still held by the store; the latest evaluation is used otherwise.
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Encode undefined z-scores and statistics as null
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api

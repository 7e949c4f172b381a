// Package ingest turns the benchmark results file into normalised
// measurements.
//
// loader.go reads the CSV file written by the cluster benchmark jobs. Columns
// are located by header name, so column order does not matter; leading spaces
// after delimiters are trimmed.
//
// normalize.go converts each raw Row into a types.Measurement. A row whose
// timestamp, concurrency or elapsed token cannot be parsed is kept with
// Valid=false and a *ParseError; it never aborts the load.
//
// elapsed.go isolates the upstream formatting quirk: the elapsed seconds are
// one whitespace-separated token inside a longer string. TokenElapsed picks
// the token by position, and callers that need a different format can supply
// their own ElapsedParser.
//
// watch.go re-runs a callback whenever the results file is rewritten.
package ingest

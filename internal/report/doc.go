// Package report collects scored findings into a deterministic, ordered
// structure for presentation layers.
//
// Aggregate groups findings by partition key, sorts each group's outliers
// and normal findings by z-score descending, and counts totals. It performs
// no I/O and builds no strings, so the same Report can feed the console
// printer, the metrics exporter and the HTTP API.
package report

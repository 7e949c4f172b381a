// Package exporter encodes an evaluation as Prometheus metric families in
// the text exposition format.
//
// The same encoding backs two outputs: WriteFile for the node_exporter
// textfile collector (written atomically so a scrape never sees a partial
// file) and the /metrics endpoint of `perfwatch serve`.
//
// Per-node series carry node, group and concurrency labels. When a node ran
// more than once on the evaluated day for the same concurrency, only the
// latest run is exported.
package exporter

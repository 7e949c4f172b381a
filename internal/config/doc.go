// Package config loads and watches the perfwatch configuration file.
//
// Top-level sections:
//   - dataset: results file path, CSV column names, elapsed token position
//   - baseline: window_days, fallback_all_history
//   - scoring: threshold (z-score above which a run is an outlier)
//   - groups: ordered prefix→label rules and the fallback label
//   - filter: optional concurrency / group restrictions
//   - export: Prometheus textfile path
//   - alerts: webhook targets (slack|teams|http), URLs resolved from env
//   - server: HTTP port, refresh interval, retention, API key auth for `perfwatch serve`
//
// Load(path) reads the YAML file, applies defaults (35 day window, threshold
// 2.0, the c18/c21/c24 generation rules, port 8080), then validates.
// Default() returns the same defaults for running without a file.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the file on write and
// re-adds the watch after atomic-save renames.
package config

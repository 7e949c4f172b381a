// Package cli implements the perfwatch command line.
//
//	perfwatch check     evaluate the dataset once and print the report
//	perfwatch serve     re-evaluate on change and serve the REST API,
//	                    /metrics and the /ws/stream WebSocket
//	perfwatch validate  check the config file and dataset without scoring
//
// Global flags select the config file and the slog level and format. Logs
// go to stderr; reports go to stdout.
//
// Run returns the process exit code: 0 when the day was evaluated, 1 on a
// fatal error or on outliers with --fail-on-outliers, 2 when there was
// nothing to evaluate.
package cli

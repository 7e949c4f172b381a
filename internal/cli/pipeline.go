package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/config"
	"github.com/clusterautomation/perfwatch/internal/ingest"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// maxLoggedParseErrors bounds the per-row debug lines of one load.
const maxLoggedParseErrors = 20

// loadMeasurements reads and normalises the dataset named in cfg. Rows that
// fail to parse come back as invalid measurements.
func loadMeasurements(cfg *config.Config) ([]types.Measurement, []*ingest.ParseError, error) {
	rows, err := ingest.LoadFile(cfg.Dataset.Path, cfg.Dataset.ColumnNames())
	if err != nil {
		return nil, nil, err
	}

	n := ingest.Normalizer{Elapsed: cfg.Dataset.ElapsedParser()}
	ms, perrs := n.NormalizeAll(rows)
	for i, pe := range perrs {
		if i == maxLoggedParseErrors {
			slog.Debug("cli: further parse errors omitted", "count", len(perrs)-i)
			break
		}
		slog.Debug("cli: row skipped", "line", pe.Line, "field", pe.Field, "err", pe.Err)
	}
	if len(perrs) > 0 {
		slog.Warn("cli: rows failed to parse", "path", cfg.Dataset.Path, "count", len(perrs), "rows", len(rows))
	}
	return ms, perrs, nil
}

// evaluate loads the dataset and scores the day containing now.
func evaluate(cfg *config.Config, now time.Time) (*compute.Evaluation, error) {
	cls, err := cfg.Groups.Classifier()
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	ms, _, err := loadMeasurements(cfg)
	if err != nil {
		return nil, err
	}
	return compute.Evaluate(ms, compute.Options{
		Now:                now,
		WindowDays:         cfg.Baseline.WindowDays,
		Threshold:          cfg.Scoring.Threshold,
		Partitioner:        cls,
		FallbackAllHistory: cfg.Baseline.FallbackAllHistory,
		Concurrency:        cfg.Filter.Concurrency,
		Groups:             cfg.Filter.Groups,
	})
}

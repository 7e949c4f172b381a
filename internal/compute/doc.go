// Package compute derives per-partition performance baselines from benchmark
// history and scores the current day's runs against them.
//
// baseline.go provides Estimate, which filters history to a Window and
// computes mean and sample standard deviation per partition key. Partitions
// with fewer than two valid samples or zero variance are kept but marked
// Insufficient.
//
// score.go provides Score, which turns current measurements into findings.
// A finding is an Outlier only when its z-score is strictly above the
// threshold; faster-than-baseline runs are always Normal, and runs without a
// usable baseline are Indeterminate with an undefined (NaN) z-score.
//
// engine.go provides Evaluate, which splits a dataset into history and the
// evaluated day around an injected reference time and runs both steps.
// Evaluate reports ErrEmptyDataset or *EmptyWindowError when there is nothing
// to evaluate; both match ErrNothingToEvaluate.
package compute

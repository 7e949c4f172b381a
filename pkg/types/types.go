package types

import (
	"fmt"
	"math"
	"time"
)

// Classification is the verdict the scorer assigns to one measurement.
type Classification string

// Classification values.
const (
	Normal        Classification = "normal"
	Outlier       Classification = "outlier"
	Indeterminate Classification = "indeterminate"
)

// Measurement is one benchmark run of one node, normalised from a raw row.
type Measurement struct {
	// Line is the 1-based source line of the row, 0 when unknown.
	Line int

	// Timestamp is the run time in UTC. Zero when the source timestamp
	// could not be parsed.
	Timestamp time.Time

	NodeID      string
	Concurrency int

	// Elapsed is the run time in seconds. It is only meaningful when Valid.
	Elapsed float64

	// Valid is false when any field failed to parse. Invalid measurements
	// are kept for data-quality reporting but never enter statistics.
	Valid bool

	// Err describes why the measurement is invalid.
	Err error
}

// Day returns the UTC midnight at the start of the measurement's day.
func (m Measurement) Day() time.Time {
	return StartOfDay(m.Timestamp)
}

// HasTimestamp reports whether the row carried a parseable timestamp.
func (m Measurement) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// PartitionKey groups measurements that are comparable with each other.
type PartitionKey struct {
	Group       string
	Concurrency int
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%d", k.Group, k.Concurrency)
}

// Less orders keys by group label, then concurrency.
func (k PartitionKey) Less(o PartitionKey) bool {
	if k.Group != o.Group {
		return k.Group < o.Group
	}
	return k.Concurrency < o.Concurrency
}

// Baseline is the expected elapsed-time distribution of one partition over
// a historical window.
type Baseline struct {
	Key         PartitionKey
	Mean        float64
	StdDev      float64 // sample standard deviation (n-1)
	SampleCount int

	WindowStart time.Time
	WindowEnd   time.Time

	// Insufficient marks a baseline that must not be used for scoring:
	// fewer than two samples or zero variance.
	Insufficient bool
}

// Usable reports whether the baseline can score a measurement.
func (b Baseline) Usable() bool {
	return !b.Insufficient && b.SampleCount >= 2 && b.StdDev > 0
}

// Limit returns the elapsed time above which a measurement is an outlier
// for the given threshold.
func (b Baseline) Limit(threshold float64) float64 {
	return b.Mean + threshold*b.StdDev
}

// Finding is the scored result for one current measurement.
type Finding struct {
	Measurement Measurement
	Key         PartitionKey

	// Baseline is nil when no baseline existed for Key.
	Baseline *Baseline

	// ZScore is NaN when the measurement could not be scored.
	ZScore float64

	Classification Classification

	// Reason explains an Indeterminate classification.
	Reason error
}

// HasScore reports whether ZScore is defined.
func (f Finding) HasScore() bool {
	return !math.IsNaN(f.ZScore)
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package compute

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/clusterautomation/perfwatch/internal/classify"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// refNow is the fixed reference time for every test; the evaluated day is
// 2026-03-10 UTC.
var refNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

var refDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// daysAgo returns noon n days before the evaluated day.
func daysAgo(n int) time.Time {
	return refDay.AddDate(0, 0, -n).Add(12 * time.Hour)
}

// todayAt returns the evaluated day at the given hour.
func todayAt(hour int) time.Time {
	return refDay.Add(time.Duration(hour) * time.Hour)
}

func meas(node string, conc int, at time.Time, elapsed float64) types.Measurement {
	return types.Measurement{
		Timestamp:   at,
		NodeID:      node,
		Concurrency: conc,
		Elapsed:     elapsed,
		Valid:       true,
	}
}

func invalid(node string, conc int, at time.Time) types.Measurement {
	return types.Measurement{
		Timestamp:   at,
		NodeID:      node,
		Concurrency: conc,
		Err:         errBadToken,
	}
}

var errBadToken = errors.New("elapsed token missing")

func partitioner(t *testing.T) *classify.Classifier {
	t.Helper()
	c, err := classify.New(classify.DefaultRules(), "")
	if err != nil {
		t.Fatalf("classify.New: %v", err)
	}
	return c
}

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// scenarioAHistory is five 2024-generation runs at concurrency 1:
// 10, 12, 11, 9, 13 seconds.
func scenarioAHistory() []types.Measurement {
	return []types.Measurement{
		meas("c24-01", 1, daysAgo(1), 10),
		meas("c24-02", 1, daysAgo(2), 12),
		meas("c24-03", 1, daysAgo(3), 11),
		meas("c24-04", 1, daysAgo(4), 9),
		meas("c24-05", 1, daysAgo(5), 13),
	}
}

package compute

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// Partitioner assigns a measurement to its partition.
type Partitioner interface {
	Key(m types.Measurement) types.PartitionKey
}

// Estimate computes one Baseline per partition key that has at least one row
// inside w. Only valid measurements contribute samples; a key whose rows are
// all invalid still gets a Baseline with SampleCount 0 so callers can report
// it. The result does not depend on the order of history.
func Estimate(history []types.Measurement, p Partitioner, w Window) map[types.PartitionKey]types.Baseline {
	samples := make(map[types.PartitionKey][]float64)
	for _, m := range history {
		if !partitionable(m) || !w.Contains(m.Timestamp) {
			continue
		}
		k := p.Key(m)
		vals := samples[k]
		if m.Valid {
			vals = append(vals, m.Elapsed)
		}
		samples[k] = vals
	}

	out := make(map[types.PartitionKey]types.Baseline, len(samples))
	for k, vals := range samples {
		out[k] = newBaseline(k, vals, w)
	}
	return out
}

// newBaseline summarises vals. vals may be reordered.
func newBaseline(k types.PartitionKey, vals []float64, w Window) types.Baseline {
	b := types.Baseline{
		Key:         k,
		SampleCount: len(vals),
		WindowStart: w.Start,
		WindowEnd:   w.End,
	}

	switch len(vals) {
	case 0:
		b.Insufficient = true
		return b
	case 1:
		b.Mean = vals[0]
		b.Insufficient = true
		return b
	}

	// Summation order fixes the low bits of the result.
	slices.Sort(vals)
	b.Mean, b.StdDev = stat.MeanStdDev(vals, nil)

	// Identical samples can leave rounding residue in the variance.
	if vals[0] == vals[len(vals)-1] || !(b.StdDev > 0) {
		b.StdDev = 0
		b.Insufficient = true
	}
	return b
}

// partitionable reports whether m can be placed in time and in a partition.
func partitionable(m types.Measurement) bool {
	return m.HasTimestamp() && m.NodeID != "" && m.Concurrency >= 1
}

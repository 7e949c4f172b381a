package compute

import (
	"math"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// DefaultThreshold is the z-score above which a run is an outlier.
const DefaultThreshold = 2.0

// Score classifies each valid measurement in current against its partition's
// baseline. Invalid measurements are skipped and produce no finding.
// Findings are returned in input order.
func Score(current []types.Measurement, baselines map[types.PartitionKey]types.Baseline, p Partitioner, threshold float64) []types.Finding {
	out := make([]types.Finding, 0, len(current))
	for _, m := range current {
		if !m.Valid {
			continue
		}
		k := p.Key(m)
		f := types.Finding{
			Measurement: m,
			Key:         k,
			ZScore:      math.NaN(),
		}

		b, ok := baselines[k]
		if ok {
			bc := b
			f.Baseline = &bc
		}
		if !ok || !b.Usable() {
			f.Classification = types.Indeterminate
			f.Reason = &InsufficientBaselineError{Key: k, Samples: b.SampleCount, Missing: !ok}
			out = append(out, f)
			continue
		}

		f.ZScore = ZScore(m.Elapsed, b)
		f.Classification = Classify(f.ZScore, threshold)
		out = append(out, f)
	}
	return out
}

// ZScore returns the standardised deviation of v from b. It returns NaN for
// a baseline that is not usable instead of dividing by zero.
func ZScore(v float64, b types.Baseline) float64 {
	if !b.Usable() {
		return math.NaN()
	}
	return (v - b.Mean) / b.StdDev
}

// Classify maps a z-score to a classification. Only slower-than-baseline
// runs strictly above threshold are outliers; NaN is Indeterminate.
func Classify(z, threshold float64) types.Classification {
	switch {
	case math.IsNaN(z):
		return types.Indeterminate
	case z > threshold:
		return types.Outlier
	default:
		return types.Normal
	}
}

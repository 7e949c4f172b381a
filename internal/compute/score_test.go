package compute

import (
	"errors"
	"math"
	"testing"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

func usableBaseline(k types.PartitionKey, mean, std float64) map[types.PartitionKey]types.Baseline {
	return map[types.PartitionKey]types.Baseline{
		k: {Key: k, Mean: mean, StdDev: std, SampleCount: 5},
	}
}

func TestScore_ScenarioA_Outlier(t *testing.T) {
	p := partitioner(t)
	baselines := Estimate(scenarioAHistory(), p, WindowBefore(refDay, 35))

	fs := Score([]types.Measurement{meas("c24-06", 1, todayAt(9), 16)}, baselines, p, 2.0)
	if len(fs) != 1 {
		t.Fatalf("findings = %d, want 1", len(fs))
	}
	f := fs[0]
	if !almostEqual(f.ZScore, 5/math.Sqrt(2.5), 1e-9) {
		t.Errorf("ZScore = %v, want ~3.162", f.ZScore)
	}
	if f.Classification != types.Outlier {
		t.Errorf("Classification = %q, want outlier", f.Classification)
	}
	if f.Baseline == nil || f.Baseline.Mean != 11 {
		t.Errorf("Baseline = %+v, want the 2024/1 baseline", f.Baseline)
	}
	if f.Key != key2024x1 {
		t.Errorf("Key = %v", f.Key)
	}
}

func TestScore_ThresholdIsExclusive(t *testing.T) {
	// (14 - 10) / 2 is exactly 2.0.
	fs := Score([]types.Measurement{meas("c24-01", 1, todayAt(9), 14)},
		usableBaseline(key2024x1, 10, 2), partitioner(t), 2.0)

	if fs[0].ZScore != 2.0 {
		t.Fatalf("ZScore = %v, want exactly 2", fs[0].ZScore)
	}
	if fs[0].Classification != types.Normal {
		t.Errorf("z == threshold classified %q, want normal", fs[0].Classification)
	}
}

func TestScore_FasterIsNeverOutlier(t *testing.T) {
	fs := Score([]types.Measurement{
		meas("c24-01", 1, todayAt(9), 0),
		meas("c24-02", 1, todayAt(9), 1),
	}, usableBaseline(key2024x1, 100, 1), partitioner(t), 2.0)

	for _, f := range fs {
		if f.ZScore >= 0 {
			t.Errorf("%s: ZScore = %v, want negative", f.Measurement.NodeID, f.ZScore)
		}
		if f.Classification != types.Normal {
			t.Errorf("%s: faster run classified %q", f.Measurement.NodeID, f.Classification)
		}
	}
}

func TestScore_ScenarioD_AtMean(t *testing.T) {
	fs := Score([]types.Measurement{meas("c24-01", 1, todayAt(9), 11)},
		usableBaseline(key2024x1, 11, 1.5), partitioner(t), 2.0)

	if fs[0].ZScore != 0 {
		t.Errorf("ZScore = %v, want 0", fs[0].ZScore)
	}
	if fs[0].Classification != types.Normal {
		t.Errorf("Classification = %q, want normal", fs[0].Classification)
	}
}

func TestScore_ScenarioB_InsufficientBaseline(t *testing.T) {
	p := partitioner(t)
	k := types.PartitionKey{Group: "2024", Concurrency: 4}
	baselines := Estimate([]types.Measurement{meas("c24-01", 4, daysAgo(1), 20)}, p, WindowBefore(refDay, 35))

	fs := Score([]types.Measurement{meas("c24-02", 4, todayAt(8), 500)}, baselines, p, 2.0)
	f := fs[0]

	if f.Classification != types.Indeterminate {
		t.Errorf("Classification = %q, want indeterminate", f.Classification)
	}
	if f.HasScore() {
		t.Errorf("ZScore = %v, want NaN", f.ZScore)
	}
	if f.Baseline == nil || f.Baseline.SampleCount != 1 {
		t.Errorf("Baseline = %+v, want the insufficient baseline attached", f.Baseline)
	}
	var ib *InsufficientBaselineError
	if !errors.As(f.Reason, &ib) {
		t.Fatalf("Reason = %v, want *InsufficientBaselineError", f.Reason)
	}
	if ib.Key != k || ib.Samples != 1 || ib.Missing {
		t.Errorf("Reason = %+v", ib)
	}
}

func TestScore_MissingBaseline(t *testing.T) {
	fs := Score([]types.Measurement{meas("c21-01", 2, todayAt(8), 5)}, nil, partitioner(t), 2.0)

	f := fs[0]
	if f.Classification != types.Indeterminate || f.HasScore() || f.Baseline != nil {
		t.Errorf("finding = %+v, want indeterminate with no baseline", f)
	}
	var ib *InsufficientBaselineError
	if !errors.As(f.Reason, &ib) || !ib.Missing {
		t.Errorf("Reason = %v, want missing-baseline error", f.Reason)
	}
}

func TestScore_DegenerateBaselineNeverDivides(t *testing.T) {
	// A hand-built baseline that forgot to set Insufficient.
	baselines := map[types.PartitionKey]types.Baseline{
		key2024x1: {Key: key2024x1, Mean: 10, StdDev: 0, SampleCount: 9},
	}
	fs := Score([]types.Measurement{meas("c24-01", 1, todayAt(8), 11)}, baselines, partitioner(t), 2.0)

	if fs[0].Classification != types.Indeterminate {
		t.Errorf("Classification = %q, want indeterminate", fs[0].Classification)
	}
	if math.IsInf(fs[0].ZScore, 0) {
		t.Error("ZScore is Inf: division by zero happened")
	}
}

func TestScore_SkipsInvalidMeasurements(t *testing.T) {
	fs := Score([]types.Measurement{
		invalid("c24-01", 1, todayAt(8)),
		meas("c24-02", 1, todayAt(8), 10),
	}, usableBaseline(key2024x1, 10, 1), partitioner(t), 2.0)

	if len(fs) != 1 {
		t.Fatalf("findings = %d, want 1 (invalid row skipped)", len(fs))
	}
	if fs[0].Measurement.NodeID != "c24-02" {
		t.Errorf("unexpected finding for %s", fs[0].Measurement.NodeID)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		z    float64
		want types.Classification
	}{
		{3.01, types.Outlier},
		{3.0, types.Normal},
		{0, types.Normal},
		{-50, types.Normal},
		{math.NaN(), types.Indeterminate},
		{math.Inf(1), types.Outlier},
	}
	for _, tc := range tests {
		if got := Classify(tc.z, 3.0); got != tc.want {
			t.Errorf("Classify(%v, 3) = %q, want %q", tc.z, got, tc.want)
		}
	}
}

func TestZScore_UnusableBaseline(t *testing.T) {
	if z := ZScore(5, types.Baseline{Mean: 1, StdDev: 1, SampleCount: 1}); !math.IsNaN(z) {
		t.Errorf("ZScore with one sample = %v, want NaN", z)
	}
}

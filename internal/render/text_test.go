package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/clusterautomation/perfwatch/internal/classify"
	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

var refNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func at(daysBefore, hour int) time.Time {
	return time.Date(2026, 3, 10-daysBefore, hour, 0, 0, 0, time.UTC)
}

func meas(node string, conc int, ts time.Time, elapsed float64) types.Measurement {
	return types.Measurement{Timestamp: ts, NodeID: node, Concurrency: conc, Elapsed: elapsed, Valid: true}
}

// history is five 2024-generation runs at concurrency 1: mean 11, std ~1.58.
func history() []types.Measurement {
	return []types.Measurement{
		meas("c24-01", 1, at(1, 12), 10),
		meas("c24-02", 1, at(2, 12), 12),
		meas("c24-03", 1, at(3, 12), 11),
		meas("c24-04", 1, at(4, 12), 9),
		meas("c24-05", 1, at(5, 12), 13),
	}
}

func evaluate(t *testing.T, ms []types.Measurement) (*compute.Evaluation, error) {
	t.Helper()
	c, err := classify.New(classify.DefaultRules(), "")
	if err != nil {
		t.Fatalf("classify.New: %v", err)
	}
	return compute.Evaluate(ms, compute.Options{
		Now:         refNow,
		WindowDays:  35,
		Threshold:   2,
		Partitioner: c,
	})
}

func render(t *testing.T, ev *compute.Evaluation, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	opts.NoColor = true
	if err := NewPrinter(&buf, opts).Print(ev); err != nil {
		t.Fatalf("Print: %v", err)
	}
	return buf.String()
}

func TestPrint_Outlier(t *testing.T) {
	ms := append(history(), meas("c24-06", 1, at(0, 9), 16.8))
	ev, err := evaluate(t, ms)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	out := render(t, ev, Options{})

	for _, want := range []string{
		"--- CLUSTER HEALTH REPORT: 2026-03-10 ---",
		"using data from 2026-03-05 to 2026-03-10, 35 day window",
		"SLOW NODE: c24-06 (2024, 1 threads)",
		"Time: 16.80s",
		"Baseline (35d): 11.00s ± 1.58s",
		"Deviation: +3.7x standard deviations",
		"Outliers: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "All nodes performed") {
		t.Error("all-clear line printed alongside an outlier")
	}
}

func TestPrint_AllNormal(t *testing.T) {
	ms := append(history(), meas("c24-06", 1, at(0, 9), 11.5))
	ev, err := evaluate(t, ms)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	out := render(t, ev, Options{})

	if !strings.Contains(out, "All nodes performed within normal parameters today.") {
		t.Errorf("missing all-clear line\n%s", out)
	}
	if strings.Contains(out, "SLOW NODE") {
		t.Error("unexpected outlier block")
	}
	if strings.Contains(out, "Parse failures") {
		t.Error("parse failure line printed with zero failures")
	}
}

func TestPrint_IndeterminateAndParseFailures(t *testing.T) {
	ms := append(history(),
		meas("c24-06", 1, at(0, 9), 11),
		meas("c18-01", 8, at(0, 9), 40),
		types.Measurement{NodeID: "c24-07", Concurrency: 1, Timestamp: at(0, 10)},
	)
	ev, err := evaluate(t, ms)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	out := render(t, ev, Options{})
	if !strings.Contains(out, "Indeterminate: 1") {
		t.Errorf("missing indeterminate count\n%s", out)
	}
	if !strings.Contains(out, "Parse failures: 1 row(s) skipped") {
		t.Errorf("missing parse failure count\n%s", out)
	}
	if strings.Contains(out, "c18-01 (2018, 8 threads)") {
		t.Error("indeterminate runs listed without ShowIndeterminate")
	}

	out = render(t, ev, Options{ShowIndeterminate: true})
	if !strings.Contains(out, "c18-01 (2018, 8 threads): compute: no baseline for 2018/8") {
		t.Errorf("missing indeterminate detail\n%s", out)
	}
}

func TestPrintNothingToEvaluate(t *testing.T) {
	tests := []struct {
		name string
		ms   []types.Measurement
		want string
	}{
		{"empty dataset", nil, "No data found."},
		{"no history", []types.Measurement{meas("c24-01", 1, at(0, 9), 10)}, "No data found in the last 35 days"},
		{"no runs today", history(), "No data found for date: 2026-03-10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := evaluate(t, tc.ms)
			if err == nil {
				t.Fatal("expected nothing-to-evaluate error")
			}
			var buf bytes.Buffer
			if err := NewPrinter(&buf, Options{NoColor: true}).PrintNothingToEvaluate(ev, err); err != nil {
				t.Fatalf("PrintNothingToEvaluate: %v", err)
			}
			if !strings.Contains(buf.String(), tc.want) {
				t.Errorf("got %q, want it to contain %q", buf.String(), tc.want)
			}
		})
	}
}

func TestPrint_ColorDisabledForNonTerminal(t *testing.T) {
	ms := append(history(), meas("c24-06", 1, at(0, 9), 16.8))
	ev, err := evaluate(t, ms)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var buf bytes.Buffer
	if err := NewPrinter(&buf, Options{}).Print(ev); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("escape sequences written to a non-terminal writer")
	}
}

package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/store"
)

// DiagnosticHint is one human-readable insight about an evaluation. The UI
// shows Title as a chip and Detail on click.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level  string `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with the hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from an entry, critical first.
func computeDiagnostics(e *store.Entry) []DiagnosticHint {
	hints := []DiagnosticHint{}

	var we *compute.EmptyWindowError
	switch {
	case errors.Is(e.Err, compute.ErrEmptyDataset):
		return append(hints, DiagnosticHint{
			Key:    "empty_dataset",
			Level:  "critical",
			Title:  "Dataset is empty",
			Detail: "The results file has no data rows. Check that the benchmark jobs are writing to the configured dataset path.",
		})
	case errors.As(e.Err, &we) && we.Scope == compute.ScopeCurrent:
		hints = append(hints, DiagnosticHint{
			Key:   "no_runs_today",
			Level: "warning",
			Title: "No runs today",
			Detail: fmt.Sprintf("No benchmark row is dated %s. Did the tests run today? "+
				"The report will fill in once today's results are appended.", we.Window.Start.Format(time.DateOnly)),
		})
	case errors.As(e.Err, &we):
		hints = append(hints, DiagnosticHint{
			Key:   "no_history",
			Level: "critical",
			Title: "No baseline history",
			Detail: fmt.Sprintf("No rows fall inside the baseline window %s, so nothing can be scored. "+
				"Widen baseline.window_days or check that older results were not rotated away.", we.Window),
		})
	case e.Err != nil:
		return append(hints, DiagnosticHint{
			Key:    "evaluation_failed",
			Level:  "critical",
			Title:  "Evaluation failed",
			Detail: e.Err.Error(),
		})
	}

	ev := e.Evaluation
	if ev == nil {
		return hints
	}

	if n := ev.Report.Summary.Outliers; n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "outliers",
			Level: "critical",
			Title: fmt.Sprintf("%d slow run(s)", n),
			Detail: fmt.Sprintf("%d run(s) took more than %.1f standard deviations longer than their group's baseline. "+
				"Check the listed nodes for thermal throttling, failing DIMMs or noisy neighbours.", n, ev.Threshold),
			Value: &v,
		})
	}

	if n := ev.Report.Summary.Indeterminate; n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "insufficient_baseline",
			Level: "warning",
			Title: "Unscored runs",
			Detail: fmt.Sprintf("%d run(s) could not be scored because their group and concurrency %s. "+
				"These runs are neither normal nor outliers.", n, insufficientReason(ev)),
			Value: &v,
		})
	}

	if ev.ParseFailures > 0 {
		v := float64(ev.ParseFailures)
		hints = append(hints, DiagnosticHint{
			Key:   "parse_failures",
			Level: "info",
			Title: "Unparsable rows",
			Detail: fmt.Sprintf("%d of %d row(s) were skipped because a field could not be parsed "+
				"(timestamp, node, concurrency or elapsed time).", ev.ParseFailures, ev.Rows),
			Value: &v,
		})
	}

	if e.Err == nil && ev.Report.Summary.Outliers == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "all_normal",
			Level:  "ok",
			Title:  "All nodes normal",
			Detail: "All nodes performed within normal parameters today.",
		})
	}
	return hints
}

// insufficientReason describes why baselines were unusable, preferring the
// most common cause.
func insufficientReason(ev *compute.Evaluation) string {
	var missing, sparse int
	for _, g := range ev.Report.Groups {
		for _, f := range g.Indeterminate {
			var ib *compute.InsufficientBaselineError
			if errors.As(f.Reason, &ib) && ib.Missing {
				missing++
			} else {
				sparse++
			}
		}
	}
	if missing >= sparse {
		return "have no history in the window"
	}
	return "have fewer than two distinct samples in the window"
}

package compute

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/clusterautomation/perfwatch/internal/report"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// DefaultWindowDays is the default length of the historical window.
const DefaultWindowDays = 35

// Options parameterises one evaluation. Nothing in Evaluate reads the wall
// clock; Now decides which day is evaluated.
type Options struct {
	// Now is the reference time. The evaluated day is the UTC day containing
	// Now, and the history window ends at that day's midnight.
	Now time.Time

	WindowDays int
	Threshold  float64

	Partitioner Partitioner

	// FallbackAllHistory estimates a baseline from all rows before the
	// evaluated day for keys that have no rows inside the window.
	FallbackAllHistory bool

	// Concurrency and Groups restrict the evaluation when non-empty.
	Concurrency []int
	Groups      []string
}

// Evaluation is the outcome of one run.
type Evaluation struct {
	// Day is the UTC midnight of the evaluated day.
	Day time.Time

	// History is the window baselines were estimated from.
	History Window

	// HistoryEarliest is the earliest row found inside History.
	HistoryEarliest time.Time

	Threshold  float64
	WindowDays int

	Baselines map[types.PartitionKey]types.Baseline
	Report    report.Report

	// Rows is the number of rows in the dataset, ParseFailures the number
	// of those that were invalid.
	Rows          int
	ParseFailures int

	// HistoryRows and CurrentRows count in-scope rows on each side.
	HistoryRows int
	CurrentRows int
}

// BaselineList returns the baselines ordered by key.
func (e *Evaluation) BaselineList() []types.Baseline {
	out := make([]types.Baseline, 0, len(e.Baselines))
	for _, b := range e.Baselines {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// Evaluate estimates baselines from the window before the evaluated day and
// scores the evaluated day's measurements against them.
//
// When there is nothing to evaluate Evaluate returns a partially filled
// Evaluation (day, window, row and parse-failure counts) together with
// ErrEmptyDataset or an *EmptyWindowError. Invalid options return a nil
// Evaluation and a plain error.
func Evaluate(ms []types.Measurement, opts Options) (*Evaluation, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	day := types.StartOfDay(opts.Now)
	today := Window{Start: day, End: day.Add(Day)}
	ev := &Evaluation{
		Day:        day,
		History:    WindowBefore(day, opts.WindowDays),
		Threshold:  opts.Threshold,
		WindowDays: opts.WindowDays,
		Rows:       len(ms),
	}
	if len(ms) == 0 {
		return ev, ErrEmptyDataset
	}

	var history, current, prior []types.Measurement
	for _, m := range ms {
		if !m.Valid {
			ev.ParseFailures++
		}
		if !partitionable(m) || !opts.inScope(m) {
			continue
		}
		switch {
		case ev.History.Contains(m.Timestamp):
			history = append(history, m)
			if ev.HistoryEarliest.IsZero() || m.Timestamp.Before(ev.HistoryEarliest) {
				ev.HistoryEarliest = m.Timestamp
			}
		case today.Contains(m.Timestamp):
			current = append(current, m)
		}
		if m.Timestamp.Before(day) {
			prior = append(prior, m)
		}
	}
	ev.HistoryRows = len(history)
	ev.CurrentRows = len(current)

	if len(history) == 0 {
		return ev, &EmptyWindowError{Scope: ScopeHistory, Window: ev.History}
	}
	if len(current) == 0 {
		return ev, &EmptyWindowError{Scope: ScopeCurrent, Window: today}
	}

	ev.Baselines = Estimate(history, opts.Partitioner, ev.History)
	if opts.FallbackAllHistory {
		fillFromPrior(ev.Baselines, current, prior, opts.Partitioner, day)
	}

	findings := Score(current, ev.Baselines, opts.Partitioner, opts.Threshold)
	ev.Report = report.Aggregate(findings)

	slog.Debug("compute: evaluation finished",
		"day", day.Format(time.DateOnly),
		"history_rows", ev.HistoryRows,
		"current_rows", ev.CurrentRows,
		"baselines", len(ev.Baselines),
		"outliers", ev.Report.Summary.Outliers,
		"indeterminate", ev.Report.Summary.Indeterminate,
	)
	return ev, nil
}

// fillFromPrior adds baselines for current keys that have no rows in the
// window, estimated from every row before day.
func fillFromPrior(baselines map[types.PartitionKey]types.Baseline, current, prior []types.Measurement, p Partitioner, day time.Time) {
	missing := make(map[types.PartitionKey]bool)
	for _, m := range current {
		if k := p.Key(m); !hasKey(baselines, k) {
			missing[k] = true
		}
	}
	if len(missing) == 0 {
		return
	}

	var subset []types.Measurement
	var earliest time.Time
	for _, m := range prior {
		if !missing[p.Key(m)] {
			continue
		}
		subset = append(subset, m)
		if earliest.IsZero() || m.Timestamp.Before(earliest) {
			earliest = m.Timestamp
		}
	}
	if len(subset) == 0 {
		return
	}

	for k, b := range Estimate(subset, p, Window{Start: earliest, End: day}) {
		baselines[k] = b
	}
}

func hasKey(baselines map[types.PartitionKey]types.Baseline, k types.PartitionKey) bool {
	_, ok := baselines[k]
	return ok
}

func (o Options) validate() error {
	if o.Partitioner == nil {
		return fmt.Errorf("compute: options: partitioner is required")
	}
	if o.Now.IsZero() {
		return fmt.Errorf("compute: options: reference time is required")
	}
	if o.WindowDays <= 0 {
		return fmt.Errorf("compute: options: window_days must be positive, got %d", o.WindowDays)
	}
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) || o.Threshold <= 0 {
		return fmt.Errorf("compute: options: threshold must be a positive number, got %v", o.Threshold)
	}
	return nil
}

func (o Options) inScope(m types.Measurement) bool {
	if len(o.Concurrency) > 0 && !slices.Contains(o.Concurrency, m.Concurrency) {
		return false
	}
	if len(o.Groups) > 0 && !slices.Contains(o.Groups, o.Partitioner.Key(m).Group) {
		return false
	}
	return true
}

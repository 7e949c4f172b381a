package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/config"
)

const maxHistoryLen = 50

// Severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is one outlier notification.
type Alert struct {
	Day       string         `json:"day"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Threshold float64        `json:"threshold"`
	Outliers  []OutlierEntry `json:"outliers"`
	FiredAt   time.Time      `json:"fired_at"`
}

// OutlierEntry describes one slow run inside an Alert.
type OutlierEntry struct {
	Node        string    `json:"node"`
	Group       string    `json:"group"`
	Concurrency int       `json:"concurrency"`
	Timestamp   time.Time `json:"timestamp"`
	Elapsed     float64   `json:"elapsed_seconds"`
	Mean        float64   `json:"baseline_mean_seconds"`
	StdDev      float64   `json:"baseline_stddev_seconds"`
	ZScore      float64   `json:"zscore"`
}

// Notifier posts alerts to webhooks.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	now func() time.Time

	mu       sync.Mutex
	webhooks []config.WebhookConfig
	client   *http.Client
	last     string // fingerprint of the last delivered alert
	history  []*Alert
}

// New creates a Notifier from the alerts configuration. A Notifier without
// webhooks still records alerts; Notify just delivers nothing.
func New(cfg config.AlertsConfig) *Notifier {
	return newNotifier(cfg, time.Now)
}

func newNotifier(cfg config.AlertsConfig, now func() time.Time) *Notifier {
	n := &Notifier{now: now}
	n.Reconfigure(cfg)
	return n
}

// Reconfigure replaces the webhook targets and timeout. Dedup state and
// history are kept.
func (n *Notifier) Reconfigure(cfg config.AlertsConfig) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultWebhookTimeout
	}
	n.mu.Lock()
	n.webhooks = cfg.Webhooks
	n.client = &http.Client{Timeout: timeout}
	n.mu.Unlock()
}

// Build returns the Alert for ev, or nil when ev has no outliers.
func Build(ev *compute.Evaluation, firedAt time.Time) *Alert {
	outliers := ev.Report.Outliers()
	if len(outliers) == 0 {
		return nil
	}

	a := &Alert{
		Day:       ev.Day.Format(time.DateOnly),
		Severity:  SeverityWarning,
		Threshold: ev.Threshold,
		FiredAt:   firedAt,
	}
	var lines []string
	for _, f := range outliers {
		e := OutlierEntry{
			Node:        f.Measurement.NodeID,
			Group:       f.Key.Group,
			Concurrency: f.Key.Concurrency,
			Timestamp:   f.Measurement.Timestamp,
			Elapsed:     f.Measurement.Elapsed,
			ZScore:      f.ZScore,
		}
		if f.Baseline != nil {
			e.Mean, e.StdDev = f.Baseline.Mean, f.Baseline.StdDev
		}
		a.Outliers = append(a.Outliers, e)
		if f.ZScore >= ev.Threshold+1 {
			a.Severity = SeverityCritical
		}
		lines = append(lines, fmt.Sprintf("%s (%s, %d threads): %.2fs vs %.2fs ± %.2fs, +%.1f sd",
			e.Node, e.Group, e.Concurrency, e.Elapsed, e.Mean, e.StdDev, e.ZScore))
	}
	a.Message = fmt.Sprintf("%d slow node run(s) on %s\n%s", len(outliers), a.Day, strings.Join(lines, "\n"))
	return a
}

// Notify delivers the alert for ev to every webhook. It returns nil without
// sending when ev has no outliers or the same outliers were already
// delivered for that day. Delivery failures are logged and returned joined,
// and the alert is sent again on the next call.
func (n *Notifier) Notify(ctx context.Context, ev *compute.Evaluation) error {
	a := Build(ev, n.now())
	if a == nil {
		return nil
	}

	fp := fingerprint(a)
	n.mu.Lock()
	if fp == n.last {
		n.mu.Unlock()
		slog.Debug("alerts: outliers unchanged, not re-sending", "day", a.Day)
		return nil
	}
	n.last = fp
	n.history = append(n.history, a)
	if len(n.history) > maxHistoryLen {
		n.history = n.history[len(n.history)-maxHistoryLen:]
	}
	n.mu.Unlock()

	slog.Warn("alerts: outliers detected",
		"day", a.Day,
		"outliers", len(a.Outliers),
		"severity", a.Severity,
	)
	if err := n.deliver(ctx, a); err != nil {
		// Allow the next evaluation to retry.
		n.mu.Lock()
		if n.last == fp {
			n.last = ""
		}
		n.mu.Unlock()
		return err
	}
	return nil
}

// Recent returns copies of the delivered alerts, newest first.
func (n *Notifier) Recent() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Alert, 0, len(n.history))
	for i := len(n.history) - 1; i >= 0; i-- {
		out = append(out, *n.history[i])
	}
	return out
}

// fingerprint identifies an alert by day and outlier runs.
func fingerprint(a *Alert) string {
	keys := make([]string, 0, len(a.Outliers))
	for _, o := range a.Outliers {
		keys = append(keys, fmt.Sprintf("%s/%s/%d@%d", o.Node, o.Group, o.Concurrency, o.Timestamp.Unix()))
	}
	sort.Strings(keys)
	return a.Day + "|" + strings.Join(keys, ",")
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("alerts: %w", errors.Join(errs...))
}

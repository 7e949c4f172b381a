package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clusterautomation/perfwatch/internal/alerts"
	"github.com/clusterautomation/perfwatch/internal/api"
	"github.com/clusterautomation/perfwatch/internal/classify"
	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/store"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// --- test helpers -----------------------------------------------------------

var refNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func at(daysBefore, hour int) time.Time {
	return time.Date(2026, 3, 10-daysBefore, hour, 0, 0, 0, time.UTC)
}

func meas(node string, conc int, ts time.Time, elapsed float64) types.Measurement {
	return types.Measurement{Timestamp: ts, NodeID: node, Concurrency: conc, Elapsed: elapsed, Valid: true}
}

// evaluate scores today's runs against a 2024/1 baseline of mean 11.
func evaluate(t *testing.T, now time.Time, today ...types.Measurement) (*compute.Evaluation, error) {
	t.Helper()
	ms := []types.Measurement{
		meas("c24-01", 1, at(1, 12), 10),
		meas("c24-02", 1, at(2, 12), 12),
		meas("c24-03", 1, at(3, 12), 11),
		meas("c24-04", 1, at(4, 12), 9),
		meas("c24-05", 1, at(5, 12), 13),
		{NodeID: "c24-09", Concurrency: 1, Timestamp: at(2, 9)},
	}
	c, err := classify.New(classify.DefaultRules(), "")
	if err != nil {
		t.Fatalf("classify.New: %v", err)
	}
	return compute.Evaluate(append(ms, today...), compute.Options{
		Now: now, WindowDays: 35, Threshold: 2, Partitioner: c,
	})
}

// mixedStore holds one evaluation with an outlier, a normal run and an
// unscored run.
func mixedStore(t *testing.T) *store.Store {
	t.Helper()
	ev, err := evaluate(t, refNow,
		meas("c24-06", 1, at(0, 9), 16.8),
		meas("c24-07", 1, at(0, 9), 11.5),
		meas("c18-01", 8, at(0, 9), 40),
	)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	st := store.New(time.Hour)
	st.Put(ev, nil)
	return st
}

type fakeAlerts []alerts.Alert

func (f fakeAlerts) Recent() []alerts.Alert { return f }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(store.New(time.Hour), nil)
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != "unknown" || resp.Version != 0 {
		t.Errorf("got %+v, want state unknown at version 0", resp)
	}
}

func TestHealth_Outliers(t *testing.T) {
	h := api.New(mixedStore(t), fakeAlerts{{Day: "2026-03-10"}})
	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)

	if resp.State != "outliers" {
		t.Errorf("state: got %q, want outliers", resp.State)
	}
	if resp.Day != "2026-03-10" {
		t.Errorf("day: got %q", resp.Day)
	}
	if resp.OutlierCount != 1 || resp.NormalCount != 1 || resp.Indeterminate != 1 || resp.Scored != 3 {
		t.Errorf("counts: got %+v", resp)
	}
	if resp.ParseFailures != 1 || resp.Rows != 9 {
		t.Errorf("rows/parse failures: got %d/%d, want 9/1", resp.Rows, resp.ParseFailures)
	}
	if resp.AlertCount != 1 {
		t.Errorf("alert_count: got %d, want 1", resp.AlertCount)
	}
}

func TestHealth_States(t *testing.T) {
	tests := []struct {
		name  string
		today []types.Measurement
		err   error
		want  string
	}{
		{"ok", []types.Measurement{meas("c24-06", 1, at(0, 9), 11)}, nil, "ok"},
		{"no runs today", nil, nil, "no_data"},
		{"load failure", nil, errors.New("open dataset: permission denied"), "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := store.New(time.Hour)
			if tc.err != nil {
				st.Put(nil, tc.err)
			} else {
				ev, err := evaluate(t, refNow, tc.today...)
				st.Put(ev, err)
			}
			var resp api.HealthResponse
			decode(t, get(t, api.New(st, nil), "/api/v1/health"), &resp)
			if resp.State != tc.want {
				t.Errorf("state: got %q, want %q", resp.State, tc.want)
			}
			if tc.want != "ok" && resp.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

// --- /api/v1/report ---------------------------------------------------------

func TestReport_Full(t *testing.T) {
	h := api.New(mixedStore(t), nil)
	rr := get(t, h, "/api/v1/report")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}

	var resp api.ReportResponse
	decode(t, rr, &resp)

	if resp.Day != "2026-03-10" || resp.WindowDays != 35 || resp.Threshold != 2 {
		t.Errorf("header fields: got %+v", resp)
	}
	if resp.WindowEnd != "2026-03-10T00:00:00Z" || resp.WindowStart != "2026-02-03T00:00:00Z" {
		t.Errorf("window: got %s .. %s", resp.WindowStart, resp.WindowEnd)
	}
	if resp.HistoryEarliest != "2026-03-05T12:00:00Z" {
		t.Errorf("history_earliest: got %q", resp.HistoryEarliest)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("groups: got %d, want 2", len(resp.Groups))
	}

	var g2024 *api.GroupResponse
	for i := range resp.Groups {
		if resp.Groups[i].Group == "2024" {
			g2024 = &resp.Groups[i]
		}
	}
	if g2024 == nil || g2024.Baseline == nil || *g2024.Baseline.Mean != 11 {
		t.Fatalf("2024 group baseline: got %+v", g2024)
	}
	if len(g2024.Outliers) != 1 || g2024.Outliers[0].Node != "c24-06" {
		t.Errorf("2024 outliers: got %+v", g2024.Outliers)
	}
	if g2024.Outliers[0].ZScore == nil {
		t.Error("outlier zscore is null")
	}

	keys := map[string]bool{}
	for _, d := range resp.Diagnostics {
		keys[d.Key] = true
	}
	for _, want := range []string{"outliers", "insufficient_baseline", "parse_failures"} {
		if !keys[want] {
			t.Errorf("diagnostic %q missing, got %v", want, resp.Diagnostics)
		}
	}
	if keys["all_normal"] {
		t.Error("all_normal diagnostic alongside outliers")
	}
}

func TestReport_IndeterminateZScoreIsNull(t *testing.T) {
	h := api.New(mixedStore(t), nil)
	var raw map[string]interface{}
	decode(t, get(t, h, "/api/v1/report"), &raw)

	for _, g := range raw["groups"].([]interface{}) {
		group := g.(map[string]interface{})
		if group["group"] != "2018" {
			continue
		}
		ind := group["indeterminate"].([]interface{})
		if len(ind) != 1 {
			t.Fatalf("2018 indeterminate: got %v", ind)
		}
		f := ind[0].(map[string]interface{})
		if v, ok := f["zscore"]; !ok || v != nil {
			t.Errorf("zscore: got %v, want null", v)
		}
		if f["reason"] == "" {
			t.Error("reason missing")
		}
		return
	}
	t.Fatal("2018 group not found")
}

func TestReport_NothingToEvaluate(t *testing.T) {
	st := store.New(time.Hour)
	ev, err := evaluate(t, refNow)
	st.Put(ev, err)

	var resp api.ReportResponse
	decode(t, get(t, api.New(st, nil), "/api/v1/report"), &resp)
	if resp.Error == "" {
		t.Error("error missing")
	}
	if resp.ParseFailures != 1 {
		t.Errorf("parse_failures: got %d, want 1", resp.ParseFailures)
	}
	if len(resp.Diagnostics) == 0 || resp.Diagnostics[0].Key != "no_runs_today" {
		t.Errorf("diagnostics: got %+v", resp.Diagnostics)
	}
}

func TestReport_EmptyStore(t *testing.T) {
	rr := get(t, api.New(store.New(time.Hour), nil), "/api/v1/report")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
}

func TestReport_ByDay(t *testing.T) {
	st := mixedStore(t)
	tomorrow := refNow.Add(24 * time.Hour)
	ev, err := evaluate(t, tomorrow, meas("c24-06", 1, tomorrow, 11))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	st.Put(ev, nil)
	h := api.New(st, nil)

	var latest api.ReportResponse
	decode(t, get(t, h, "/api/v1/report"), &latest)
	if latest.Day != "2026-03-11" {
		t.Errorf("latest day: got %q", latest.Day)
	}

	var earlier api.ReportResponse
	decode(t, get(t, h, "/api/v1/report?day=2026-03-10"), &earlier)
	if earlier.Day != "2026-03-10" || earlier.Summary.Outliers != 1 {
		t.Errorf("earlier report: got day %q, %+v", earlier.Day, earlier.Summary)
	}

	if rr := get(t, h, "/api/v1/report?day=2026-01-01"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown day: got %d, want 404", rr.Code)
	}
	if rr := get(t, h, "/api/v1/report?day=yesterday"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad day: got %d, want 400", rr.Code)
	}

	var days []string
	decode(t, get(t, h, "/api/v1/days"), &days)
	if len(days) != 2 || days[0] != "2026-03-11" {
		t.Errorf("days: got %v", days)
	}
}

// --- /api/v1/outliers, /api/v1/baselines, /api/v1/alerts --------------------

func TestOutliers(t *testing.T) {
	var out []api.FindingResponse
	decode(t, get(t, api.New(mixedStore(t), nil), "/api/v1/outliers"), &out)
	if len(out) != 1 {
		t.Fatalf("outliers: got %d, want 1", len(out))
	}
	if out[0].Node != "c24-06" || out[0].Classification != "outlier" || out[0].Elapsed != 16.8 {
		t.Errorf("outlier: got %+v", out[0])
	}
}

func TestBaselines(t *testing.T) {
	var out []api.BaselineResponse
	decode(t, get(t, api.New(mixedStore(t), nil), "/api/v1/baselines"), &out)
	if len(out) != 1 {
		t.Fatalf("baselines: got %d, want 1", len(out))
	}
	b := out[0]
	if b.Group != "2024" || b.Concurrency != 1 || b.SampleCount != 5 {
		t.Errorf("baseline: got %+v", b)
	}
	if b.StdDev == nil || b.Limit == nil {
		t.Fatalf("stddev/limit null for a usable baseline: %+v", b)
	}
	if *b.Limit != 11+2**b.StdDev {
		t.Errorf("limit: got %v, want mean+2*std", *b.Limit)
	}
}

func TestAlerts(t *testing.T) {
	h := api.New(mixedStore(t), fakeAlerts{{Day: "2026-03-10", Severity: alerts.SeverityCritical}})
	var out []alerts.Alert
	decode(t, get(t, h, "/api/v1/alerts"), &out)
	if len(out) != 1 || out[0].Severity != alerts.SeverityCritical {
		t.Errorf("alerts: got %+v", out)
	}

	var none []alerts.Alert
	decode(t, get(t, api.New(mixedStore(t), nil), "/api/v1/alerts"), &none)
	if none == nil || len(none) != 0 {
		t.Errorf("alerts without source: got %v, want []", none)
	}
}

// --- method checks ----------------------------------------------------------

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(mixedStore(t), nil)
	for _, path := range []string{
		"/api/v1/health", "/api/v1/report", "/api/v1/outliers",
		"/api/v1/baselines", "/api/v1/days", "/api/v1/alerts",
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, rr.Code)
		}
	}
}

package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/clusterautomation/perfwatch/internal/alerts"
	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/store"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// AlertSource lists recently delivered alerts.
type AlertSource interface {
	Recent() []alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads evaluations from the store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts AlertSource
	mux    *http.ServeMux
}

// New creates a Handler wired to the given store and registers all routes.
// as may be nil when alerting is not configured.
func New(st *store.Store, as AlertSource) http.Handler {
	h := &Handler{store: st, alerts: as, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/report", h.report)
	h.mux.HandleFunc("/api/v1/outliers", h.outliers)
	h.mux.HandleFunc("/api/v1/baselines", h.baselines)
	h.mux.HandleFunc("/api/v1/days", h.days)
	h.mux.HandleFunc("/api/v1/alerts", h.recentAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{State: "unknown"}
	if h.alerts != nil {
		resp.AlertCount = len(h.alerts.Recent())
	}
	e, ok := h.store.Latest()
	if !ok {
		jsonResp(w, http.StatusOK, resp)
		return
	}

	resp.Version = e.Version
	resp.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	resp.Day = e.Day()
	resp.State = entryState(e)
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	if ev := e.Evaluation; ev != nil {
		s := ev.Report.Summary
		resp.Rows = ev.Rows
		resp.ParseFailures = ev.ParseFailures
		resp.Scored = s.Scored
		resp.NormalCount = s.Normal
		resp.OutlierCount = s.Outliers
		resp.Indeterminate = s.Indeterminate
	}
	jsonResp(w, http.StatusOK, resp)
}

// report returns GET /api/v1/report.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, BuildReport(e))
}

// outliers returns GET /api/v1/outliers.
func (h *Handler) outliers(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	out := make([]FindingResponse, 0)
	if e.Evaluation != nil {
		for _, f := range e.Evaluation.Report.Outliers() {
			out = append(out, toFinding(f))
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// baselines returns GET /api/v1/baselines.
func (h *Handler) baselines(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	out := make([]BaselineResponse, 0)
	if e.Evaluation != nil {
		for _, b := range e.Evaluation.BaselineList() {
			out = append(out, toBaseline(b, e.Evaluation.Threshold))
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// days returns GET /api/v1/days.
func (h *Handler) days(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.Days())
}

// recentAlerts returns GET /api/v1/alerts.
func (h *Handler) recentAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []alerts.Alert{}
	if h.alerts != nil {
		out = append(out, h.alerts.Recent()...)
	}
	jsonResp(w, http.StatusOK, out)
}

// entry resolves the store entry for a GET request, honouring ?day=. It
// writes the error response and returns false when there is none.
func (h *Handler) entry(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	if day := r.URL.Query().Get("day"); day != "" {
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			jsonErr(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return nil, false
		}
		e, ok := h.store.Get(day)
		if !ok {
			jsonErr(w, http.StatusNotFound, "no evaluation for day")
			return nil, false
		}
		return e, true
	}

	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusServiceUnavailable, "no evaluation yet")
		return nil, false
	}
	return e, true
}

// --- builders ---------------------------------------------------------------

// BuildReport maps a store entry to its JSON representation.
func BuildReport(e *store.Entry) ReportResponse {
	resp := ReportResponse{
		Version:   e.Version,
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
		Groups:    []GroupResponse{},
	}
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	ev := e.Evaluation
	if ev == nil {
		resp.Diagnostics = computeDiagnostics(e)
		return resp
	}

	resp.Day = ev.Day.Format(time.DateOnly)
	resp.WindowStart = ev.History.Start.Format(time.RFC3339)
	resp.WindowEnd = ev.History.End.Format(time.RFC3339)
	if !ev.HistoryEarliest.IsZero() {
		resp.HistoryEarliest = ev.HistoryEarliest.UTC().Format(time.RFC3339)
	}
	resp.WindowDays = ev.WindowDays
	resp.Threshold = ev.Threshold
	resp.Rows = ev.Rows
	resp.ParseFailures = ev.ParseFailures
	resp.HistoryRows = ev.HistoryRows
	resp.CurrentRows = ev.CurrentRows

	s := ev.Report.Summary
	resp.Summary = SummaryResponse{
		Scored:        s.Scored,
		Normal:        s.Normal,
		Outliers:      s.Outliers,
		Indeterminate: s.Indeterminate,
	}
	for _, g := range ev.Report.Groups {
		gr := GroupResponse{
			Group:         g.Key.Group,
			Concurrency:   g.Key.Concurrency,
			Outliers:      toFindings(g.Outliers),
			Normal:        toFindings(g.Normal),
			Indeterminate: toFindings(g.Indeterminate),
		}
		if g.Baseline != nil {
			b := toBaseline(*g.Baseline, ev.Threshold)
			gr.Baseline = &b
		}
		resp.Groups = append(resp.Groups, gr)
	}
	resp.Diagnostics = computeDiagnostics(e)
	return resp
}

// entryState summarises an entry as a health state.
func entryState(e *store.Entry) string {
	switch {
	case errors.Is(e.Err, compute.ErrNothingToEvaluate):
		return "no_data"
	case e.Err != nil:
		return "error"
	case e.Evaluation != nil && e.Evaluation.Report.HasOutliers():
		return "outliers"
	default:
		return "ok"
	}
}

func toFindings(fs []types.Finding) []FindingResponse {
	out := make([]FindingResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, toFinding(f))
	}
	return out
}

func toFinding(f types.Finding) FindingResponse {
	fr := FindingResponse{
		Node:           f.Measurement.NodeID,
		Group:          f.Key.Group,
		Concurrency:    f.Key.Concurrency,
		Timestamp:      f.Measurement.Timestamp.UTC().Format(time.RFC3339),
		Elapsed:        f.Measurement.Elapsed,
		ZScore:         finite(f.ZScore),
		Classification: string(f.Classification),
	}
	if f.Reason != nil {
		fr.Reason = f.Reason.Error()
	}
	return fr
}

func toBaseline(b types.Baseline, threshold float64) BaselineResponse {
	br := BaselineResponse{
		Group:        b.Key.Group,
		Concurrency:  b.Key.Concurrency,
		SampleCount:  b.SampleCount,
		WindowStart:  b.WindowStart.UTC().Format(time.RFC3339),
		WindowEnd:    b.WindowEnd.UTC().Format(time.RFC3339),
		Insufficient: b.Insufficient,
	}
	if b.SampleCount > 0 {
		br.Mean = finite(b.Mean)
	}
	if b.Usable() {
		br.StdDev = finite(b.StdDev)
		br.Limit = finite(b.Limit(threshold))
	}
	return br
}

// finite returns a pointer to v, or nil when v is NaN or infinite so that
// it encodes as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

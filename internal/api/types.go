package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is one of: ok | outliers | no_data | error | unknown.
	State         string `json:"state"`
	Day           string `json:"day,omitempty"`
	Version       uint64 `json:"version"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	Rows          int    `json:"rows"`
	ParseFailures int    `json:"parse_failures"`
	Scored        int    `json:"scored"`
	NormalCount   int    `json:"normal_count"`
	OutlierCount  int    `json:"outlier_count"`
	Indeterminate int    `json:"indeterminate_count"`
	AlertCount    int    `json:"alert_count"`
	Error         string `json:"error,omitempty"`
}

// ReportResponse is the payload for GET /api/v1/report and the data of every
// WebSocket message.
type ReportResponse struct {
	Day             string           `json:"day"`
	Version         uint64           `json:"version"`
	UpdatedAt       string           `json:"updated_at"`
	WindowStart     string           `json:"window_start"`
	WindowEnd       string           `json:"window_end"`
	HistoryEarliest string           `json:"history_earliest,omitempty"`
	WindowDays      int              `json:"window_days"`
	Threshold       float64          `json:"threshold"`
	Rows            int              `json:"rows"`
	ParseFailures   int              `json:"parse_failures"`
	HistoryRows     int              `json:"history_rows"`
	CurrentRows     int              `json:"current_rows"`
	Summary         SummaryResponse  `json:"summary"`
	Groups          []GroupResponse  `json:"groups"`
	Diagnostics     []DiagnosticHint `json:"diagnostics"`
	Error           string           `json:"error,omitempty"`
}

// SummaryResponse counts findings by classification.
type SummaryResponse struct {
	Scored        int `json:"scored"`
	Normal        int `json:"normal"`
	Outliers      int `json:"outliers"`
	Indeterminate int `json:"indeterminate"`
}

// GroupResponse holds the findings of one group and concurrency.
type GroupResponse struct {
	Group         string            `json:"group"`
	Concurrency   int               `json:"concurrency"`
	Baseline      *BaselineResponse `json:"baseline,omitempty"`
	Outliers      []FindingResponse `json:"outliers"`
	Normal        []FindingResponse `json:"normal"`
	Indeterminate []FindingResponse `json:"indeterminate"`
}

// BaselineResponse is one baseline in GET /api/v1/baselines.
type BaselineResponse struct {
	Group        string   `json:"group"`
	Concurrency  int      `json:"concurrency"`
	Mean         *float64 `json:"mean_seconds"`
	StdDev       *float64 `json:"stddev_seconds"`
	Limit        *float64 `json:"limit_seconds"`
	SampleCount  int      `json:"sample_count"`
	WindowStart  string   `json:"window_start"`
	WindowEnd    string   `json:"window_end"`
	Insufficient bool     `json:"insufficient"`
}

// FindingResponse is one scored run.
type FindingResponse struct {
	Node           string   `json:"node"`
	Group          string   `json:"group"`
	Concurrency    int      `json:"concurrency"`
	Timestamp      string   `json:"timestamp"`
	Elapsed        float64  `json:"elapsed_seconds"`
	ZScore         *float64 `json:"zscore"`
	Classification string   `json:"classification"`
	Reason         string   `json:"reason,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

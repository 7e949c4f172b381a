package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clusterautomation/perfwatch/internal/classify"
	"github.com/clusterautomation/perfwatch/internal/ingest"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDatasetPath     = "performance_results.csv"
	DefaultWindowDays      = 35
	DefaultThreshold       = 2.0
	DefaultHTTPPort        = 8080
	DefaultRefreshInterval = time.Hour
	DefaultRetention       = 7 * 24 * time.Hour
	DefaultWebhookTimeout  = 10 * time.Second
)

// Config is the full configuration tree. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Dataset  DatasetConfig  `yaml:"dataset"`
	Baseline BaselineConfig `yaml:"baseline"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Groups   GroupsConfig   `yaml:"groups"`
	Filter   FilterConfig   `yaml:"filter"`
	Export   ExportConfig   `yaml:"export"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
}

// DatasetConfig locates and describes the benchmark results file.
type DatasetConfig struct {
	// Path is the CSV file written by the benchmark jobs.
	Path string `yaml:"path"`

	// Columns names the header cells of each field.
	Columns ColumnsConfig `yaml:"columns"`

	// ElapsedToken is the 0-based whitespace token of the elapsed cell that
	// holds the seconds value. -1 parses the whole cell as a number.
	ElapsedToken int `yaml:"elapsed_token"`
}

// ColumnsConfig holds CSV header names.
type ColumnsConfig struct {
	Timestamp   string `yaml:"timestamp"`
	Node        string `yaml:"node"`
	Concurrency string `yaml:"concurrency"`
	Elapsed     string `yaml:"elapsed"`
}

// BaselineConfig controls how history is turned into baselines.
type BaselineConfig struct {
	// WindowDays is the number of whole days before the evaluated day that
	// baselines are estimated from.
	WindowDays int `yaml:"window_days"`

	// FallbackAllHistory estimates a baseline from all earlier rows for
	// partitions with no rows inside the window.
	FallbackAllHistory bool `yaml:"fallback_all_history"`
}

// ScoringConfig controls outlier classification.
type ScoringConfig struct {
	// Threshold is the z-score a run must strictly exceed to be an outlier.
	Threshold float64 `yaml:"threshold"`
}

// GroupsConfig holds the node classification rules.
type GroupsConfig struct {
	// Default is the label for nodes matching no rule.
	Default string `yaml:"default"`

	// Rules are evaluated in order; the first matching prefix wins.
	Rules []classify.Rule `yaml:"rules"`
}

// FilterConfig restricts which measurements are evaluated.
type FilterConfig struct {
	Concurrency []int    `yaml:"concurrency"`
	Groups      []string `yaml:"groups"`
}

// ExportConfig configures metric export.
type ExportConfig struct {
	// Textfile is the path of a Prometheus textfile-collector file written
	// after each evaluation. Empty disables export.
	Textfile string `yaml:"textfile"`
}

// AlertsConfig holds webhook delivery targets.
type AlertsConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`

	// Timeout bounds each webhook request.
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ServerConfig holds settings for `perfwatch serve`.
type ServerConfig struct {
	// HTTPPort is the port the REST API, /metrics and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// RefreshInterval re-evaluates the dataset even without file changes so
	// the evaluated day rolls over at midnight.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Retention is how long evaluations of past days stay queryable.
	Retention time.Duration `yaml:"retention"`

	// Auth configures API key authentication for /api/ and /ws/.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls client authentication on the HTTP server.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// ColumnNames converts the configured header names for the CSV loader.
func (d DatasetConfig) ColumnNames() ingest.Columns {
	return ingest.Columns{
		Timestamp:   d.Columns.Timestamp,
		Node:        d.Columns.Node,
		Concurrency: d.Columns.Concurrency,
		Elapsed:     d.Columns.Elapsed,
	}
}

// ElapsedParser returns the parser selected by ElapsedToken.
func (d DatasetConfig) ElapsedParser() ingest.ElapsedParser {
	if d.ElapsedToken < 0 {
		return ingest.PlainElapsed
	}
	return ingest.TokenElapsed(d.ElapsedToken)
}

// Classifier builds the node classifier from the group rules.
func (g GroupsConfig) Classifier() (*classify.Classifier, error) {
	return classify.New(g.Rules, g.Default)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	cols := ingest.DefaultColumns()
	return &Config{
		Dataset: DatasetConfig{
			Path: DefaultDatasetPath,
			Columns: ColumnsConfig{
				Timestamp:   cols.Timestamp,
				Node:        cols.Node,
				Concurrency: cols.Concurrency,
				Elapsed:     cols.Elapsed,
			},
			ElapsedToken: ingest.DefaultElapsedToken,
		},
		Baseline: BaselineConfig{WindowDays: DefaultWindowDays},
		Scoring:  ScoringConfig{Threshold: DefaultThreshold},
		Groups: GroupsConfig{
			Default: classify.DefaultFallback,
			Rules:   classify.DefaultRules(),
		},
		Alerts: AlertsConfig{Timeout: DefaultWebhookTimeout},
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			RefreshInterval: DefaultRefreshInterval,
			Retention:       DefaultRetention,
		},
	}
}

// Validate checks required fields and structural constraints. Callers that
// override fields after Load (for example from CLI flags) should call it
// again.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	cols := cfg.Dataset.Columns
	if cols.Timestamp == "" || cols.Node == "" || cols.Concurrency == "" || cols.Elapsed == "" {
		return fmt.Errorf("dataset.columns: all four column names are required")
	}
	if cfg.Dataset.ElapsedToken < -1 {
		return fmt.Errorf("dataset.elapsed_token must be >= -1, got %d", cfg.Dataset.ElapsedToken)
	}
	if cfg.Baseline.WindowDays <= 0 {
		return fmt.Errorf("baseline.window_days must be positive")
	}
	t := cfg.Scoring.Threshold
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return fmt.Errorf("scoring.threshold must be a positive number")
	}
	for i, r := range cfg.Groups.Rules {
		if r.Prefix == "" {
			return fmt.Errorf("groups.rules[%d]: prefix is required", i)
		}
		if r.Label == "" {
			return fmt.Errorf("groups.rules[%d] %q: label is required", i, r.Prefix)
		}
	}
	for i, c := range cfg.Filter.Concurrency {
		if c < 1 {
			return fmt.Errorf("filter.concurrency[%d]: %d must be >= 1", i, c)
		}
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("alerts.webhooks[%d]: url_env is required", i)
		}
	}
	if cfg.Alerts.Timeout <= 0 {
		return fmt.Errorf("alerts.timeout must be positive")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.RefreshInterval <= 0 {
		return fmt.Errorf("server.refresh_interval must be positive")
	}
	if cfg.Server.Retention <= 0 {
		return fmt.Errorf("server.retention must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	return nil
}

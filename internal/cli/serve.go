package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterautomation/perfwatch/internal/alerts"
	"github.com/clusterautomation/perfwatch/internal/api"
	"github.com/clusterautomation/perfwatch/internal/auth"
	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/config"
	"github.com/clusterautomation/perfwatch/internal/exporter"
	"github.com/clusterautomation/perfwatch/internal/ingest"
	"github.com/clusterautomation/perfwatch/internal/store"
	"github.com/clusterautomation/perfwatch/internal/ws"
)

// hubInterval is how often the WebSocket hub checks for a new evaluation.
const hubInterval = time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Continuously evaluate the dataset and serve results over HTTP",
		Long: `serve evaluates the dataset at startup, again whenever the dataset or config
file changes and at every refresh interval so the evaluated day follows the
clock. Results are served as JSON under /api/v1/, as Prometheus metrics on
/metrics and pushed to WebSocket clients on /ws/stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.HTTPPort = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			srv := newServer(cfg, root.configPath, time.Now)
			return srv.run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides server.http_port)")
	return cmd
}

// server re-evaluates the dataset on demand and publishes results.
type server struct {
	configPath string
	now        func() time.Time

	mu  sync.Mutex
	cfg *config.Config

	store    *store.Store
	notifier *alerts.Notifier
	trigger  chan struct{}
}

func newServer(cfg *config.Config, configPath string, now func() time.Time) *server {
	return &server{
		configPath: configPath,
		now:        now,
		cfg:        cfg,
		store:      store.New(cfg.Server.Retention),
		notifier:   alerts.New(cfg.Alerts),
		trigger:    make(chan struct{}, 1),
	}
}

func (s *server) config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// setConfig swaps in a reloaded config. Dataset path and server settings
// only take effect on restart.
func (s *server) setConfig(cfg *config.Config) {
	s.mu.Lock()
	prev := s.cfg
	if _, restart := config.Diff(prev, cfg); len(restart) > 0 {
		slog.Warn("cli: keeping running settings until restart", "sections", restart)
		cfg.Dataset.Path = prev.Dataset.Path
		cfg.Server = prev.Server
	}
	s.cfg = cfg
	s.mu.Unlock()
	s.notifier.Reconfigure(cfg.Alerts)
	s.requestEvaluation()
}

// requestEvaluation schedules an evaluation without blocking. Requests that
// arrive while one is pending are merged.
func (s *server) requestEvaluation() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// evaluateOnce runs one evaluation and publishes the result.
func (s *server) evaluateOnce(ctx context.Context) *store.Entry {
	cfg := s.config()
	now := s.now()
	ev, err := evaluate(cfg, now)
	e := s.store.Put(ev, err)

	switch {
	case err == nil:
		slog.Info("cli: evaluation published",
			"day", e.Day(),
			"version", e.Version,
			"outliers", ev.Report.Summary.Outliers,
			"indeterminate", ev.Report.Summary.Indeterminate,
			"parse_failures", ev.ParseFailures,
		)
	case errors.Is(err, compute.ErrNothingToEvaluate):
		slog.Warn("cli: nothing to evaluate", "day", e.Day(), "err", err)
	default:
		slog.Error("cli: evaluation failed", "err", err)
	}

	if ev != nil && cfg.Export.Textfile != "" {
		if werr := exporter.WriteFile(cfg.Export.Textfile, ev, now); werr != nil {
			slog.Error("cli: textfile export failed", "path", cfg.Export.Textfile, "err", werr)
		}
	}
	if err == nil {
		s.notifier.Notify(ctx, ev) //nolint:errcheck // logged by the notifier
	}
	return e
}

// loop evaluates once, then again on every trigger or refresh tick until
// ctx is cancelled.
func (s *server) loop(ctx context.Context, refresh time.Duration) {
	s.evaluateOnce(ctx)

	t := time.NewTicker(refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.evaluateOnce(ctx)
		case <-t.C:
			s.evaluateOnce(ctx)
		}
	}
}

// handler builds the HTTP routes.
func (s *server) handler(hub *ws.Hub) http.Handler {
	a := s.config().Server.Auth
	protect := auth.APIKey(a.Mode, a.EffectiveHeader(), a.Key())

	mux := http.NewServeMux()
	mux.Handle("/api/", protect(api.New(s.store, s.notifier)))
	mux.Handle("/ws/stream", protect(hub))
	mux.Handle("/metrics", exporter.Handler(func() (*compute.Evaluation, time.Time, bool) {
		e, ok := s.store.Latest()
		if !ok {
			return nil, time.Time{}, false
		}
		return e.Evaluation, e.UpdatedAt, true
	}))
	return mux
}

func (s *server) run(ctx context.Context) error {
	cfg := s.config()
	slog.Info("cli: perfwatch serve starting",
		"dataset", cfg.Dataset.Path,
		"http_port", cfg.Server.HTTPPort,
		"refresh_interval", cfg.Server.RefreshInterval,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	go s.store.Run(ctx)

	go func() {
		if err := ingest.Watch(ctx, cfg.Dataset.Path, ingest.DefaultSettle, s.requestEvaluation); err != nil {
			slog.Error("cli: dataset watcher stopped", "err", err)
		}
	}()
	if s.configPath != "" {
		go func() {
			if err := config.Watch(ctx, s.configPath, s.setConfig); err != nil {
				slog.Error("cli: config watcher stopped", "err", err)
			}
		}()
	}

	go s.loop(ctx, cfg.Server.RefreshInterval)

	hub := ws.New(s.store, hubInterval)
	go hub.Run(ctx)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           s.handler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("cli: HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("cli: perfwatch serve shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

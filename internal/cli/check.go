package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterautomation/perfwatch/internal/alerts"
	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/internal/config"
	"github.com/clusterautomation/perfwatch/internal/exporter"
	"github.com/clusterautomation/perfwatch/internal/render"
)

type checkOptions struct {
	dataset            string
	date               string
	now                string
	threshold          float64
	windowDays         int
	fallbackAllHistory bool
	textfile           string
	notify             bool
	noColor            bool
	showIndeterminate  bool
	failOnOutliers     bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	o := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate today's runs against the historical baseline",
		Long: `check loads the dataset once, estimates baselines from the window before the
evaluated day and prints every run whose z-score exceeds the threshold.

The evaluated day is today (UTC) unless --date or --now is given. Exit code 2
means there was nothing to evaluate: an empty dataset, no history in the
window or no runs on the evaluated day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := o.apply(cmd, cfg); err != nil {
				return err
			}
			now, err := o.referenceTime(time.Now)
			if err != nil {
				return err
			}
			return o.run(cmd, cfg, now)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.dataset, "dataset", "", "results CSV (overrides dataset.path)")
	f.StringVar(&o.date, "date", "", "evaluate this UTC day (YYYY-MM-DD)")
	f.StringVar(&o.now, "now", "", "reference time (RFC 3339); the evaluated day is its UTC day")
	f.Float64Var(&o.threshold, "threshold", 0, "z-score threshold (overrides scoring.threshold)")
	f.IntVar(&o.windowDays, "window-days", 0, "baseline window in days (overrides baseline.window_days)")
	f.BoolVar(&o.fallbackAllHistory, "fallback-all-history", false, "use all earlier history for groups with none in the window")
	f.StringVar(&o.textfile, "textfile", "", "write Prometheus metrics to this file (overrides export.textfile)")
	f.BoolVar(&o.notify, "notify", false, "post outliers to the configured webhooks")
	f.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	f.BoolVar(&o.showIndeterminate, "show-indeterminate", false, "list runs that could not be scored")
	f.BoolVar(&o.failOnOutliers, "fail-on-outliers", false, "exit 1 when any outlier is found")
	cmd.MarkFlagsMutuallyExclusive("date", "now")
	return cmd
}

// apply copies explicitly set flags over cfg and revalidates.
func (o *checkOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("dataset") {
		cfg.Dataset.Path = o.dataset
	}
	if f.Changed("threshold") {
		cfg.Scoring.Threshold = o.threshold
	}
	if f.Changed("window-days") {
		cfg.Baseline.WindowDays = o.windowDays
	}
	if f.Changed("fallback-all-history") {
		cfg.Baseline.FallbackAllHistory = o.fallbackAllHistory
	}
	if f.Changed("textfile") {
		cfg.Export.Textfile = o.textfile
	}
	return cfg.Validate()
}

// referenceTime resolves --date / --now, falling back to clock.
func (o *checkOptions) referenceTime(clock func() time.Time) (time.Time, error) {
	switch {
	case o.date != "":
		d, err := time.Parse(time.DateOnly, o.date)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", o.date)
		}
		return d, nil
	case o.now != "":
		t, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --now %q: want RFC 3339", o.now)
		}
		return t, nil
	default:
		return clock(), nil
	}
}

func (o *checkOptions) run(cmd *cobra.Command, cfg *config.Config, now time.Time) error {
	ev, err := evaluate(cfg, now)
	if ev == nil {
		return err
	}

	if cfg.Export.Textfile != "" {
		if werr := exporter.WriteFile(cfg.Export.Textfile, ev, now); werr != nil {
			slog.Error("cli: textfile export failed", "path", cfg.Export.Textfile, "err", werr)
		} else {
			slog.Info("cli: metrics written", "path", cfg.Export.Textfile)
		}
	}

	p := render.NewPrinter(cmd.OutOrStdout(), render.Options{
		NoColor:           o.noColor,
		ShowIndeterminate: o.showIndeterminate,
	})

	if err != nil {
		if !errors.Is(err, compute.ErrNothingToEvaluate) {
			return err
		}
		if perr := p.PrintNothingToEvaluate(ev, err); perr != nil {
			return perr
		}
		return &exitError{code: ExitNoData}
	}

	if err := p.Print(ev); err != nil {
		return err
	}

	if o.notify && ev.Report.HasOutliers() {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Alerts.Timeout*time.Duration(len(cfg.Alerts.Webhooks)+1))
		defer cancel()
		if nerr := alerts.New(cfg.Alerts).Notify(ctx, ev); nerr != nil {
			slog.Error("cli: notification failed", "err", nerr)
		}
	}

	if o.failOnOutliers && ev.Report.HasOutliers() {
		return &exitError{code: ExitFailure}
	}
	return nil
}

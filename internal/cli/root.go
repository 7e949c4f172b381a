package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clusterautomation/perfwatch/internal/config"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitNoData  = 2
)

// exitError carries a non-zero exit code out of a command. Msg is printed
// to stderr when set.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	stderr io.Writer
}

// newRootCmd builds the command tree. Output goes to stdout and logs to
// stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}

	root := &cobra.Command{
		Use:   "perfwatch",
		Short: "Detect slow cluster nodes from benchmark history",
		Long: `perfwatch reads the benchmark results file written by the cluster test jobs,
estimates a per-generation, per-concurrency baseline from the preceding weeks
and flags today's runs whose elapsed time lies too many standard deviations
above it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.stderr, opts.logLevel, opts.logFormat)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config file (defaults apply when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "json", "log format: json|text")

	root.AddCommand(
		newCheckCmd(opts),
		newServeCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

// Run executes the command line in args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(stderr, ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "perfwatch:", err)
	return ExitFailure
}

// loadConfig reads the config file named by --config, or returns defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	slog.Info("cli: config loaded", "path", o.configPath)
	return cfg, nil
}

// setupLogging installs the default slog logger.
func setupLogging(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "text":
		h = slog.NewTextHandler(w, hopts)
	default:
		return fmt.Errorf("invalid --log-format %q: want json|text", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

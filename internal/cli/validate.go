package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// maxListedParseErrors bounds the parse errors printed by validate.
const maxListedParseErrors = 10

func newValidateCmd(root *rootOptions) *cobra.Command {
	var dataset string
	var skipDataset bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and dataset without scoring",
		Long: `validate loads the config file, builds the group rules and parses every row of
the dataset. It prints the effective settings and the rows that failed to
parse, and exits non-zero when the config or the dataset cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dataset") {
				cfg.Dataset.Path = dataset
			}
			cls, err := cfg.Groups.Classifier()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: ok\n")
			fmt.Fprintf(out, "  window: %d days, threshold: %.2f, fallback_all_history: %t\n",
				cfg.Baseline.WindowDays, cfg.Scoring.Threshold, cfg.Baseline.FallbackAllHistory)
			fmt.Fprintf(out, "  groups: %s\n", strings.Join(cls.Labels(), ", "))
			if skipDataset {
				return nil
			}

			ms, perrs, err := loadMeasurements(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "dataset: %s\n", cfg.Dataset.Path)
			fmt.Fprintf(out, "  rows: %d, valid: %d, parse failures: %d\n", len(ms), len(ms)-len(perrs), len(perrs))
			for i, pe := range perrs {
				if i == maxListedParseErrors {
					fmt.Fprintf(out, "  ... %d more\n", len(perrs)-i)
					break
				}
				fmt.Fprintf(out, "  %v\n", pe)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "results CSV (overrides dataset.path)")
	cmd.Flags().BoolVar(&skipDataset, "config-only", false, "validate the config file only")
	return cmd
}

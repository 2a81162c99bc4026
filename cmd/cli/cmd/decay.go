// Package cmd - decay command
package cmd

import (
	"github.com/spf13/cobra"

	"dose-calculator/core/engine"
	"dose-calculator/core/types"
	"dose-calculator/core/ui"
	"dose-calculator/internal/config"
)

var decayFlags requestFlags

// decayCmd reports the decayed activity of a source without a dose pass
var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Show the current activity of a source",
	Long: `Decay a catalogue source from its production date to the reference date.

Examples:
  dose-calculator decay --source 2
  dose-calculator decay --source 0 --date 1/1/2030 --json`,
	Args: cobra.NoArgs,
	RunE: runDecay,
}

func init() {
	rootCmd.AddCommand(decayCmd)
	addRequestFlags(decayCmd, &decayFlags)
	decayCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

func runDecay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := decayFlags.toRequest(config.Get().Defaults, types.Today())
	if err != nil {
		return err
	}

	cat, closeCat, err := openCatalogue(ctx)
	if err != nil {
		return err
	}
	defer closeCat()

	calc := engine.NewCalculator(cat)
	d, err := calc.Decay(ctx, req)
	if err != nil {
		return err
	}

	runner := ui.NewEstimationRunner(newWriter(cmd), calc, 1)
	if jsonOutput {
		return runner.JSONOutput(d)
	}
	runner.DisplayDecay(d)
	return nil
}

// Package cmd provides the CLI commands for dose-calculator.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dose-calculator/core/catalog"
	"dose-calculator/core/ui"
	"dose-calculator/internal/bootstrap"
	"dose-calculator/internal/config"
	"dose-calculator/internal/logging"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dose-calculator",
	Short: "Estimate gamma dose rates from decayed point sources",
	Long: `dose-calculator estimates the dose-equivalent rate and particle flux of a
decayed gamma point source, attenuated through a slab shield and air.

Examples:
  dose-calculator estimate --source 1 --distance 50 --material lead --thickness 2
  dose-calculator estimate --file bench.hcl --save
  dose-calculator decay --source 0 --date 10/19/2026
  dose-calculator catalogue init --driver sqlite --dsn ./catalogue.db`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the CLI; cancelling ctx stops long-running commands
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, JSON or YAML (default is $HOME/.dose-calculator/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".dose-calculator", "config.yaml")
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// newWriter creates a UI writer honoring --no-color and --verbose
func newWriter(cmd *cobra.Command) *ui.Writer {
	w := ui.NewWriter(cmd.OutOrStdout(), noColor)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

// openCatalogue opens the configured catalogue for one command
func openCatalogue(ctx context.Context) (catalog.Catalogue, func() error, error) {
	return bootstrap.OpenCatalogue(ctx, config.Get().Catalogue)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dose-calculator version %s\n", bootstrap.Version)
	},
}

// Package cmd - serve command
package cmd

import (
	"github.com/spf13/cobra"

	"dose-calculator/internal/bootstrap"
	"dose-calculator/internal/config"
)

var (
	serveAddr  string
	serveSave  bool
	serveTrace string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	Long: `Serve the calculator over HTTP.

Endpoints:
  POST /estimate   POST /decay
  GET  /sources    GET  /isotopes
  GET  /health     GET  /version    GET /metrics
  GET  /reports    GET  /reports/{id}   (with --save)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("save") {
			cfg.Server.SaveReports = serveSave
		}
		if serveTrace != "" {
			cfg.Tracing.Enabled = true
			cfg.Tracing.Exporter = serveTrace
		}
		newWriter(cmd).Info("Listening on %s", cfg.Server.Addr)
		return bootstrap.Serve(cmd.Context(), &cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveSave, "save", false, "store every estimate in the report history")
	serveCmd.Flags().StringVar(&serveTrace, "trace", "", "enable tracing with this exporter (stdout or otlp)")
}

// Package main - Entry point for the dose-calculator API server
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dose-calculator/internal/bootstrap"
	"dose-calculator/internal/config"
	"dose-calculator/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Config file (JSON or YAML)")
	addr := flag.String("addr", "", "Server address (default from config)")
	save := flag.Bool("save", false, "Store every estimate in the report history")
	trace := flag.String("trace", "", "Enable tracing with this exporter (stdout or otlp)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *save {
		cfg.Server.SaveReports = true
	}
	if *trace != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = *trace
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatal(err)
	}
	defer logging.Sync()

	fmt.Printf("Dose Calculator API v%s\n", bootstrap.Version)
	fmt.Printf("   API:     http://localhost%s\n", cfg.Server.Addr)
	fmt.Printf("   Metrics: http://localhost%s/metrics\n", cfg.Server.Addr)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Serve(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

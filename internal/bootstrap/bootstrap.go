// Package bootstrap wires configuration into the catalogue, the calculator
// and the report history shared by the CLI and the server binary.
package bootstrap

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dose-calculator/adapters/storage"
	"dose-calculator/api"
	"dose-calculator/core/catalog"
	"dose-calculator/core/engine"
	"dose-calculator/internal/config"
	"dose-calculator/internal/logging"
	"dose-calculator/internal/tracing"
)

// Version is the release version reported by the CLI and the API
const Version = "0.1.0"

// OpenCatalogue opens the configured catalogue. The returned close function
// is never nil.
func OpenCatalogue(ctx context.Context, cfg config.CatalogueConfig) (catalog.Catalogue, func() error, error) {
	noop := func() error { return nil }

	if cfg.Driver == "memory" || cfg.Driver == "" {
		return catalog.NewSeeded(), noop, nil
	}

	db, err := storage.OpenCatalogue(ctx, storage.Dialect(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, noop, err
	}

	if cfg.SeedIfEmpty {
		empty, err := db.Empty(ctx)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		if empty {
			logging.Info("seeding empty catalogue", zap.String("driver", cfg.Driver))
			if err := db.Import(ctx, catalog.Seed()); err != nil {
				_ = db.Close()
				return nil, noop, err
			}
		}
	}
	return db, db.Close, nil
}

// OpenReports opens the configured report history
func OpenReports(ctx context.Context, cfg config.ReportsConfig) (storage.ReportStore, error) {
	return storage.StoreFactory(ctx, storage.Backend(cfg.Backend), map[string]string{
		"path":       cfg.Path,
		"bucket":     cfg.S3.Bucket,
		"region":     cfg.S3.Region,
		"prefix":     cfg.S3.Prefix,
		"endpoint":   cfg.S3.Endpoint,
		"path_style": strconv.FormatBool(cfg.S3.PathStyle),
	})
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, nil)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(shutdownTracing)

	cat, closeCat, err := OpenCatalogue(ctx, cfg.Catalogue)
	if err != nil {
		return err
	}
	defer closeCat()

	var store storage.ReportStore
	if cfg.Server.SaveReports {
		if store, err = OpenReports(ctx, cfg.Reports); err != nil {
			return err
		}
		defer store.Close()
	}

	metrics, err := api.NewMetrics(nil)
	if err != nil {
		return err
	}
	server := api.NewServerWithStore(Version, engine.NewCalculator(cat), store, metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

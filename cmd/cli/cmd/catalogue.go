// Package cmd - Catalogue management commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dose-calculator/adapters/storage"
	"dose-calculator/core/catalog"
	"dose-calculator/core/source"
	"dose-calculator/core/ui"
	"dose-calculator/internal/config"
	"dose-calculator/internal/errors"
)

var catalogueCmd = &cobra.Command{
	Use:     "catalogue",
	Aliases: []string{"catalog"},
	Short:   "Source and coefficient catalogue commands",
	Long: `Inspect the catalogue and load the bundled reference dataset into a
SQLite or Postgres database.`,
}

var catalogueInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Load the bundled dataset into a catalogue database",
	Long: `Create the catalogue schema and import the bundled sources, half-lives,
emission lines and coefficient tables in one transaction.

A populated catalogue is left untouched unless --force is given.

Examples:
  dose-calculator catalogue init --driver sqlite --dsn ./catalogue.db
  dose-calculator catalogue init --driver postgres --dsn postgres://localhost/dose --force`,
	Args: cobra.NoArgs,
	RunE: runCatalogueInit,
}

var catalogueSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List catalogue sources",
	Args:  cobra.NoArgs,
	RunE:  runCatalogueSources,
}

var catalogueIsotopesCmd = &cobra.Command{
	Use:   "isotopes",
	Short: "List isotopes with their half-lives and emission lines",
	Args:  cobra.NoArgs,
	RunE:  runCatalogueIsotopes,
}

var (
	catalogueDriver string
	catalogueDSN    string
	catalogueForce  bool
)

func init() {
	rootCmd.AddCommand(catalogueCmd)
	catalogueCmd.AddCommand(catalogueInitCmd)
	catalogueCmd.AddCommand(catalogueSourcesCmd)
	catalogueCmd.AddCommand(catalogueIsotopesCmd)

	catalogueInitCmd.Flags().StringVar(&catalogueDriver, "driver", "", "database driver: sqlite or postgres (default from config)")
	catalogueInitCmd.Flags().StringVar(&catalogueDSN, "dsn", "", "database path or connection string (default from config)")
	catalogueInitCmd.Flags().BoolVar(&catalogueForce, "force", false, "replace the contents of a populated catalogue")
}

func runCatalogueInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := newWriter(cmd)

	cfg := config.Get().Catalogue
	if catalogueDriver != "" {
		cfg.Driver = catalogueDriver
	}
	if catalogueDSN != "" {
		cfg.DSN = catalogueDSN
	}
	if cfg.Driver != string(storage.DialectSQLite) && cfg.Driver != string(storage.DialectPostgres) {
		return errors.Configf("catalogue init needs a sqlite or postgres driver, got %q", cfg.Driver)
	}

	db, err := storage.OpenCatalogue(ctx, storage.Dialect(cfg.Driver), cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	empty, err := db.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty && !catalogueForce {
		w.Warning("Catalogue already populated; use --force to replace it")
		return nil
	}

	data := catalog.Seed()
	if err := db.Import(ctx, data); err != nil {
		return err
	}
	w.Success("Imported %d sources, %d isotopes and %d coefficient series into %s",
		len(data.Sources), len(data.HalfLives), len(data.Series), cfg.Driver)
	return nil
}

func runCatalogueSources(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := newWriter(cmd)

	cat, closeCat, err := openCatalogue(ctx)
	if err != nil {
		return err
	}
	defer closeCat()

	sources, err := cat.Sources(ctx)
	if err != nil {
		return err
	}

	w.Header("Sources")
	table := w.NewTable("#", "Isotope", "Serial", "Produced", "Activity")
	for _, s := range sources {
		table.AddRow(
			fmt.Sprintf("%d", s.Index),
			s.Isotope,
			s.Serial,
			s.ProductionDate.String(),
			ui.FormatQuantity(s.OriginalActivity, "Bq"),
		)
	}
	table.Render()
	return nil
}

func runCatalogueIsotopes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := newWriter(cmd)

	cat, closeCat, err := openCatalogue(ctx)
	if err != nil {
		return err
	}
	defer closeCat()

	names, err := cat.Isotopes(ctx)
	if err != nil {
		return err
	}

	w.Header("Isotopes")
	table := w.NewTable("Isotope", "Half-life", "Lines (keV)", "Notes")
	for _, name := range names {
		halfLife, err := cat.HalfLife(ctx, name)
		if err != nil {
			return err
		}
		lines, err := cat.Lines(ctx, name)
		if err != nil && !errors.IsType(err, errors.TypeNotFound) {
			return err
		}

		energies := make([]string, 0, len(lines))
		for _, l := range lines {
			energies = append(energies, ui.FormatValue(l.EnergyKeV(), 1))
		}
		note := ""
		if source.IsNeutronOnly(name) {
			note = "only flux for neutrons"
		}
		table.AddRow(name, ui.FormatQuantity(halfLife, "d"), strings.Join(energies, ", "), note)
	}
	table.Render()
	return nil
}

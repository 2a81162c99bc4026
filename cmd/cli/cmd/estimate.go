// Package cmd - estimate command
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dose-calculator/adapters/scenario"
	"dose-calculator/adapters/storage"
	"dose-calculator/core/dose"
	"dose-calculator/core/engine"
	"dose-calculator/core/output"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
	"dose-calculator/core/ui"
	"dose-calculator/internal/bootstrap"
	"dose-calculator/internal/config"
	"dose-calculator/internal/logging"
)

// requestFlags are the inputs of one calculation given on the command line.
// Empty strings fall back to the configured defaults.
type requestFlags struct {
	source          int
	date            string
	distance        string
	material        string
	thickness       string
	doseType        string
	isotope         string
	produced        string
	activity        string
	currentActivity string
}

var (
	estimateFlags requestFlags
	scenarioFile  string
	jsonOutput    bool
	outputFormat  string
	saveReport    bool
	reportLabel   string
	workers       int
)

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the dose rate of a source",
	Long: `Decay a catalogue source to the reference date and compute the flux,
kerma rate and dose-equivalent rate at the given distance behind a shield.

Neutron-only isotopes (Cf-252, Cm-244) report flux only.

Examples:
  dose-calculator estimate --source 0 --distance 25
  dose-calculator estimate --source 1 --distance 50 --material lead --thickness 2 --dose-type personal
  dose-calculator estimate --source 0 --isotope Cs-137 --activity 3.7e10 --produced 1/15/2015
  dose-calculator estimate --file bench.hcl --json
  dose-calculator estimate --file bench.hcl --format markdown > bench.md`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)
	addRequestFlags(estimateCmd, &estimateFlags)

	estimateCmd.Flags().StringVarP(&scenarioFile, "file", "f", "", "HCL scenario file with one or more calculations")
	estimateCmd.Flags().BoolVar(&jsonOutput, "json", false, "print reports as JSON")
	estimateCmd.Flags().StringVar(&outputFormat, "format", "", "render reports as json, markdown or csv instead of tables")
	estimateCmd.Flags().BoolVar(&saveReport, "save", false, "store reports in the history")
	estimateCmd.Flags().StringVar(&reportLabel, "label", "", "label stored with saved reports")
	estimateCmd.Flags().IntVar(&workers, "workers", 0, "parallel scenario workers (default from config)")
}

func addRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().IntVarP(&f.source, "source", "s", -1, "catalogue source index (default from config)")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "reference date m/d/Y (default today)")
	cmd.Flags().StringVar(&f.distance, "distance", "", "distance from source in cm")
	cmd.Flags().StringVarP(&f.material, "material", "m", "", "shield material (Air, Iron, Lead, Aluminium, Copper, Tin, PMMA)")
	cmd.Flags().StringVarP(&f.thickness, "thickness", "t", "", "shield thickness in cm")
	cmd.Flags().StringVar(&f.doseType, "dose-type", "", "dose type (Ambient, Personal)")
	cmd.Flags().StringVar(&f.isotope, "isotope", "", "override the catalogue isotope")
	cmd.Flags().StringVar(&f.produced, "produced", "", "override the production date m/d/Y")
	cmd.Flags().StringVar(&f.activity, "activity", "", "override the original activity in Bq")
	cmd.Flags().StringVar(&f.currentActivity, "current-activity", "", "set the current activity in Bq, bypassing decay")
}

// toRequest resolves flag text against the configured defaults
func (f *requestFlags) toRequest(defaults config.DefaultsConfig, today types.Date) (engine.Request, error) {
	req := engine.Request{
		SourceIndex:   defaults.SourceIndex,
		ReferenceDate: today,
		Distance:      defaults.Distance,
		Material:      defaults.Material,
		Thickness:     defaults.Thickness,
		DoseType:      defaults.DoseType,
	}
	if f.source >= 0 {
		req.SourceIndex = f.source
	}

	var err error
	if f.date != "" {
		if req.ReferenceDate, err = source.ParseDate("reference_date", f.date); err != nil {
			return req, err
		}
	}
	if f.distance != "" {
		if req.Distance, err = source.ParseDistance(f.distance); err != nil {
			return req, err
		}
	}
	if f.material != "" {
		if req.Material, err = shield.ParseMaterial(f.material); err != nil {
			return req, err
		}
	}
	if f.thickness != "" {
		if req.Thickness, err = shield.ParseThickness(f.thickness); err != nil {
			return req, err
		}
	}
	if f.doseType != "" {
		if req.DoseType, err = dose.ParseType(f.doseType); err != nil {
			return req, err
		}
	}

	req.Overrides.Isotope = f.isotope
	if f.produced != "" {
		if req.Overrides.ProductionDate, err = source.ParseDate("production_date", f.produced); err != nil {
			return req, err
		}
	}
	if f.activity != "" {
		v, err := source.ParseActivity("original_activity", f.activity)
		if err != nil {
			return req, err
		}
		req.Overrides.OriginalActivity = &v
	}
	if f.currentActivity != "" {
		v, err := source.ParseActivity("current_activity", f.currentActivity)
		if err != nil {
			return req, err
		}
		req.Overrides.CurrentActivity = &v
	}

	return req, req.Validate()
}

// scenarioOutput is the JSON form of one batch result
type scenarioOutput struct {
	Name     string             `json:"name"`
	Label    string             `json:"label,omitempty"`
	ReportID string             `json:"report_id,omitempty"`
	Report   *engine.RateReport `json:"report,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startTime := time.Now()
	cfg := config.Get()
	w := newWriter(cmd)

	items, labels, err := estimateItems(cfg)
	if err != nil {
		return err
	}

	var formatter output.Formatter
	if outputFormat != "" {
		if formatter, err = output.NewRegistry().Get(outputFormat); err != nil {
			return err
		}
	}

	cat, closeCat, err := openCatalogue(ctx)
	if err != nil {
		return err
	}
	defer closeCat()

	n := workers
	if n <= 0 {
		n = cfg.Defaults.Workers
	}
	runner := ui.NewEstimationRunner(w, engine.NewCalculator(cat), n)

	logging.Debug("starting estimation", zap.Int("calculations", len(items)))
	results := runner.Run(ctx, items)

	ids := make([]string, len(results))
	if saveReport {
		if ids, err = saveResults(ctx, cfg, results, labels); err != nil {
			return err
		}
	}

	if jsonOutput {
		out := make([]scenarioOutput, len(results))
		for i, res := range results {
			out[i] = scenarioOutput{Name: res.Name, Label: labels[i], ReportID: ids[i], Report: res.Report}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			}
		}
		if scenarioFile == "" {
			if out[0].Error != "" {
				return results[0].Err
			}
			return runner.JSONOutput(out[0])
		}
		if err := runner.JSONOutput(out); err != nil {
			return err
		}
		return batchError(results)
	}

	if formatter != nil {
		var entries []output.Entry
		for i, res := range results {
			if res.Err != nil {
				logging.Warn("calculation failed", zap.String("scenario", res.Name), zap.Error(res.Err))
				continue
			}
			entries = append(entries, output.Entry{Name: res.Name, Label: labels[i], Report: res.Report})
		}
		if scenarioFile == "" && len(entries) == 0 {
			return results[0].Err
		}
		if err := formatter.Render(w.Out(), entries); err != nil {
			return err
		}
		return batchError(results)
	}

	if scenarioFile == "" {
		if results[0].Err != nil {
			return results[0].Err
		}
		runner.DisplayReport("Dose Rate Estimate", results[0].Report)
	} else {
		for i, res := range results {
			if res.Err == nil {
				runner.DisplayReport(fmt.Sprintf("%s (%s)", res.Name, labelOr(labels[i], res.Report.Source.Isotope)), res.Report)
			}
		}
		runner.DisplayBatch(results)
	}

	for _, id := range ids {
		if id != "" {
			w.Success("Saved report %s", id)
		}
	}
	runner.DisplayDuration(time.Since(startTime))
	return batchError(results)
}

// estimateItems builds the batch from --file or from the request flags
func estimateItems(cfg *config.Config) ([]engine.BatchItem, []string, error) {
	if scenarioFile == "" {
		req, err := estimateFlags.toRequest(cfg.Defaults, types.Today())
		if err != nil {
			return nil, nil, err
		}
		return []engine.BatchItem{{Name: "estimate", Request: req}}, []string{reportLabel}, nil
	}

	scenarios, err := scenario.NewReader().ReadFile(scenarioFile)
	if err != nil {
		return nil, nil, err
	}
	items := make([]engine.BatchItem, len(scenarios))
	labels := make([]string, len(scenarios))
	for i, sc := range scenarios {
		items[i] = engine.BatchItem{Name: sc.Name, Request: sc.Request}
		labels[i] = labelOr(sc.Label, reportLabel)
	}
	return items, labels, nil
}

func saveResults(ctx context.Context, cfg *config.Config, results []engine.BatchResult, labels []string) ([]string, error) {
	store, err := bootstrap.OpenReports(ctx, cfg.Reports)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ids := make([]string, len(results))
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		stored := &storage.StoredReport{
			Label:   labels[i],
			Request: res.Request,
			Report:  res.Report,
			Metadata: map[string]string{
				"origin":   "cli",
				"scenario": res.Name,
			},
		}
		if scenarioFile != "" {
			stored.Metadata["file"] = scenarioFile
		}
		if err := store.Save(ctx, stored); err != nil {
			return nil, err
		}
		ids[i] = stored.ID
	}
	return ids, nil
}

func batchError(results []engine.BatchResult) error {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calculations failed", failed, len(results))
	}
	return nil
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

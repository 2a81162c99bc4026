// Package ui - Estimation runner with live progress
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dose-calculator/core/engine"
)

// EstimationRunner runs estimations with UI feedback
type EstimationRunner struct {
	w        *Writer
	executor *engine.BatchExecutor
}

// NewEstimationRunner creates a runner
func NewEstimationRunner(w *Writer, calc *engine.Calculator, workers int) *EstimationRunner {
	return &EstimationRunner{
		w:        w,
		executor: engine.NewBatchExecutor(calc, workers),
	}
}

// Run estimates every item, showing a progress bar for batches
func (r *EstimationRunner) Run(ctx context.Context, items []engine.BatchItem) []engine.BatchResult {
	if len(items) == 1 {
		return r.executor.Run(ctx, items, nil)
	}

	bar := r.w.NewProgressBar(len(items), "Estimating")
	results := r.executor.Run(ctx, items, func(p engine.BatchProgress) {
		bar.Update(int(p.Done()))
	})
	bar.Done()
	return results
}

// DisplayReport shows one computation pass
func (r *EstimationRunner) DisplayReport(title string, report *engine.RateReport) {
	src := report.Source

	summary := r.w.NewDoseSummary()
	summary.Title = title
	summary.Applicable = report.DoseApplicable
	summary.Flux = FormatQuantity(report.FluxDisplay.Value, report.FluxDisplay.Unit)
	if report.DoseApplicable {
		summary.DoseRate = FormatQuantity(report.DoseDisplay.Value, report.DoseDisplay.Unit)
		summary.KermaRate = FormatQuantity(*report.TotalKermaRate, "µGy/h")
		summary.Notes = append(summary.Notes, "Dose type: "+report.DoseType.String())
	}
	summary.Render()

	r.w.Println("")
	r.w.SubHeader("Source")
	table := r.w.NewTable("Field", "Value")
	table.AddRow("Isotope", src.Isotope)
	table.AddRow("Serial", src.Serial)
	table.AddRow("Produced", src.ProductionDate.String())
	table.AddRow("Reference", src.ReferenceDate.String())
	table.AddRow("Half-life", FormatQuantity(src.HalfLifeDays, "d"))
	table.AddRow("Original activity", FormatQuantity(src.OriginalActivity, "Bq"))
	table.AddRow("Current activity", FormatQuantity(src.CurrentActivity, "Bq"))
	table.AddRow("Distance", FormatQuantity(src.Distance, "cm"))
	table.AddRow("Shield", fmt.Sprintf("%s %s cm", report.Shield.Material, FormatValue(report.Shield.Thickness, 3)))
	table.AddRow("Air gap", FormatQuantity(report.Shield.AirGap, "cm"))
	table.Render()

	r.w.Println("")
	r.w.SubHeader("Emission lines")
	headers := []string{"Energy (keV)", "Yield (%)", "Shield att.", "Air att.", "Flux (p/cm²s)"}
	if report.DoseApplicable {
		headers = append(headers, "Kerma (µGy/h)", "Dose (µSv/h)")
	}
	lines := r.w.NewTable(headers...)
	for i, l := range report.Lines {
		cells := []string{
			FormatValue(src.Lines[i].EnergyKeV(), 2),
			FormatValue(l.YieldPercent, 3),
			FormatValue(l.ShieldAttenuation, 4),
			FormatValue(l.AirAttenuation, 4),
			FormatValue(l.Flux, 3),
		}
		if report.DoseApplicable {
			cells = append(cells, FormatValue(*l.KermaRate, 4), FormatValue(*l.DoseRate, 4))
		}
		lines.AddRow(cells...)
	}
	lines.Render()

	if !report.DoseApplicable {
		r.w.Println("")
		r.w.Warning("%s emits neutrons: only flux for neutrons", src.Isotope)
	}
}

// DisplayBatch shows a one-line result per item
func (r *EstimationRunner) DisplayBatch(results []engine.BatchResult) {
	r.w.Header("Scenario Results")
	table := r.w.NewTable("Scenario", "Isotope", "Distance", "Shield", "Dose rate", "Flux")
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			table.AddRow(res.Name, "-", "-", "-", "error", res.Err.Error())
			continue
		}
		rep := res.Report
		dose := "only flux for neutrons"
		if rep.DoseApplicable {
			dose = FormatQuantity(rep.DoseDisplay.Value, rep.DoseDisplay.Unit)
		}
		table.AddRow(
			res.Name,
			rep.Source.Isotope,
			FormatQuantity(rep.Source.Distance, "cm"),
			fmt.Sprintf("%s %s cm", rep.Shield.Material, FormatValue(rep.Shield.Thickness, 3)),
			dose,
			FormatQuantity(rep.FluxDisplay.Value, rep.FluxDisplay.Unit),
		)
	}
	table.Render()

	r.w.Println("")
	if failed > 0 {
		r.w.Warning("%d of %d scenarios failed", failed, len(results))
	} else {
		r.w.Success("%d scenarios computed", len(results))
	}
}

// DisplayDecay shows a decay-only result
func (r *EstimationRunner) DisplayDecay(d *engine.DecayReport) {
	r.w.Header("Decay")
	table := r.w.NewTable("Field", "Value")
	table.AddRow("Isotope", d.Source.Isotope)
	table.AddRow("Serial", d.Source.Serial)
	table.AddRow("Produced", d.Source.ProductionDate.String())
	table.AddRow("Reference", d.Source.ReferenceDate.String())
	table.AddRow("Elapsed", fmt.Sprintf("%d d", d.ElapsedDays))
	table.AddRow("Original activity", FormatQuantity(d.Source.OriginalActivity, "Bq"))
	table.AddRow("Current activity", FormatQuantity(d.Source.CurrentActivity, "Bq"))
	table.AddRow("Remaining", FormatValue(d.Ratio*100, 2)+" %")
	table.Render()
}

// DisplayDuration prints the elapsed time
func (r *EstimationRunner) DisplayDuration(d time.Duration) {
	r.w.Println("")
	r.w.Dim("Completed in %s", d.Round(time.Millisecond))
}

// JSONOutput writes any result as indented JSON
func (r *EstimationRunner) JSONOutput(v interface{}) error {
	enc := json.NewEncoder(r.w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

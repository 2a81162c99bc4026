package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dose-calculator/adapters/storage"
	"dose-calculator/core/dose"
	"dose-calculator/core/engine"
	"dose-calculator/core/shield"
	"dose-calculator/core/types"
	"dose-calculator/internal/config"
	"dose-calculator/internal/errors"
)

var today = types.MustParseDate("10/19/2026")

func TestRequestFlagsDefaults(t *testing.T) {
	defaults := config.Default().Defaults
	f := requestFlags{source: -1}

	req, err := f.toRequest(defaults, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SourceIndex != defaults.SourceIndex || req.Distance != defaults.Distance || req.ReferenceDate != today {
		t.Errorf("defaults not applied: %+v", req)
	}
	if req.Overrides.OriginalActivity != nil || req.Overrides.CurrentActivity != nil {
		t.Errorf("unexpected overrides: %+v", req.Overrides)
	}
}

func TestRequestFlagsParse(t *testing.T) {
	f := requestFlags{
		source:          2,
		date:            "3/2/2025",
		distance:        "12.5",
		material:        "copper",
		thickness:       "0.5",
		doseType:        "personal",
		isotope:         "Na-22",
		produced:        "1/1/2020",
		activity:        "3.7e9",
		currentActivity: "1000.4",
	}

	req, err := f.toRequest(config.Default().Defaults, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SourceIndex != 2 || req.Distance != 12.5 || req.Material != shield.Copper || req.Thickness != 0.5 || req.DoseType != dose.Personal {
		t.Errorf("request = %+v", req)
	}
	if req.ReferenceDate.String() != "03/02/2025" || req.Overrides.ProductionDate.String() != "01/01/2020" {
		t.Errorf("dates = %s / %s", req.ReferenceDate, req.Overrides.ProductionDate)
	}
	if *req.Overrides.OriginalActivity != 3.7e9 || *req.Overrides.CurrentActivity != 1000 {
		t.Errorf("activities = %v / %v", *req.Overrides.OriginalActivity, *req.Overrides.CurrentActivity)
	}
}

func TestRequestFlagsErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags requestFlags
		field string
	}{
		{"date", requestFlags{source: -1, date: "2025-03-02"}, "reference_date"},
		{"distance", requestFlags{source: -1, distance: "-3"}, "distance"},
		{"distance text", requestFlags{source: -1, distance: "far"}, "distance"},
		{"material", requestFlags{source: -1, material: "gold"}, "material"},
		{"thickness", requestFlags{source: -1, thickness: "-1"}, "thickness"},
		{"dose type", requestFlags{source: -1, doseType: "effective"}, "dose_type"},
		{"produced", requestFlags{source: -1, produced: "yesterday"}, "production_date"},
		{"activity", requestFlags{source: -1, activity: "-5"}, "original_activity"},
		{"current activity", requestFlags{source: -1, currentActivity: "lots"}, "current_activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.toRequest(config.Default().Defaults, today)
			e, ok := errors.As(err)
			if !ok || e.Type != errors.TypeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if e.Field() != tt.field {
				t.Errorf("field = %q, want %q", e.Field(), tt.field)
			}
		})
	}
}

func TestBatchError(t *testing.T) {
	ok := []engine.BatchResult{{Name: "a"}, {Name: "b"}}
	if err := batchError(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	failed := append(ok, engine.BatchResult{Name: "c", Err: errors.Config("boom")})
	if err := batchError(failed); err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("batchError = %v", err)
	}
}

// execute runs the CLI with a private config file and fresh flag state
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	estimateFlags = requestFlags{source: -1}
	decayFlags = requestFlags{source: -1}
	scenarioFile, jsonOutput, outputFormat, saveReport, reportLabel, workers = "", false, "", false, "", 0
	catalogueDriver, catalogueDSN, catalogueForce = "", "", false
	historyFilter = storage.ListFilter{Limit: 20}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--no-color"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Reports.Path = filepath.Join(dir, "reports")
	path := filepath.Join(dir, "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEstimateCommand(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, cfgPath, "estimate", "--source", "1", "--date", "10/19/2026", "--distance", "50", "--material", "lead", "--thickness", "1")
	if err != nil {
		t.Fatalf("estimate: %v\n%s", err, out)
	}
	for _, want := range []string{"Dose rate:", "Cs-137", "Emission lines"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEstimateNeutronCommand(t *testing.T) {
	out, err := execute(t, writeConfig(t), "estimate", "--source", "6", "--distance", "30", "--json")
	if err != nil {
		t.Fatalf("estimate: %v\n%s", err, out)
	}
	var got scenarioOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Report == nil || got.Report.DoseApplicable || got.Report.TotalDoseRate != nil {
		t.Errorf("neutron report = %+v", got.Report)
	}
}

func TestEstimateCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, writeConfig(t), "estimate", "--distance", "0")
	if !errors.IsValidation(err) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestEstimateFileSaveAndHistory(t *testing.T) {
	cfgPath := writeConfig(t)
	plan := filepath.Join(filepath.Dir(cfgPath), "plan.hcl")
	src := `
calculation "near" {
  label          = "bench"
  source_index   = 0
  reference_date = "10/19/2026"
  distance_cm    = 10
}

calculation "far" {
  source_index   = 0
  reference_date = "10/19/2026"
  distance_cm    = 100

  shield {
    material     = "Iron"
    thickness_cm = 2
  }
}
`
	if err := os.WriteFile(plan, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, cfgPath, "estimate", "--file", plan, "--save", "--workers", "2")
	if err != nil {
		t.Fatalf("estimate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 scenarios computed") || strings.Count(out, "Saved report") != 2 {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, cfgPath, "history", "list", "--label", "bench")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "Co-60") || !strings.Contains(out, "bench") {
		t.Errorf("history list output:\n%s", out)
	}
}

func TestEstimateFormats(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, cfgPath, "estimate", "--source", "4", "--distance", "40", "--format", "markdown")
	if err != nil {
		t.Fatalf("estimate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "## estimate") || !strings.Contains(out, "**Isotope:** Na-22") {
		t.Errorf("markdown output:\n%s", out)
	}

	out, err = execute(t, cfgPath, "estimate", "--source", "4", "--distance", "40", "--format", "csv")
	if err != nil || !strings.Contains(out, "scenario,label,isotope") {
		t.Errorf("csv: %v\n%s", err, out)
	}

	if _, err := execute(t, cfgPath, "estimate", "--format", "pdf"); !errors.IsValidation(err) {
		t.Errorf("expected VALIDATION_ERROR for an unknown format, got %v", err)
	}
}

func TestDecayCommand(t *testing.T) {
	out, err := execute(t, writeConfig(t), "decay", "--source", "1", "--date", "10/19/2026", "--json")
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	var d engine.DecayReport
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if d.Source.Isotope != "Cs-137" || d.Ratio <= 0 || d.Ratio >= 1 {
		t.Errorf("decay = %+v", d)
	}
}

func TestCatalogueCommands(t *testing.T) {
	cfgPath := writeConfig(t)
	dsn := filepath.Join(filepath.Dir(cfgPath), "cat.db")

	out, err := execute(t, cfgPath, "catalogue", "init", "--driver", "sqlite", "--dsn", dsn)
	if err != nil || !strings.Contains(out, "Imported 8 sources") {
		t.Fatalf("init: %v\n%s", err, out)
	}
	out, err = execute(t, cfgPath, "catalogue", "init", "--driver", "sqlite", "--dsn", dsn)
	if err != nil || !strings.Contains(out, "already populated") {
		t.Errorf("second init: %v\n%s", err, out)
	}

	out, err = execute(t, cfgPath, "catalogue", "isotopes")
	if err != nil || !strings.Contains(out, "Cf-252") || !strings.Contains(out, "only flux for neutrons") {
		t.Errorf("isotopes: %v\n%s", err, out)
	}
	out, err = execute(t, cfgPath, "catalogue", "sources")
	if err != nil || !strings.Contains(out, "CS-2231") {
		t.Errorf("sources: %v\n%s", err, out)
	}

	if _, err := execute(t, cfgPath, "catalogue", "init", "--driver", "memory"); !errors.IsConfig(err) {
		t.Errorf("expected CONFIG_ERROR for memory driver, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, writeConfig(t), "version")
	if err != nil || !strings.Contains(out, "dose-calculator version") {
		t.Errorf("version: %v %q", err, out)
	}
}

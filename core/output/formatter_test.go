package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"dose-calculator/core/catalog"
	"dose-calculator/core/engine"
	"dose-calculator/core/shield"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

func entries(t *testing.T) []Entry {
	t.Helper()
	calc := engine.NewCalculator(catalog.NewSeeded())
	ref := types.MustParseDate("10/19/2026")

	cobalt, err := calc.Estimate(context.Background(), engine.Request{SourceIndex: 0, ReferenceDate: ref, Distance: 20, Material: shield.Lead, Thickness: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	californium, err := calc.Estimate(context.Background(), engine.Request{SourceIndex: 6, ReferenceDate: ref, Distance: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return []Entry{
		{Name: "bench", Label: "lab-a", Report: cobalt},
		{Name: "neutron", Report: californium},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if got := strings.Join(r.Names(), ","); got != "csv,json,markdown" {
		t.Errorf("Names = %s", got)
	}
	if f, err := r.Get("Markdown"); err != nil || f.Format() != FormatMarkdown {
		t.Errorf("Get(Markdown) = %v, %v", f, err)
	}
	if _, err := r.Get("html"); !errors.IsValidation(err) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	if err := r.Register(CSVFormatter{}); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestFormatters(t *testing.T) {
	data := entries(t)

	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatJSON, func(t *testing.T, out string) {
			var got []Entry
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 2 || got[0].Report.Source.Isotope != "Co-60" || got[1].Report.DoseApplicable {
				t.Errorf("decoded %+v", got)
			}
		}},
		{FormatMarkdown, func(t *testing.T, out string) {
			for _, want := range []string{"## bench (lab-a)", "**Isotope:** Co-60", "Ambient", "only flux for neutrons", "|---:|"} {
				if !strings.Contains(out, want) {
					t.Errorf("markdown missing %q:\n%s", want, out)
				}
			}
		}},
		{FormatCSV, func(t *testing.T, out string) {
			rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
			if err != nil {
				t.Fatalf("csv: %v", err)
			}
			want := 1 + len(data[0].Report.Lines) + len(data[1].Report.Lines)
			if len(rows) != want {
				t.Fatalf("rows = %d, want %d", len(rows), want)
			}
			last := rows[len(rows)-1]
			if last[2] != "Cf-252" || last[10] != "" {
				t.Errorf("neutron row = %v", last)
			}
		}},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := r.Get(string(tt.format))
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			if err := f.Render(&buf, data); err != nil {
				t.Fatalf("Render: %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

package catalog

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// TestSeedIsValid proves the bundled dataset passes every rule
func TestSeedIsValid(t *testing.T) {
	if err := Seed().Validate(DefaultValidationRules()); err != nil {
		t.Fatalf("seed dataset invalid: %v", err)
	}
}

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	cat := NewSeeded()

	sources, err := cat.Sources(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) == 0 {
		t.Fatal("seed has no sources")
	}
	for i, s := range sources {
		if s.Index != i {
			t.Errorf("source %d has index %d", i, s.Index)
		}
	}

	first, err := cat.Source(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Isotope != "Co-60" {
		t.Errorf("first source = %s, want Co-60", first.Isotope)
	}

	hl, err := cat.HalfLife(ctx, "Co-60")
	if err != nil || hl < 1900 || hl > 1950 {
		t.Errorf("HalfLife(Co-60) = %v, %v", hl, err)
	}

	lines, err := cat.Lines(ctx, "Co-60")
	if err != nil || len(lines) != 2 {
		t.Fatalf("Lines(Co-60) = %+v, %v", lines, err)
	}
	if lines[0].EnergyMeV > lines[1].EnergyMeV {
		t.Error("lines not ordered by energy")
	}

	for _, m := range shield.Materials() {
		samples, err := cat.Coefficients(ctx, CategoryMaterials, m.String())
		if err != nil || len(samples) < 2 {
			t.Errorf("Coefficients(%s) = %d samples, %v", m, len(samples), err)
		}
	}
	for _, key := range []string{dose.Ambient.String(), dose.Personal.String(), dose.KermaKey} {
		if _, err := cat.Coefficients(ctx, CategoryDose, key); err != nil {
			t.Errorf("Coefficients(dose/%s): %v", key, err)
		}
	}

	isotopes, _ := cat.Isotopes(ctx)
	for i := 1; i < len(isotopes); i++ {
		if isotopes[i-1] > isotopes[i] {
			t.Errorf("isotopes not sorted: %v", isotopes)
			break
		}
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	cat := NewSeeded()

	if _, err := cat.Source(ctx, 999); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("Source(999): expected NOT_FOUND, got %v", err)
	}
	if _, err := cat.Source(ctx, -1); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("Source(-1): expected NOT_FOUND, got %v", err)
	}
	if _, err := cat.HalfLife(ctx, "Xx-1"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("HalfLife: expected NOT_FOUND, got %v", err)
	}
	if _, err := cat.Coefficients(ctx, CategoryMaterials, "Gold"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("Coefficients: expected NOT_FOUND, got %v", err)
	}
}

// TestValidateReportsEveryProblem proves validation aggregates errors
func TestValidateReportsEveryProblem(t *testing.T) {
	d := Seed()
	d.AddSource("Xx-1", "BROKEN", types.Date{}, -5)
	d.HalfLives["Co-60"] = 0
	d.AddSeries(CategoryMaterials, "Gold", []types.Sample{{X: 1, Y: 1}})

	err := d.Validate(DefaultValidationRules())
	if !errors.IsConfig(err) {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}

	e, _ := errors.As(err)
	problems := multierr.Errors(e.Cause)
	if len(problems) < 5 {
		t.Errorf("expected at least 5 problems, got %d: %v", len(problems), problems)
	}
	for _, want := range []string{"no half-life for Xx-1", "missing production date", "invalid half-life", "Materials/Gold"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}

	if _, err := NewMemory(d); err == nil {
		t.Error("NewMemory accepted an invalid dataset")
	}
}

func TestValidateRequiresEverySeries(t *testing.T) {
	d := Seed()
	d.Series = d.Series[1:]
	err := d.Validate(DefaultValidationRules())
	if err == nil || !strings.Contains(err.Error(), "Materials/Air is missing") {
		t.Errorf("expected missing Air series, got %v", err)
	}
}

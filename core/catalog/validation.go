// Package catalog - Dataset validation
// Ensures dataset integrity before it is served or imported.
package catalog

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"dose-calculator/core/coefficients"
	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/internal/errors"
)

// ValidationRule is a dataset validation rule
type ValidationRule func(*Dataset) error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateSourceIsotopes,
		validateHalfLives,
		validateLines,
		validateSeriesShape,
		validateSeriesCoverage,
	}
}

// Validate checks a dataset against rules and reports every problem at once
func (d *Dataset) Validate(rules []ValidationRule) error {
	var err error
	for _, rule := range rules {
		err = multierr.Append(err, rule(d))
	}
	if err != nil {
		return errors.Wrap(errors.TypeConfig, "catalogue dataset is invalid", err)
	}
	return nil
}

// validateSourceIsotopes ensures every source can be decayed and computed
func validateSourceIsotopes(d *Dataset) error {
	var err error
	for i, s := range d.Sources {
		if s.Index != i {
			err = multierr.Append(err, fmt.Errorf("source %q: index %d at position %d", s.Serial, s.Index, i))
		}
		if _, ok := d.HalfLives[s.Isotope]; !ok {
			err = multierr.Append(err, fmt.Errorf("source %q: no half-life for %s", s.Serial, s.Isotope))
		}
		if len(d.Lines[s.Isotope]) == 0 {
			err = multierr.Append(err, fmt.Errorf("source %q: no emission lines for %s", s.Serial, s.Isotope))
		}
		if s.ProductionDate.IsZero() {
			err = multierr.Append(err, fmt.Errorf("source %q: missing production date", s.Serial))
		}
		if s.OriginalActivity < 0 || math.IsNaN(s.OriginalActivity) {
			err = multierr.Append(err, fmt.Errorf("source %q: invalid activity %v", s.Serial, s.OriginalActivity))
		}
	}
	return err
}

// validateHalfLives ensures half-lives are positive
func validateHalfLives(d *Dataset) error {
	var err error
	for _, iso := range d.Isotopes() {
		if hl := d.HalfLives[iso]; !(hl > 0) || math.IsInf(hl, 0) {
			err = multierr.Append(err, fmt.Errorf("isotope %s: invalid half-life %v days", iso, hl))
		}
	}
	return err
}

// validateLines ensures spectra are positive and sorted by energy
func validateLines(d *Dataset) error {
	var err error
	for iso, lines := range d.Lines {
		for i, l := range lines {
			if !(l.EnergyMeV > 0) || l.YieldPercent < 0 {
				err = multierr.Append(err, fmt.Errorf("isotope %s: line %d has energy %v and yield %v", iso, i, l.EnergyMeV, l.YieldPercent))
			}
			if i > 0 && l.EnergyMeV < lines[i-1].EnergyMeV {
				err = multierr.Append(err, fmt.Errorf("isotope %s: lines not ordered by energy at %d", iso, i))
			}
		}
	}
	return err
}

// validateSeriesShape ensures every series builds a coefficient table
func validateSeriesShape(d *Dataset) error {
	var err error
	for _, s := range d.Series {
		if _, tErr := coefficients.NewTable(s.Samples); tErr != nil {
			err = multierr.Append(err, fmt.Errorf("series %s: %w", s.SeriesKey, tErr))
		}
	}
	return err
}

// validateSeriesCoverage ensures every material and dose type has a series
func validateSeriesCoverage(d *Dataset) error {
	var required []SeriesKey
	for _, m := range shield.Materials() {
		required = append(required, SeriesKey{Category: CategoryMaterials, Key: m.String()})
	}
	for _, t := range dose.Types() {
		required = append(required, SeriesKey{Category: CategoryDose, Key: t.String()})
	}
	required = append(required, SeriesKey{Category: CategoryDose, Key: dose.KermaKey})

	var err error
	for _, key := range required {
		if _, ok := d.series(key); !ok {
			err = multierr.Append(err, fmt.Errorf("series %s is missing", key))
		}
	}
	return err
}

// MustValidate panics if validation fails
func (d *Dataset) MustValidate() {
	if err := d.Validate(DefaultValidationRules()); err != nil {
		panic(err.Error())
	}
}

// Package catalog - Source and coefficient catalogue
// The catalogue is the single provider of tabular data for a calculation:
// source records, half-lives, emission spectra and coefficient curves.
package catalog

import (
	"context"

	"dose-calculator/core/types"
)

// Category groups coefficient series
type Category string

const (
	// CategoryMaterials holds linear attenuation coefficients (cm⁻¹) keyed
	// by material name
	CategoryMaterials Category = "Materials"

	// CategoryDose holds dose conversion series keyed by dose type, plus the
	// fluence-to-kerma series under "Kerma"
	CategoryDose Category = "DoseConversionCoefficients"
)

// SourceRecord is one physical source in the inventory
type SourceRecord struct {
	Index            int        `json:"index"`
	Isotope          string     `json:"isotope"`
	Serial           string     `json:"serial"`
	ProductionDate   types.Date `json:"production_date"`
	OriginalActivity float64    `json:"original_activity_bq"`
}

// Catalogue provides read-only lookups. Implementations must be safe for
// concurrent use.
type Catalogue interface {
	// Sources lists every source ordered by index
	Sources(ctx context.Context) ([]SourceRecord, error)

	// Source returns the source at a zero-based index
	Source(ctx context.Context, index int) (SourceRecord, error)

	// Isotopes lists isotopes with a known half-life, sorted by name
	Isotopes(ctx context.Context) ([]string, error)

	// HalfLife returns the half-life of an isotope in days
	HalfLife(ctx context.Context, isotope string) (float64, error)

	// Lines returns the emission spectrum of an isotope ordered by energy
	Lines(ctx context.Context, isotope string) ([]types.EmissionLine, error)

	// Coefficients returns a coefficient series ordered by energy
	Coefficients(ctx context.Context, category Category, key string) ([]types.Sample, error)
}

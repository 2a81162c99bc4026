package catalog

import (
	"context"
	"sort"
	"strconv"

	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// Memory serves a validated Dataset from memory. It never mutates the
// dataset after construction, so concurrent reads are safe.
type Memory struct {
	data *Dataset
}

// NewMemory validates a dataset and wraps it
func NewMemory(data *Dataset) (*Memory, error) {
	if err := data.Validate(DefaultValidationRules()); err != nil {
		return nil, err
	}
	return &Memory{data: data}, nil
}

// Sources lists every source ordered by index
func (m *Memory) Sources(ctx context.Context) ([]SourceRecord, error) {
	return append([]SourceRecord(nil), m.data.Sources...), nil
}

// Source returns the source at a zero-based index
func (m *Memory) Source(ctx context.Context, index int) (SourceRecord, error) {
	if index < 0 || index >= len(m.data.Sources) {
		return SourceRecord{}, errors.NotFound("source", strconv.Itoa(index))
	}
	return m.data.Sources[index], nil
}

// Isotopes lists isotopes sorted by name
func (m *Memory) Isotopes(ctx context.Context) ([]string, error) {
	return m.data.Isotopes(), nil
}

// HalfLife returns the half-life of an isotope in days
func (m *Memory) HalfLife(ctx context.Context, isotope string) (float64, error) {
	hl, ok := m.data.HalfLives[isotope]
	if !ok {
		return 0, errors.NotFound("half-life", isotope)
	}
	return hl, nil
}

// Lines returns the emission spectrum of an isotope ordered by energy
func (m *Memory) Lines(ctx context.Context, isotope string) ([]types.EmissionLine, error) {
	lines, ok := m.data.Lines[isotope]
	if !ok {
		return nil, errors.NotFound("emission lines", isotope)
	}
	out := append([]types.EmissionLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EnergyMeV < out[j].EnergyMeV })
	return out, nil
}

// Coefficients returns a coefficient series ordered by energy
func (m *Memory) Coefficients(ctx context.Context, category Category, key string) ([]types.Sample, error) {
	samples, ok := m.data.series(SeriesKey{Category: category, Key: key})
	if !ok {
		return nil, errors.NotFound("coefficient series", string(category)+"/"+key)
	}
	out := append([]types.Sample(nil), samples...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out, nil
}

// Dataset exposes the served dataset, e.g. for export into a store
func (m *Memory) Dataset() *Dataset {
	return m.data
}

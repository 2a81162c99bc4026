package catalog

import (
	"sort"

	"dose-calculator/core/types"
)

// SeriesKey identifies one coefficient series
type SeriesKey struct {
	Category Category `json:"category"`
	Key      string   `json:"key"`
}

// String returns category/key
func (k SeriesKey) String() string {
	return string(k.Category) + "/" + k.Key
}

// Series is a keyed coefficient series
type Series struct {
	SeriesKey
	Samples []types.Sample `json:"samples"`
}

// Dataset is a complete catalogue in memory: what a store imports and what
// the in-memory catalogue serves.
type Dataset struct {
	Sources   []SourceRecord                  `json:"sources"`
	HalfLives map[string]float64              `json:"half_lives"`
	Lines     map[string][]types.EmissionLine `json:"lines"`
	Series    []Series                        `json:"series"`
}

// NewDataset creates an empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		HalfLives: make(map[string]float64),
		Lines:     make(map[string][]types.EmissionLine),
	}
}

// AddSource appends a source; its index is its position
func (d *Dataset) AddSource(isotope, serial string, produced types.Date, activity float64) {
	d.Sources = append(d.Sources, SourceRecord{
		Index:            len(d.Sources),
		Isotope:          isotope,
		Serial:           serial,
		ProductionDate:   produced,
		OriginalActivity: activity,
	})
}

// AddIsotope registers a half-life and emission spectrum
func (d *Dataset) AddIsotope(isotope string, halfLifeDays float64, lines ...types.EmissionLine) {
	d.HalfLives[isotope] = halfLifeDays
	d.Lines[isotope] = append([]types.EmissionLine(nil), lines...)
}

// AddSeries registers a coefficient series
func (d *Dataset) AddSeries(category Category, key string, samples []types.Sample) {
	d.Series = append(d.Series, Series{
		SeriesKey: SeriesKey{Category: category, Key: key},
		Samples:   append([]types.Sample(nil), samples...),
	})
}

// Isotopes returns isotope names sorted
func (d *Dataset) Isotopes() []string {
	names := make([]string, 0, len(d.HalfLives))
	for name := range d.HalfLives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// series returns the samples of a series by key
func (d *Dataset) series(key SeriesKey) ([]types.Sample, bool) {
	for _, s := range d.Series {
		if s.SeriesKey == key {
			return s.Samples, true
		}
	}
	return nil, false
}

package source

import "dose-calculator/core/types"

// Snapshot is an immutable copy of a Source for one computation pass
type Snapshot struct {
	Index            int                  `json:"index"`
	Isotope          string               `json:"isotope"`
	Serial           string               `json:"serial"`
	ProductionDate   types.Date           `json:"production_date"`
	ReferenceDate    types.Date           `json:"reference_date"`
	OriginalActivity float64              `json:"original_activity_bq"`
	HalfLifeDays     float64              `json:"half_life_days"`
	CurrentActivity  float64              `json:"current_activity_bq"`
	Distance         float64              `json:"distance_cm"`
	Lines            []types.EmissionLine `json:"lines"`
	NeutronOnly      bool                 `json:"neutron_only"`
}

// Energies returns the line energies in MeV
func (s Snapshot) Energies() []float64 {
	return types.Energies(s.Lines)
}

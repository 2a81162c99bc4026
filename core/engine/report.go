package engine

import (
	"time"

	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/internal/errors"
)

// Scale is a display magnitude for a rate
type Scale int

const (
	// ScaleUnit leaves the value as computed
	ScaleUnit Scale = iota
	// ScaleKilo divides by 10³
	ScaleKilo
	// ScaleMega divides by 10⁶
	ScaleMega
)

// SelectScale chooses the display scale for a value. Pure.
func SelectScale(v float64) Scale {
	switch {
	case v > 1e6:
		return ScaleMega
	case v > 1e3:
		return ScaleKilo
	default:
		return ScaleUnit
	}
}

// String names the scale
func (s Scale) String() string {
	switch s {
	case ScaleMega:
		return "mega"
	case ScaleKilo:
		return "kilo"
	default:
		return "unit"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Scale) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Scale) UnmarshalText(text []byte) error {
	for _, c := range []Scale{ScaleUnit, ScaleKilo, ScaleMega} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return errors.Newf(errors.TypeParsing, "unknown display scale %q", text)
}

// Factor returns the divisor of the scale
func (s Scale) Factor() float64 {
	switch s {
	case ScaleMega:
		return 1e6
	case ScaleKilo:
		return 1e3
	default:
		return 1
	}
}

// Apply divides v by the scale factor
func (s Scale) Apply(v float64) float64 {
	return v / s.Factor()
}

// DoseUnit returns the dose-rate label for the scale
func (s Scale) DoseUnit() string {
	switch s {
	case ScaleMega:
		return "Sv/h"
	case ScaleKilo:
		return "mSv/h"
	default:
		return "µSv/h"
	}
}

// FluxUnit returns the flux label for the scale
func (s Scale) FluxUnit() string {
	switch s {
	case ScaleMega:
		return "p/cm²s ×10⁶"
	case ScaleKilo:
		return "p/cm²s ×10³"
	default:
		return "p/cm²s"
	}
}

// Display is a scaled value ready for presentation
type Display struct {
	Value float64 `json:"value"`
	Scale Scale   `json:"scale"`
	Unit  string  `json:"unit"`
}

// DoseDisplay scales a dose rate given in µSv/h
func DoseDisplay(v float64) Display {
	s := SelectScale(v)
	return Display{Value: s.Apply(v), Scale: s, Unit: s.DoseUnit()}
}

// FluxDisplay scales a flux given in p/cm²s
func FluxDisplay(v float64) Display {
	s := SelectScale(v)
	return Display{Value: s.Apply(v), Scale: s, Unit: s.FluxUnit()}
}

// ShieldSummary describes the attenuating path of one pass
type ShieldSummary struct {
	Material  shield.Material `json:"material"`
	Thickness float64         `json:"thickness_cm"`
	AirGap    float64         `json:"air_gap_cm"`
}

// LineRate holds the per-line results of one pass.
// KermaRate and DoseRate are nil when dose conversion does not apply.
type LineRate struct {
	EnergyMeV         float64  `json:"energy_mev"`
	YieldPercent      float64  `json:"yield_percent"`
	ShieldAttenuation float64  `json:"shield_attenuation"`
	AirAttenuation    float64  `json:"air_attenuation"`
	Flux              float64  `json:"flux"`
	KermaRate         *float64 `json:"kerma_rate,omitempty"`
	DoseRate          *float64 `json:"dose_rate,omitempty"`
}

// RateReport is the outcome of one computation pass. Every call to Compute
// returns a fresh report; nothing is shared with the inputs.
type RateReport struct {
	Source             source.Snapshot `json:"source"`
	Shield             ShieldSummary   `json:"shield"`
	DoseType           *dose.Type      `json:"dose_type,omitempty"`
	SolidAngleFraction float64         `json:"solid_angle_fraction"`
	Lines              []LineRate      `json:"lines"`

	TotalFlux   float64 `json:"total_flux"`
	FluxDisplay Display `json:"flux_display"`

	// DoseApplicable is false for neutron-only isotopes; the dose fields
	// below are then nil.
	DoseApplicable bool     `json:"dose_applicable"`
	TotalKermaRate *float64 `json:"total_kerma_rate,omitempty"`
	TotalDoseRate  *float64 `json:"total_dose_rate,omitempty"`
	DoseDisplay    *Display `json:"dose_display,omitempty"`

	ComputedAt time.Time     `json:"computed_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// Flux returns the per-line flux in p/cm²s, aligned with the source lines
func (r *RateReport) Flux() []float64 {
	out := make([]float64, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Flux
	}
	return out
}

// KermaRates returns per-line kerma rates in µGy/h, or nil when not applicable
func (r *RateReport) KermaRates() []float64 {
	if !r.DoseApplicable {
		return nil
	}
	out := make([]float64, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = *l.KermaRate
	}
	return out
}

// DoseRates returns per-line dose rates in µSv/h, or nil when not applicable
func (r *RateReport) DoseRates() []float64 {
	if !r.DoseApplicable {
		return nil
	}
	out := make([]float64, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = *l.DoseRate
	}
	return out
}

// TotalDose returns the total dose rate in µSv/h and whether it applies
func (r *RateReport) TotalDose() (float64, bool) {
	if r.TotalDoseRate == nil {
		return 0, false
	}
	return *r.TotalDoseRate, true
}

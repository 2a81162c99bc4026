package types

// EmissionLine is one discrete emission of an isotope.
// For neutron emitters the same shape carries the neutron yield spectrum.
type EmissionLine struct {
	// EnergyMeV is the photon (or neutron) energy in MeV
	EnergyMeV float64 `json:"energy_mev" yaml:"energy_mev"`

	// YieldPercent is the emission probability per decay, in percent
	YieldPercent float64 `json:"yield_percent" yaml:"yield_percent"`
}

// Yield returns the emission probability as a fraction
func (l EmissionLine) Yield() float64 {
	return l.YieldPercent / 100
}

// EnergyKeV returns the energy in keV, the unit used for display
func (l EmissionLine) EnergyKeV() float64 {
	return l.EnergyMeV * 1000
}

// Energies extracts the line energies in MeV, preserving order
func Energies(lines []EmissionLine) []float64 {
	out := make([]float64, len(lines))
	for i, l := range lines {
		out[i] = l.EnergyMeV
	}
	return out
}

// Sample is one (x, y) point of a tabulated coefficient curve
type Sample struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

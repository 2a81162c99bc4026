package shield

import (
	"math"

	"dose-calculator/core/coefficients"
	"dose-calculator/internal/errors"
)

// Shield is a single homogeneous slab along the line of sight.
// A Shield holds no derived state: attenuation is evaluated per pass for the
// energies being computed.
type Shield struct {
	material  Material
	thickness float64
	table     *coefficients.Table
}

// New builds a shield. table holds linear attenuation coefficients (cm⁻¹)
// over energy in MeV. A nil table is allowed only for zero thickness.
func New(material Material, thickness float64, table *coefficients.Table) (*Shield, error) {
	if math.IsNaN(thickness) || math.IsInf(thickness, 0) {
		return nil, errors.Configf("shield thickness must be finite, got %v", thickness)
	}
	if thickness < 0 {
		return nil, errors.Configf("shield thickness must not be negative, got %v cm", thickness)
	}
	if table == nil && thickness > 0 {
		return nil, errors.Configf("%s shield of %v cm has no attenuation table", material, thickness)
	}
	return &Shield{material: material, thickness: thickness, table: table}, nil
}

// None returns a zero-thickness shield
func None() *Shield {
	return &Shield{material: Air}
}

// Material returns the shield material
func (s *Shield) Material() Material {
	return s.material
}

// Thickness returns the slab thickness in cm
func (s *Shield) Thickness() float64 {
	return s.thickness
}

// Table returns the attenuation coefficient table, possibly nil
func (s *Shield) Table() *coefficients.Table {
	return s.table
}

// WithThickness returns a copy of the shield with a new thickness
func (s *Shield) WithThickness(thickness float64) (*Shield, error) {
	return New(s.material, thickness, s.table)
}

// Attenuation returns exp(-t·μ(E)) for every energy, in order.
// Zero thickness yields 1.0 for every line without consulting the table.
func (s *Shield) Attenuation(energies []float64) []float64 {
	out := make([]float64, len(energies))
	for i, e := range energies {
		if s.thickness == 0 {
			out[i] = 1
			continue
		}
		out[i] = math.Exp(-s.thickness * s.table.ValueAt(e))
	}
	return out
}

// AirGap returns the air path between a shield of the given thickness and a
// point at distance cm from the source, floored at zero. The slab is taken
// out of the path, so this is deliberately shorter than the full source
// distance whenever a shield is present.
func AirGap(distance, shieldThickness float64) float64 {
	return math.Max(distance-shieldThickness, 0)
}

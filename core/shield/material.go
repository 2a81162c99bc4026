// Package shield - Slab shielding between source and point of interest
package shield

import (
	"strings"

	"dose-calculator/internal/errors"
)

// Material identifies a shielding material with a tabulated attenuation curve
type Material int

const (
	Air Material = iota
	Iron
	Lead
	Aluminium
	Copper
	Tin
	PMMA
)

// Materials lists every supported material in display order
func Materials() []Material {
	return []Material{Air, Iron, Lead, Aluminium, Copper, Tin, PMMA}
}

// String returns the catalogue key of the material
func (m Material) String() string {
	switch m {
	case Air:
		return "Air"
	case Iron:
		return "Iron"
	case Lead:
		return "Lead"
	case Aluminium:
		return "Aluminium"
	case Copper:
		return "Copper"
	case Tin:
		return "Tin"
	case PMMA:
		return "PMMA"
	default:
		return "unknown"
	}
}

// ParseMaterial resolves a material name, case-insensitively
func ParseMaterial(name string) (Material, error) {
	for _, m := range Materials() {
		if strings.EqualFold(m.String(), strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return 0, errors.Validation("material", "unknown shield material: "+name)
}

// MarshalText implements encoding.TextMarshaler
func (m Material) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Material) UnmarshalText(text []byte) error {
	parsed, err := ParseMaterial(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

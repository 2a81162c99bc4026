// Package dose - Flux to kerma to dose-equivalent conversion
package dose

import (
	"strings"

	"dose-calculator/core/coefficients"
	"dose-calculator/internal/errors"
)

// SecondsPerHour converts per-second flux into hourly rates
const SecondsPerHour = 3600

// KermaKey is the catalogue key of the fluence-to-kerma table shared by all
// dose types
const KermaKey = "Kerma"

// Type is an operational dose quantity
type Type int

const (
	// Ambient is the ambient dose equivalent H*(10)
	Ambient Type = iota
	// Personal is the personal dose equivalent Hp(10)
	Personal
)

// Types lists every supported dose type
func Types() []Type {
	return []Type{Ambient, Personal}
}

// String returns the catalogue key of the dose type
func (t Type) String() string {
	switch t {
	case Ambient:
		return "Ambient"
	case Personal:
		return "Personal"
	default:
		return "unknown"
	}
}

// ParseType resolves a dose type name, case-insensitively
func ParseType(name string) (Type, error) {
	for _, t := range Types() {
		if strings.EqualFold(t.String(), strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, errors.Validation("dose_type", "unknown dose type: "+name)
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Model pairs the kerma-to-dose table of a dose type with the
// fluence-to-kerma table. Purely functional.
type Model struct {
	typ   Type
	dose  *coefficients.Table
	kerma *coefficients.Table
}

// NewModel builds a dose model. doseTable maps energy (MeV) to the
// kerma-to-dose factor (Sv/Gy); kermaTable maps energy to the
// fluence-to-kerma factor in µGy·cm².
func NewModel(typ Type, doseTable, kermaTable *coefficients.Table) (*Model, error) {
	if doseTable == nil || kermaTable == nil {
		return nil, errors.Configf("%s dose model needs both dose and kerma tables", typ)
	}
	return &Model{typ: typ, dose: doseTable, kerma: kermaTable}, nil
}

// Type returns the dose type
func (m *Model) Type() Type {
	return m.typ
}

// KermaRates returns kerma(E_i)·flux_i·3600 in µGy/h for each line
func (m *Model) KermaRates(energies, flux []float64) []float64 {
	out := make([]float64, len(energies))
	for i, e := range energies {
		out[i] = m.kerma.ValueAt(e) * SecondsPerHour * flux[i]
	}
	return out
}

// DoseRates returns kerma_i·dose(E_i) in µSv/h for each line
func (m *Model) DoseRates(energies, kermaRates []float64) []float64 {
	out := make([]float64, len(energies))
	for i, e := range energies {
		out[i] = kermaRates[i] * m.dose.ValueAt(e)
	}
	return out
}

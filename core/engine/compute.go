// Package engine provides the dose-rate calculation engine.
// Compute is the pure numeric pass; Calculator assembles its inputs from a
// catalogue. CLI and HTTP are thin wrappers around the Calculator.
package engine

import (
	"math"
	"time"

	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// SolidAngleFraction returns asin(sin(0.5/d)²)/π, the fraction of emissions
// crossing a unit area at distance d cm.
func SolidAngleFraction(distance float64) float64 {
	s := math.Sin(0.5 / distance)
	return math.Asin(s*s) / math.Pi
}

// Compute runs one pass over a source snapshot. sh is the slab shield, air
// the air-gap shield; nil shields attenuate nothing. model may be nil only
// for neutron-only isotopes, whose report carries flux alone.
func Compute(snap source.Snapshot, sh, air *shield.Shield, model *dose.Model) (*RateReport, error) {
	start := time.Now()

	if !(snap.Distance > 0) || math.IsInf(snap.Distance, 0) {
		return nil, errors.Configf("distance must be positive, got %v cm", snap.Distance)
	}
	if sh == nil {
		sh = shield.None()
	}
	if air == nil {
		air = shield.None()
	}
	applicable := !snap.NeutronOnly
	if applicable && model == nil {
		return nil, errors.Configf("no dose model for %s", snap.Isotope)
	}

	energies := snap.Energies()
	shieldAtt := sh.Attenuation(energies)
	airAtt := air.Attenuation(energies)
	fraction := SolidAngleFraction(snap.Distance)

	snap.Lines = append([]types.EmissionLine(nil), snap.Lines...)
	report := &RateReport{
		Source: snap,
		Shield: ShieldSummary{
			Material:  sh.Material(),
			Thickness: sh.Thickness(),
			AirGap:    air.Thickness(),
		},
		SolidAngleFraction: fraction,
		Lines:              make([]LineRate, len(energies)),
		DoseApplicable:     applicable,
	}

	flux := make([]float64, len(energies))
	for i, l := range snap.Lines {
		flux[i] = l.Yield() * snap.CurrentActivity * fraction * shieldAtt[i] * airAtt[i]
		report.Lines[i] = LineRate{
			EnergyMeV:         l.EnergyMeV,
			YieldPercent:      l.YieldPercent,
			ShieldAttenuation: shieldAtt[i],
			AirAttenuation:    airAtt[i],
			Flux:              flux[i],
		}
		report.TotalFlux += flux[i]
	}
	report.FluxDisplay = FluxDisplay(report.TotalFlux)

	if applicable {
		typ := model.Type()
		report.DoseType = &typ

		kerma := model.KermaRates(energies, flux)
		doses := model.DoseRates(energies, kerma)
		var totalKerma, totalDose float64
		for i := range report.Lines {
			k, d := kerma[i], doses[i]
			report.Lines[i].KermaRate = &k
			report.Lines[i].DoseRate = &d
			totalKerma += k
			totalDose += d
		}
		display := DoseDisplay(totalDose)
		report.TotalKermaRate = &totalKerma
		report.TotalDoseRate = &totalDose
		report.DoseDisplay = &display
	}

	report.ComputedAt = start.UTC()
	report.Duration = time.Since(start)
	return report, nil
}

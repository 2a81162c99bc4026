// Package catalog - Bundled reference dataset
// A small inventory of calibration sources plus photon interaction data:
// mass attenuation coefficients (NIST XCOM, scaled to linear coefficients by
// density) and ICRP 74 air-kerma and dose conversion coefficients.
package catalog

import (
	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/types"
)

// attenuationEnergies is the shared energy grid (MeV) of the material tables
var attenuationEnergies = []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.6, 0.8, 1.0, 1.25, 1.5, 2.0, 3.0, 4.0, 5.0, 6.0, 8.0, 10.0}

// massAttenuation holds μ/ρ (cm²/g) on attenuationEnergies and density (g/cm³)
var massAttenuation = map[shield.Material]struct {
	density float64
	muRho   []float64
}{
	shield.Air: {1.205e-3, []float64{0.2080, 0.1541, 0.1233, 0.1067, 0.08712, 0.08055, 0.07074, 0.06358, 0.05687, 0.05175, 0.04447, 0.03581, 0.03079, 0.02751, 0.02522, 0.02225, 0.02045}},
	shield.Iron: {7.874, []float64{1.958, 0.3717, 0.1460, 0.1099, 0.08414, 0.07704, 0.06699, 0.05995, 0.05350, 0.04883, 0.04265, 0.03621, 0.03311, 0.03146, 0.03057, 0.02991, 0.02994}},
	shield.Lead: {11.35, []float64{8.041, 5.549, 0.9985, 0.4031, 0.1614, 0.1248, 0.08870, 0.07102, 0.05876, 0.05222, 0.04606, 0.04234, 0.04197, 0.04272, 0.04391, 0.04675, 0.04972}},
	shield.Aluminium: {2.699, []float64{0.3681, 0.1704, 0.1223, 0.1042, 0.08445, 0.07802, 0.06841, 0.06146, 0.05496, 0.05006, 0.04324, 0.03541, 0.03105, 0.02836, 0.02655, 0.02437, 0.02318}},
	shield.Copper: {8.96, []float64{2.613, 0.4584, 0.1559, 0.1119, 0.08362, 0.07625, 0.06605, 0.05901, 0.05261, 0.04803, 0.04205, 0.03599, 0.03318, 0.03177, 0.03108, 0.03074, 0.03103}},
	shield.Tin: {7.31, []float64{10.60, 1.581, 0.3135, 0.1609, 0.09501, 0.08296, 0.06866, 0.05990, 0.05282, 0.04758, 0.04213, 0.03713, 0.03513, 0.03445, 0.03445, 0.03517, 0.03634}},
	shield.PMMA: {1.19, []float64{0.2074, 0.1640, 0.1325, 0.1150, 0.09400, 0.08695, 0.07640, 0.06870, 0.06143, 0.05591, 0.04796, 0.03844, 0.03264, 0.02872, 0.02592, 0.02225, 0.01994}},
}

// conversionEnergies is the ICRP 74 photon energy grid (MeV)
var conversionEnergies = []float64{0.01, 0.015, 0.02, 0.03, 0.04, 0.05, 0.06, 0.08, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0, 1.5, 2.0, 3.0, 4.0, 5.0, 6.0, 8.0, 10.0}

// airKerma is the fluence-to-air-kerma coefficient in pGy·cm²
var airKerma = []float64{7.43, 3.12, 1.68, 0.721, 0.429, 0.323, 0.289, 0.307, 0.371, 0.599, 0.856, 1.38, 1.89, 2.38, 2.84, 3.69, 4.47, 6.14, 7.55, 9.96, 12.1, 14.1, 16.1, 20.1, 24.0}

// doseConversion is the kerma-to-dose-equivalent factor in Sv/Gy
var doseConversion = map[dose.Type][]float64{
	dose.Ambient:  {0.008, 0.26, 0.61, 1.10, 1.47, 1.67, 1.74, 1.72, 1.65, 1.49, 1.40, 1.31, 1.26, 1.23, 1.21, 1.19, 1.17, 1.15, 1.14, 1.13, 1.12, 1.11, 1.11, 1.11, 1.10},
	dose.Personal: {0.009, 0.264, 0.611, 1.112, 1.490, 1.766, 1.892, 1.903, 1.811, 1.618, 1.497, 1.369, 1.300, 1.256, 1.226, 1.190, 1.167, 1.139, 1.117, 1.109, 1.111, 1.109, 1.111, 1.119, 1.113},
}

// picoToMicro converts pGy·cm² into µGy·cm² so kerma rates come out in µGy/h
const picoToMicro = 1e-6

func line(energy, yield float64) types.EmissionLine {
	return types.EmissionLine{EnergyMeV: energy, YieldPercent: yield}
}

// Seed returns the bundled reference dataset. Each call builds a fresh copy.
func Seed() *Dataset {
	d := NewDataset()

	d.AddIsotope("Co-60", 1925.28, line(1.173228, 99.85), line(1.332492, 99.9826))
	d.AddIsotope("Cs-137", 10990.0, line(0.661657, 85.1))
	d.AddIsotope("Am-241", 157861.0, line(0.026345, 2.27), line(0.059541, 35.92))
	d.AddIsotope("Ba-133", 3848.7,
		line(0.080997, 32.9), line(0.276399, 7.16), line(0.302851, 18.34), line(0.356013, 62.05), line(0.383849, 8.94))
	d.AddIsotope("Na-22", 950.57, line(0.511, 180.7), line(1.274537, 99.94))
	d.AddIsotope("Eu-152", 4937.0,
		line(0.121782, 28.53), line(0.244697, 7.55), line(0.344279, 26.59), line(0.778904, 12.93),
		line(0.964057, 14.51), line(1.085837, 10.11), line(1.112076, 13.67), line(1.408013, 20.87))
	// neutron yield spectra, neutrons per 100 decays per energy bin
	d.AddIsotope("Cf-252", 965.7, line(0.5, 2.6), line(1.0, 2.4), line(2.0, 3.1), line(4.0, 2.5), line(8.0, 1.0))
	d.AddIsotope("Cm-244", 6610.0, line(0.5, 8e-5), line(1.0, 1e-4), line(2.0, 1e-4), line(4.0, 6e-5), line(8.0, 2e-5))

	d.AddSource("Co-60", "CO-0142", types.MustParseDate("01/15/2015"), 3.7e10)
	d.AddSource("Cs-137", "CS-2231", types.MustParseDate("03/02/2010"), 3.7e9)
	d.AddSource("Am-241", "AM-0077", types.MustParseDate("06/20/2005"), 3.7e9)
	d.AddSource("Ba-133", "BA-0310", types.MustParseDate("09/01/2018"), 3.7e8)
	d.AddSource("Na-22", "NA-1105", types.MustParseDate("11/11/2021"), 3.7e8)
	d.AddSource("Eu-152", "EU-0452", types.MustParseDate("02/14/2016"), 3.7e8)
	d.AddSource("Cf-252", "CF-0009", types.MustParseDate("05/05/2019"), 3.7e7)
	d.AddSource("Cm-244", "CM-0013", types.MustParseDate("07/07/2012"), 3.7e7)

	for _, m := range shield.Materials() {
		data := massAttenuation[m]
		samples := make([]types.Sample, len(attenuationEnergies))
		for i, e := range attenuationEnergies {
			samples[i] = types.Sample{X: e, Y: data.muRho[i] * data.density}
		}
		d.AddSeries(CategoryMaterials, m.String(), samples)
	}

	kerma := make([]types.Sample, len(conversionEnergies))
	for i, e := range conversionEnergies {
		kerma[i] = types.Sample{X: e, Y: airKerma[i] * picoToMicro}
	}
	d.AddSeries(CategoryDose, dose.KermaKey, kerma)

	for _, t := range dose.Types() {
		factors := doseConversion[t]
		samples := make([]types.Sample, len(conversionEnergies))
		for i, e := range conversionEnergies {
			samples[i] = types.Sample{X: e, Y: factors[i]}
		}
		d.AddSeries(CategoryDose, t.String(), samples)
	}

	return d
}

// NewSeeded returns an in-memory catalogue over the bundled dataset
func NewSeeded() *Memory {
	m, err := NewMemory(Seed())
	if err != nil {
		panic(err.Error())
	}
	return m
}

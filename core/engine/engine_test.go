package engine

import (
	"context"
	"math"
	"testing"

	"dose-calculator/core/catalog"
	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

var referenceDate = types.MustParseDate("10/19/2026")

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(catalog.NewSeeded())
}

// cobaltLike builds the two-line reference source used by end-to-end checks
func cobaltLike(t *testing.T, distance float64) source.Snapshot {
	t.Helper()
	produced := types.MustParseDate("01/01/2020")
	src, err := source.New(source.Calibration{
		Isotope:          "Co-60",
		Serial:           "TEST",
		ProductionDate:   produced,
		OriginalActivity: 3.7e10,
		HalfLifeDays:     1925.1,
		Lines: []types.EmissionLine{
			{EnergyMeV: 1.17, YieldPercent: 100},
			{EnergyMeV: 1.33, YieldPercent: 100},
		},
	}, produced, distance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return src.Snapshot()
}

func TestSelectScale(t *testing.T) {
	tests := []struct {
		value    float64
		scale    Scale
		dose     string
		flux     string
		rendered float64
	}{
		{1_500_000, ScaleMega, "Sv/h", "p/cm²s ×10⁶", 1.5},
		{1_500, ScaleKilo, "mSv/h", "p/cm²s ×10³", 1.5},
		{500, ScaleUnit, "µSv/h", "p/cm²s", 500},
		{1_000, ScaleUnit, "µSv/h", "p/cm²s", 1000},
		{1_000_000, ScaleKilo, "mSv/h", "p/cm²s ×10³", 1000},
	}

	for _, tt := range tests {
		got := SelectScale(tt.value)
		if got != tt.scale {
			t.Errorf("SelectScale(%v) = %s, want %s", tt.value, got, tt.scale)
		}
		if d := DoseDisplay(tt.value); d.Unit != tt.dose || math.Abs(d.Value-tt.rendered) > 1e-9 {
			t.Errorf("DoseDisplay(%v) = %+v", tt.value, d)
		}
		if f := FluxDisplay(tt.value); f.Unit != tt.flux {
			t.Errorf("FluxDisplay(%v) unit = %q, want %q", tt.value, f.Unit, tt.flux)
		}
	}
}

func TestScaleText(t *testing.T) {
	var s Scale
	if err := s.UnmarshalText([]byte("kilo")); err != nil || s != ScaleKilo {
		t.Errorf("UnmarshalText(kilo) = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("giga")); err == nil {
		t.Error("expected error for unknown scale")
	}
}

func TestSolidAngleFractionDecreases(t *testing.T) {
	prev := SolidAngleFraction(1)
	for _, d := range []float64{2, 5, 10, 50, 100, 1000} {
		got := SolidAngleFraction(d)
		if !(got < prev) || got <= 0 {
			t.Errorf("SolidAngleFraction(%v) = %v, previous %v", d, got, prev)
		}
		prev = got
	}
}

// TestComputeEndToEnd covers a Co-60-like source at 10 and 20 cm
func TestComputeEndToEnd(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	model, err := calc.LoadDoseModel(ctx, dose.Ambient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	near := cobaltLike(t, 10)
	air, _ := calc.LoadAirShield(ctx, near.Distance, 0)
	r10, err := Compute(near, nil, air, model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	far := cobaltLike(t, 20)
	air, _ = calc.LoadAirShield(ctx, far.Distance, 0)
	r20, err := Compute(far, nil, air, model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r10.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(r10.Lines))
	}
	if !r10.DoseApplicable {
		t.Fatal("dose should apply to Co-60")
	}
	total, ok := r10.TotalDose()
	if !ok || !(total > 0) || math.IsInf(total, 0) {
		t.Errorf("total dose = %v, %v", total, ok)
	}
	for i, l := range r10.Lines {
		if !(l.Flux > 0) || math.IsInf(l.Flux, 0) {
			t.Errorf("line %d flux = %v", i, l.Flux)
		}
		if !(*l.DoseRate > 0) {
			t.Errorf("line %d dose = %v", i, *l.DoseRate)
		}
		if l.ShieldAttenuation != 1 {
			t.Errorf("line %d shield attenuation = %v, want 1", i, l.ShieldAttenuation)
		}
		if l.AirAttenuation < 0.99 || l.AirAttenuation > 1 {
			t.Errorf("line %d air attenuation = %v", i, l.AirAttenuation)
		}
		if !(r20.Lines[i].Flux < l.Flux) {
			t.Errorf("line %d: flux at 20 cm (%v) not below flux at 10 cm (%v)", i, r20.Lines[i].Flux, l.Flux)
		}
	}

	// kerma = k(E)·flux·3600, dose = kerma·h(E)
	kermaTable, _ := calc.table(ctx, catalog.CategoryDose, dose.KermaKey)
	doseTable, _ := calc.table(ctx, catalog.CategoryDose, dose.Ambient.String())
	l := r10.Lines[0]
	wantKerma := kermaTable.ValueAt(l.EnergyMeV) * l.Flux * dose.SecondsPerHour
	if math.Abs(*l.KermaRate-wantKerma) > 1e-9*wantKerma {
		t.Errorf("kerma = %v, want %v", *l.KermaRate, wantKerma)
	}
	if want := wantKerma * doseTable.ValueAt(l.EnergyMeV); math.Abs(*l.DoseRate-want) > 1e-9*want {
		t.Errorf("dose = %v, want %v", *l.DoseRate, want)
	}
	if math.Abs(r10.TotalFlux-(r10.Lines[0].Flux+r10.Lines[1].Flux)) > 1e-9*r10.TotalFlux {
		t.Errorf("total flux %v is not the sum of lines", r10.TotalFlux)
	}
}

func TestComputeFluxFormula(t *testing.T) {
	snap := cobaltLike(t, 10)
	r, err := Compute(snap, nil, nil, nil)
	if err == nil {
		t.Fatalf("expected error without a dose model, got %+v", r)
	}

	snap.NeutronOnly = true
	r, err = Compute(snap, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1.0 * snap.CurrentActivity * SolidAngleFraction(10)
	if math.Abs(r.Lines[0].Flux-want) > 1e-9*want {
		t.Errorf("flux = %v, want %v", r.Lines[0].Flux, want)
	}
}

func TestComputeNeutronOnly(t *testing.T) {
	calc := newCalculator(t)
	r, err := calc.Estimate(context.Background(), Request{
		SourceIndex:   6,
		ReferenceDate: referenceDate,
		Distance:      30,
		DoseType:      dose.Ambient,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Source.Isotope != "Cf-252" {
		t.Fatalf("source 6 = %s, want Cf-252", r.Source.Isotope)
	}
	if r.DoseApplicable {
		t.Error("dose should not apply to Cf-252")
	}
	if r.DoseRates() != nil || r.KermaRates() != nil || r.DoseDisplay != nil || r.DoseType != nil {
		t.Error("dose fields should be nil for neutron-only sources")
	}
	if _, ok := r.TotalDose(); ok {
		t.Error("TotalDose reported a value")
	}
	flux := r.Flux()
	if len(flux) == 0 {
		t.Fatal("flux vector is empty")
	}
	for i, f := range flux {
		if !(f > 0) || math.IsNaN(f) {
			t.Errorf("flux[%d] = %v", i, f)
		}
	}
}

func TestComputeRejectsBadDistance(t *testing.T) {
	snap := cobaltLike(t, 10)
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		snap.Distance = d
		if _, err := Compute(snap, nil, nil, nil); !errors.IsConfig(err) {
			t.Errorf("distance %v: expected CONFIG_ERROR, got %v", d, err)
		}
	}
}

func TestComputeReturnsFreshReports(t *testing.T) {
	snap := cobaltLike(t, 10)
	snap.NeutronOnly = true
	a, _ := Compute(snap, nil, nil, nil)
	b, _ := Compute(snap, nil, nil, nil)
	a.Lines[0].Flux = -1
	if b.Lines[0].Flux == -1 {
		t.Error("reports share line storage")
	}
	a.Source.Lines[0].EnergyMeV = -1
	if snap.Lines[0].EnergyMeV == -1 {
		t.Error("report shares the snapshot's lines")
	}
}

func TestEstimateShielding(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	base := Request{SourceIndex: 1, ReferenceDate: referenceDate, Distance: 50, DoseType: dose.Ambient}

	bare, err := calc.Estimate(ctx, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev, _ := bare.TotalDose()
	for _, thickness := range []float64{0.5, 1, 2} {
		req := base
		req.Material = shield.Lead
		req.Thickness = thickness
		r, err := calc.Estimate(ctx, req)
		if err != nil {
			t.Fatalf("thickness %v: unexpected error: %v", thickness, err)
		}
		got, _ := r.TotalDose()
		if !(got < prev) {
			t.Errorf("lead %v cm: dose %v not below %v", thickness, got, prev)
		}
		if r.Shield.AirGap != 50-thickness {
			t.Errorf("air gap = %v, want %v", r.Shield.AirGap, 50-thickness)
		}
		prev = got
	}
}

func TestEstimateDoseTypes(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	req := Request{SourceIndex: 1, ReferenceDate: referenceDate, Distance: 100}

	ambient, err := calc.Estimate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.DoseType = dose.Personal
	personal, err := calc.Estimate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *personal.DoseType != dose.Personal || *ambient.DoseType != dose.Ambient {
		t.Error("report dose types not recorded")
	}
	a, _ := ambient.TotalDose()
	p, _ := personal.TotalDose()
	if a == p {
		t.Errorf("ambient and personal dose are equal (%v)", a)
	}
	if *ambient.TotalKermaRate != *personal.TotalKermaRate {
		t.Error("kerma rate depends on dose type")
	}
}

func TestEstimateErrors(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	negative := -5.0

	tests := []struct {
		name    string
		req     Request
		errType errors.Type
	}{
		{"unknown source", Request{SourceIndex: 99, ReferenceDate: referenceDate, Distance: 10}, errors.TypeNotFound},
		{"reference before production", Request{SourceIndex: 0, ReferenceDate: types.MustParseDate("1/1/2000"), Distance: 10}, errors.TypeValidation},
		{"zero distance", Request{SourceIndex: 0, ReferenceDate: referenceDate}, errors.TypeValidation},
		{"negative thickness", Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10, Thickness: -1}, errors.TypeValidation},
		{"unknown isotope override", Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10,
			Overrides: Overrides{Isotope: "Xx-1"}}, errors.TypeNotFound},
		{"negative activity override", Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10,
			Overrides: Overrides{OriginalActivity: &negative}}, errors.TypeValidation},
		{"production after reference", Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10,
			Overrides: Overrides{ProductionDate: referenceDate.AddDays(1)}}, errors.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Estimate(ctx, tt.req)
			if !errors.IsType(err, tt.errType) {
				t.Errorf("expected %s, got %v", tt.errType, err)
			}
		})
	}
}

func TestEstimateOverrides(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	req := Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10}

	base, err := calc.Estimate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doubled := base.Source.CurrentActivity * 2
	req.Overrides.CurrentActivity = &doubled
	r, err := calc.Estimate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r.TotalFlux-2*base.TotalFlux) > 1e-6*base.TotalFlux {
		t.Errorf("flux %v, want twice %v", r.TotalFlux, base.TotalFlux)
	}

	req.Overrides = Overrides{Isotope: "Cs-137"}
	r, err = calc.Estimate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Source.Isotope != "Cs-137" || len(r.Lines) != 1 {
		t.Errorf("isotope override not applied: %s with %d lines", r.Source.Isotope, len(r.Lines))
	}
	if r.Source.Serial != base.Source.Serial {
		t.Error("isotope override changed the serial")
	}
}

func TestEstimateProductionDateOverride(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t)
	produced := types.MustParseDate("01/01/2020")
	activity := 1e6

	tests := []struct {
		name      string
		reference string
		overrides Overrides
		wantDays  int
		wantErr   bool
	}{
		// Na-22 is catalogued as produced 11/11/2021
		{"reference before catalogue date", "01/01/2021", Overrides{ProductionDate: produced}, 366, false},
		{"with original activity", "01/01/2021", Overrides{ProductionDate: produced, OriginalActivity: &activity}, 366, false},
		{"with isotope", "01/01/2021", Overrides{Isotope: "Co-60", ProductionDate: produced}, 366, false},
		{"reference before override date", "06/01/2019", Overrides{ProductionDate: produced}, 0, true},
		{"no override", "01/01/2021", Overrides{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{
				SourceIndex:   4,
				ReferenceDate: types.MustParseDate(tt.reference),
				Distance:      10,
				Overrides:     tt.overrides,
			}
			out, err := calc.Decay(ctx, req)
			if tt.wantErr {
				if !errors.IsValidation(err) {
					t.Fatalf("expected VALIDATION_ERROR, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.ElapsedDays != tt.wantDays {
				t.Errorf("elapsed days = %d, want %d", out.ElapsedDays, tt.wantDays)
			}
			if out.Source.ProductionDate.String() != produced.String() {
				t.Errorf("production date = %s, want %s", out.Source.ProductionDate, produced)
			}
			want := source.Decay(out.Source.OriginalActivity, out.Source.HalfLifeDays, tt.wantDays)
			if out.Source.CurrentActivity != want {
				t.Errorf("current activity = %v, want %v", out.Source.CurrentActivity, want)
			}

			if _, err := calc.Estimate(ctx, req); err != nil {
				t.Errorf("estimate: %v", err)
			}
		})
	}
}

func TestDecay(t *testing.T) {
	calc := newCalculator(t)
	rec, _ := calc.Catalogue().Source(context.Background(), 0)

	out, err := calc.Decay(context.Background(), Request{SourceIndex: 0, ReferenceDate: rec.ProductionDate, Distance: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ElapsedDays != 0 || out.Source.CurrentActivity != rec.OriginalActivity || out.Ratio != 1 {
		t.Errorf("decay at production date = %+v", out)
	}

	out, err = calc.Decay(context.Background(), Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := source.Decay(rec.OriginalActivity, out.Source.HalfLifeDays, out.ElapsedDays)
	if out.Source.CurrentActivity != want || !(out.Ratio < 1) {
		t.Errorf("decayed activity = %v (ratio %v), want %v", out.Source.CurrentActivity, out.Ratio, want)
	}
}

func TestBatchExecutor(t *testing.T) {
	calc := newCalculator(t)
	var items []BatchItem
	for i := 0; i < 8; i++ {
		items = append(items, BatchItem{
			Name:    "source",
			Request: Request{SourceIndex: i, ReferenceDate: referenceDate, Distance: 10},
		})
	}
	items = append(items, BatchItem{Name: "missing", Request: Request{SourceIndex: 50, ReferenceDate: referenceDate, Distance: 10}})

	var last BatchProgress
	calls := 0
	results := NewBatchExecutor(calc, 3).Run(context.Background(), items, func(p BatchProgress) {
		calls++
		last = p
	})

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, r := range results[:8] {
		if r.Err != nil || r.Report == nil {
			t.Errorf("item %d: %v", i, r.Err)
			continue
		}
		if r.Report.Source.Index != i {
			t.Errorf("result %d holds source %d", i, r.Report.Source.Index)
		}
	}
	if !errors.IsType(results[8].Err, errors.TypeNotFound) || results[8].Report != nil {
		t.Errorf("missing source result = %+v", results[8])
	}
	if calls != len(items) || last.Done() != int64(len(items)) || last.Failed != 1 {
		t.Errorf("progress: %d calls, last %+v", calls, last)
	}
}

func TestBatchExecutorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := NewBatchExecutor(newCalculator(t), 0).Run(ctx, []BatchItem{
		{Request: Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10}},
	}, nil)
	if results[0].Err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}

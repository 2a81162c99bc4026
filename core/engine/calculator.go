package engine

import (
	"context"
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"dose-calculator/core/catalog"
	"dose-calculator/core/coefficients"
	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
	"dose-calculator/internal/logging"
)

const tracerName = "dose-calculator/core/engine"

// Calculator is the primary API for dose-rate estimation.
// It resolves catalogue data into the inputs of Compute. Safe for concurrent
// use; every request works on its own Source.
type Calculator struct {
	catalogue catalog.Catalogue
	log       *zap.Logger

	// tables caches coefficient tables; they are immutable once built
	mu     sync.RWMutex
	tables map[catalog.SeriesKey]*coefficients.Table
}

// NewCalculator creates a calculator over a catalogue
func NewCalculator(cat catalog.Catalogue) *Calculator {
	return &Calculator{
		catalogue: cat,
		log:       logging.Named("engine"),
		tables:    make(map[catalog.SeriesKey]*coefficients.Table),
	}
}

// Catalogue returns the underlying catalogue
func (c *Calculator) Catalogue() catalog.Catalogue {
	return c.catalogue
}

// Overrides replaces catalogue values for one request. Zero values keep the
// catalogue value.
type Overrides struct {
	Isotope          string     `json:"isotope,omitempty"`
	ProductionDate   types.Date `json:"production_date,omitempty"`
	OriginalActivity *float64   `json:"original_activity_bq,omitempty"`

	// CurrentActivity bypasses the decay law; applied last
	CurrentActivity *float64 `json:"current_activity_bq,omitempty"`
}

// Request is the input to one estimation
type Request struct {
	SourceIndex   int             `json:"source_index"`
	ReferenceDate types.Date      `json:"reference_date"`
	Distance      float64         `json:"distance_cm"`
	Material      shield.Material `json:"material"`
	Thickness     float64         `json:"thickness_cm"`
	DoseType      dose.Type       `json:"dose_type"`
	Overrides     Overrides       `json:"overrides"`
}

// Validate checks the parts of a request that the source does not
func (r Request) Validate() error {
	if math.IsNaN(r.Thickness) || math.IsInf(r.Thickness, 0) || r.Thickness < 0 {
		return errors.Validation("thickness", "wrong thickness: must be a non-negative number of cm")
	}
	return nil
}

// DecayReport is the outcome of a decay-only request
type DecayReport struct {
	Source      source.Snapshot `json:"source"`
	ElapsedDays int             `json:"elapsed_days"`
	Ratio       float64         `json:"ratio"`
}

// LoadSource builds a source from the catalogue record at index, decayed to
// referenceDate. Isotope, production date and original activity overrides
// replace the record's values before the dates are checked; a current
// activity override is applied last.
func (c *Calculator) LoadSource(ctx context.Context, index int, referenceDate types.Date, distance float64, o Overrides) (*source.Source, error) {
	cal, err := c.calibration(ctx, index, o)
	if err != nil {
		return nil, err
	}
	src, err := source.New(cal, referenceDate, distance)
	if err != nil {
		return nil, err
	}
	if o.CurrentActivity != nil {
		if err := src.OverrideCurrentActivity(*o.CurrentActivity); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// calibration resolves the catalogue record at index with overrides folded in
func (c *Calculator) calibration(ctx context.Context, index int, o Overrides) (source.Calibration, error) {
	rec, err := c.catalogue.Source(ctx, index)
	if err != nil {
		return source.Calibration{}, err
	}
	cal := source.Calibration{
		Index:            rec.Index,
		Isotope:          rec.Isotope,
		Serial:           rec.Serial,
		ProductionDate:   rec.ProductionDate,
		OriginalActivity: rec.OriginalActivity,
	}
	if o.Isotope != "" {
		cal.Isotope = o.Isotope
	}
	if !o.ProductionDate.IsZero() {
		cal.ProductionDate = o.ProductionDate
	}
	if o.OriginalActivity != nil {
		cal.OriginalActivity = *o.OriginalActivity
	}

	if cal.HalfLifeDays, err = c.catalogue.HalfLife(ctx, cal.Isotope); err != nil {
		return source.Calibration{}, err
	}
	if cal.Lines, err = c.catalogue.Lines(ctx, cal.Isotope); err != nil {
		return source.Calibration{}, err
	}
	return cal, nil
}

// LoadShield builds a slab shield; zero thickness needs no table
func (c *Calculator) LoadShield(ctx context.Context, material shield.Material, thickness float64) (*shield.Shield, error) {
	if thickness == 0 {
		return shield.New(material, 0, nil)
	}
	table, err := c.table(ctx, catalog.CategoryMaterials, material.String())
	if err != nil {
		return nil, err
	}
	return shield.New(material, thickness, table)
}

// LoadAirShield builds the air shield filling the gap between the slab and
// the point of interest
func (c *Calculator) LoadAirShield(ctx context.Context, distance, shieldThickness float64) (*shield.Shield, error) {
	return c.LoadShield(ctx, shield.Air, shield.AirGap(distance, shieldThickness))
}

// LoadDoseModel builds the dose model of a dose type
func (c *Calculator) LoadDoseModel(ctx context.Context, typ dose.Type) (*dose.Model, error) {
	doseTable, err := c.table(ctx, catalog.CategoryDose, typ.String())
	if err != nil {
		return nil, err
	}
	kermaTable, err := c.table(ctx, catalog.CategoryDose, dose.KermaKey)
	if err != nil {
		return nil, err
	}
	return dose.NewModel(typ, doseTable, kermaTable)
}

// Compute runs a pass for an already prepared source
func (c *Calculator) Compute(ctx context.Context, src *source.Source, material shield.Material, thickness float64, typ dose.Type) (*RateReport, error) {
	snap := src.Snapshot()

	sh, err := c.LoadShield(ctx, material, thickness)
	if err != nil {
		return nil, err
	}
	air, err := c.LoadAirShield(ctx, snap.Distance, thickness)
	if err != nil {
		return nil, err
	}

	var model *dose.Model
	if !snap.NeutronOnly {
		if model, err = c.LoadDoseModel(ctx, typ); err != nil {
			return nil, err
		}
	}

	report, err := Compute(snap, sh, air, model)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("isotope", snap.Isotope),
		zap.Float64("activity_bq", snap.CurrentActivity),
		zap.Float64("distance_cm", snap.Distance),
		zap.Float64("total_flux", report.TotalFlux),
	}
	if total, ok := report.TotalDose(); ok {
		fields = append(fields, zap.Float64("total_dose_usv_h", total))
	} else {
		fields = append(fields, zap.Bool("dose_applicable", false))
	}
	c.log.Debug("pass computed", fields...)
	return report, nil
}

// Estimate resolves a request against the catalogue and computes it
func (c *Calculator) Estimate(ctx context.Context, req Request) (*RateReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Estimate", trace.WithAttributes(
		attribute.Int("source.index", req.SourceIndex),
		attribute.Float64("distance_cm", req.Distance),
		attribute.String("shield.material", req.Material.String()),
		attribute.Float64("shield.thickness_cm", req.Thickness),
		attribute.String("dose.type", req.DoseType.String()),
	))
	defer span.End()

	report, err := c.estimate(ctx, req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("isotope", report.Source.Isotope),
		attribute.Bool("dose_applicable", report.DoseApplicable),
	)
	return report, nil
}

func (c *Calculator) estimate(ctx context.Context, req Request) (*RateReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	src, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Compute(ctx, src, req.Material, req.Thickness, req.DoseType)
}

// Decay resolves a request and reports only the decayed activity
func (c *Calculator) Decay(ctx context.Context, req Request) (*DecayReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Decay",
		trace.WithAttributes(attribute.Int("source.index", req.SourceIndex)))
	defer span.End()

	src, err := c.prepare(ctx, req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	snap := src.Snapshot()
	out := &DecayReport{
		Source:      snap,
		ElapsedDays: src.ElapsedDays(),
		Ratio:       1,
	}
	if snap.OriginalActivity > 0 {
		out.Ratio = snap.CurrentActivity / snap.OriginalActivity
	}
	return out, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (c *Calculator) prepare(ctx context.Context, req Request) (*source.Source, error) {
	return c.LoadSource(ctx, req.SourceIndex, req.ReferenceDate, req.Distance, req.Overrides)
}

// table returns a cached coefficient table, loading it on first use
func (c *Calculator) table(ctx context.Context, category catalog.Category, key string) (*coefficients.Table, error) {
	k := catalog.SeriesKey{Category: category, Key: key}

	c.mu.RLock()
	t, ok := c.tables[k]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	samples, err := c.catalogue.Coefficients(ctx, category, key)
	if err != nil {
		return nil, err
	}
	t, err = coefficients.NewTable(samples)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "coefficient series %s", k)
	}

	c.mu.Lock()
	c.tables[k] = t
	c.mu.Unlock()
	return t, nil
}

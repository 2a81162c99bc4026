package source

import (
	"math"

	"go.uber.org/zap"

	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
	"dose-calculator/internal/logging"
)

// Calibration is the catalogue identity of a source: what it is and how
// active it was when produced.
type Calibration struct {
	Index            int
	Isotope          string
	Serial           string
	ProductionDate   types.Date
	OriginalActivity float64
	HalfLifeDays     float64
	Lines            []types.EmissionLine
}

// Source is a mutable point source. It is single-writer: callers serialize
// commands per instance. Reads never trigger recomputation.
type Source struct {
	index            int
	isotope          string
	serial           string
	productionDate   types.Date
	referenceDate    types.Date
	originalActivity float64
	halfLife         float64
	lines            []types.EmissionLine
	distance         float64
	currentActivity  float64

	lastErr error
	log     *zap.Logger
}

// New builds a source from its calibration, decayed to referenceDate, with
// the point of interest at distance cm.
func New(cal Calibration, referenceDate types.Date, distance float64) (*Source, error) {
	if cal.Isotope == "" {
		return nil, errors.Validation("isotope", "isotope is required")
	}
	if err := checkHalfLife(cal.HalfLifeDays); err != nil {
		return nil, err
	}
	if err := checkActivity("original_activity", cal.OriginalActivity); err != nil {
		return nil, err
	}
	if err := checkDistance(distance); err != nil {
		return nil, err
	}
	if err := checkDates(cal.ProductionDate, referenceDate); err != nil {
		return nil, err
	}

	s := &Source{
		index:            cal.Index,
		isotope:          cal.Isotope,
		serial:           cal.Serial,
		productionDate:   cal.ProductionDate,
		referenceDate:    referenceDate,
		originalActivity: math.Round(cal.OriginalActivity),
		halfLife:         cal.HalfLifeDays,
		lines:            copyLines(cal.Lines),
		distance:         distance,
		log:              logging.Named("source").With(zap.String("isotope", cal.Isotope), zap.String("serial", cal.Serial)),
	}
	s.decay()
	return s, nil
}

// ApplyReferenceDate moves the reference date and re-decays.
// A date before production is rejected and nothing changes.
func (s *Source) ApplyReferenceDate(d types.Date) (DecayOutcome, error) {
	if err := checkDates(s.productionDate, d); err != nil {
		return s.reject(err)
	}
	s.referenceDate = d
	return s.accept(), nil
}

// ApplyProductionDate moves the production date and re-decays.
// A date after the reference date is rejected and nothing changes.
func (s *Source) ApplyProductionDate(d types.Date) (DecayOutcome, error) {
	if err := checkDates(d, s.referenceDate); err != nil {
		return s.reject(err)
	}
	s.productionDate = d
	return s.accept(), nil
}

// ApplyOriginalActivity replaces the calibrated activity (rounded to whole
// Bq) and re-decays.
func (s *Source) ApplyOriginalActivity(activity float64) (DecayOutcome, error) {
	if err := checkActivity("original_activity", activity); err != nil {
		return s.reject(err)
	}
	s.originalActivity = math.Round(activity)
	return s.accept(), nil
}

// ApplyIsotope swaps the isotope together with its half-life and emission
// spectrum, then re-decays. Calibration dates and activity are kept.
func (s *Source) ApplyIsotope(isotope string, halfLifeDays float64, lines []types.EmissionLine) (DecayOutcome, error) {
	if isotope == "" {
		return s.reject(errors.Validation("isotope", "isotope is required"))
	}
	if err := checkHalfLife(halfLifeDays); err != nil {
		return s.reject(err)
	}
	s.isotope = isotope
	s.halfLife = halfLifeDays
	s.lines = copyLines(lines)
	s.log = logging.Named("source").With(zap.String("isotope", isotope), zap.String("serial", s.serial))
	return s.accept(), nil
}

// ApplyDistance moves the point of interest. Activity is unaffected.
func (s *Source) ApplyDistance(distance float64) error {
	if err := checkDistance(distance); err != nil {
		_, err = s.reject(err)
		return err
	}
	s.distance = distance
	s.lastErr = nil
	return nil
}

// OverrideCurrentActivity sets the current activity directly, e.g. from a
// fresh measurement. The next decay-affecting command recomputes it.
func (s *Source) OverrideCurrentActivity(activity float64) error {
	if err := checkActivity("current_activity", activity); err != nil {
		_, err = s.reject(err)
		return err
	}
	s.currentActivity = math.Round(activity)
	s.lastErr = nil
	return nil
}

// LastError returns the validation error of the most recent rejected
// command, or nil once a later command succeeds.
func (s *Source) LastError() error {
	return s.lastErr
}

// Index returns the catalogue position of the source
func (s *Source) Index() int { return s.index }

// Isotope returns the isotope name
func (s *Source) Isotope() string { return s.isotope }

// Serial returns the source serial number
func (s *Source) Serial() string { return s.serial }

// ProductionDate returns the date the original activity was measured
func (s *Source) ProductionDate() types.Date { return s.productionDate }

// ReferenceDate returns the date the source is decayed to
func (s *Source) ReferenceDate() types.Date { return s.referenceDate }

// OriginalActivity returns the activity at production in Bq
func (s *Source) OriginalActivity() float64 { return s.originalActivity }

// HalfLifeDays returns the isotope half-life in days
func (s *Source) HalfLifeDays() float64 { return s.halfLife }

// Distance returns the distance to the point of interest in cm
func (s *Source) Distance() float64 { return s.distance }

// CurrentActivity returns the activity at the reference date in Bq
func (s *Source) CurrentActivity() float64 { return s.currentActivity }

// Lines returns a copy of the emission lines
func (s *Source) Lines() []types.EmissionLine { return copyLines(s.lines) }

// ElapsedDays returns whole days from production to the reference date
func (s *Source) ElapsedDays() int {
	return s.referenceDate.DaysSince(s.productionDate)
}

// Snapshot captures the current state for one computation pass
func (s *Source) Snapshot() Snapshot {
	return Snapshot{
		Index:            s.index,
		Isotope:          s.isotope,
		Serial:           s.serial,
		ProductionDate:   s.productionDate,
		ReferenceDate:    s.referenceDate,
		OriginalActivity: s.originalActivity,
		HalfLifeDays:     s.halfLife,
		CurrentActivity:  s.currentActivity,
		Distance:         s.distance,
		Lines:            copyLines(s.lines),
		NeutronOnly:      IsNeutronOnly(s.isotope),
	}
}

func (s *Source) decay() {
	s.currentActivity = Decay(s.originalActivity, s.halfLife, s.ElapsedDays())
}

func (s *Source) accept() DecayOutcome {
	previous := s.currentActivity
	s.decay()
	s.lastErr = nil
	outcome := DecayOutcome{
		ElapsedDays:      s.ElapsedDays(),
		PreviousActivity: previous,
		CurrentActivity:  s.currentActivity,
	}
	s.log.Debug("activity recomputed",
		zap.Int("elapsed_days", outcome.ElapsedDays),
		zap.Float64("current_bq", outcome.CurrentActivity))
	return outcome
}

func (s *Source) reject(err error) (DecayOutcome, error) {
	s.lastErr = err
	s.log.Warn("source update rejected", zap.Error(err))
	return DecayOutcome{
		ElapsedDays:      s.ElapsedDays(),
		PreviousActivity: s.currentActivity,
		CurrentActivity:  s.currentActivity,
	}, err
}

func checkDates(production, reference types.Date) error {
	if production.IsZero() || reference.IsZero() {
		return errors.Validation("date", "wrong date: production and reference dates are required")
	}
	if reference.Before(production) {
		return errors.Validation("reference_date",
			"wrong date: reference date "+reference.String()+" is before production date "+production.String())
	}
	return nil
}

func checkHalfLife(days float64) error {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		return errors.Validation("half_life", "half-life must be a positive number of days")
	}
	return nil
}

func checkActivity(field string, activity float64) error {
	if math.IsNaN(activity) || math.IsInf(activity, 0) || activity < 0 {
		return errors.Validation(field, "wrong activity: must be a non-negative number of Bq")
	}
	return nil
}

func checkDistance(distance float64) error {
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance <= 0 {
		return errors.Validation("distance", "wrong distance: must be greater than zero")
	}
	return nil
}

func copyLines(lines []types.EmissionLine) []types.EmissionLine {
	out := make([]types.EmissionLine, len(lines))
	copy(out, lines)
	return out
}

// Package source - Radioactive point sources
// A Source owns its calibration and emission spectrum and keeps its current
// activity consistent with them: every command that changes an input of the
// decay law re-runs it before returning.
package source

import "math"

// Decay returns round(A0·exp(-ln2/T½·Δ)) for a half-life and elapsed time
// both in days.
func Decay(originalActivity, halfLifeDays float64, elapsedDays int) float64 {
	lambda := math.Ln2 / halfLifeDays
	return math.Round(originalActivity * math.Exp(-lambda*float64(elapsedDays)))
}

// DecayOutcome describes one recomputation of the current activity
type DecayOutcome struct {
	ElapsedDays      int     `json:"elapsed_days"`
	PreviousActivity float64 `json:"previous_activity_bq"`
	CurrentActivity  float64 `json:"current_activity_bq"`
}

// Ratio returns current over previous activity, or 1 when previous is zero
func (o DecayOutcome) Ratio() float64 {
	if o.PreviousActivity == 0 {
		return 1
	}
	return o.CurrentActivity / o.PreviousActivity
}

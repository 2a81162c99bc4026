// Package api - API types for dose-rate estimation
// Dates travel as m/d/Y text and enums by name, so request decoding never
// fails on domain values; they are checked by toRequest.
package api

import (
	"time"

	"dose-calculator/core/catalog"
	"dose-calculator/core/dose"
	"dose-calculator/core/engine"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
)

// EstimateRequest is the input to POST /estimate and POST /decay
type EstimateRequest struct {
	SourceIndex int `json:"source_index"`

	// ReferenceDate defaults to today
	ReferenceDate string  `json:"reference_date,omitempty"`
	Distance      float64 `json:"distance_cm"`

	// Shield is optional; no shield means only air between source and point
	Shield *ShieldSpec `json:"shield,omitempty"`

	// DoseType defaults to Ambient
	DoseType string `json:"dose_type,omitempty"`

	Overrides *OverrideSpec `json:"overrides,omitempty"`

	// Label is stored with the report when the server keeps history
	Label string `json:"label,omitempty"`
}

// ShieldSpec describes the slab shield
type ShieldSpec struct {
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness_cm"`
}

// OverrideSpec replaces catalogue values for one request
type OverrideSpec struct {
	Isotope          string   `json:"isotope,omitempty"`
	ProductionDate   string   `json:"production_date,omitempty"`
	OriginalActivity *float64 `json:"original_activity_bq,omitempty"`
	CurrentActivity  *float64 `json:"current_activity_bq,omitempty"`
}

// EstimateResponse is the output of POST /estimate
type EstimateResponse struct {
	// ReportID is set when the report was stored
	ReportID string             `json:"report_id,omitempty"`
	Report   *engine.RateReport `json:"report"`

	// Notice carries "only flux for neutrons" for neutron-only isotopes
	Notice string `json:"notice,omitempty"`

	Metadata *ResponseMetadata `json:"metadata"`
}

// DecayResponse is the output of POST /decay
type DecayResponse struct {
	Decay    *engine.DecayReport `json:"decay"`
	Metadata *ResponseMetadata   `json:"metadata"`
}

// ResponseMetadata describes how a response was produced
type ResponseMetadata struct {
	RequestID     string `json:"request_id"`
	EngineVersion string `json:"engine_version"`
	DurationMs    int64  `json:"duration_ms"`
}

// SourcesResponse is the output of GET /sources
type SourcesResponse struct {
	Sources []catalog.SourceRecord `json:"sources"`
	Count   int                    `json:"count"`
}

// IsotopesResponse is the output of GET /isotopes
type IsotopesResponse struct {
	Isotopes []IsotopeInfo `json:"isotopes"`
	Count    int           `json:"count"`
}

// IsotopeInfo is one isotope of the catalogue
type IsotopeInfo struct {
	Name         string  `json:"name"`
	HalfLifeDays float64 `json:"half_life_days"`
	Lines        int     `json:"lines"`
	NeutronOnly  bool    `json:"neutron_only"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// toRequest resolves wire values into an engine request
func (r *EstimateRequest) toRequest(now time.Time) (engine.Request, error) {
	req := engine.Request{
		SourceIndex:   r.SourceIndex,
		ReferenceDate: types.DateOf(now),
		Distance:      r.Distance,
		DoseType:      dose.Ambient,
	}

	if r.ReferenceDate != "" {
		d, err := source.ParseDate("reference_date", r.ReferenceDate)
		if err != nil {
			return req, err
		}
		req.ReferenceDate = d
	}
	if r.DoseType != "" {
		t, err := dose.ParseType(r.DoseType)
		if err != nil {
			return req, err
		}
		req.DoseType = t
	}
	if r.Shield != nil {
		m, err := shield.ParseMaterial(r.Shield.Material)
		if err != nil {
			return req, err
		}
		req.Material = m
		req.Thickness = r.Shield.Thickness
	}
	if o := r.Overrides; o != nil {
		req.Overrides.Isotope = o.Isotope
		if o.ProductionDate != "" {
			d, err := source.ParseDate("production_date", o.ProductionDate)
			if err != nil {
				return req, err
			}
			req.Overrides.ProductionDate = d
		}
		req.Overrides.OriginalActivity = o.OriginalActivity
		req.Overrides.CurrentActivity = o.CurrentActivity
	}

	return req, req.Validate()
}

// Package scenario reads calculation scenarios from HCL files.
//
//	calculation "bench" {
//	  source_index   = 0
//	  reference_date = today
//	  distance_cm    = 10
//	  shield {
//	    material     = "Lead"
//	    thickness_cm = 1
//	  }
//	}
package scenario

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"dose-calculator/core/dose"
	"dose-calculator/core/engine"
	"dose-calculator/core/shield"
	"dose-calculator/core/source"
	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// Scenario is one named calculation resolved into an engine request
type Scenario struct {
	Name    string
	Label   string
	Request engine.Request
	File    string
	Line    int
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "calculation", LabelNames: []string{"name"}},
	},
}

type calculationBlock struct {
	Label            *string      `hcl:"label,optional"`
	SourceIndex      int          `hcl:"source_index"`
	ReferenceDate    *string      `hcl:"reference_date,optional"`
	Distance         float64      `hcl:"distance_cm"`
	DoseType         *string      `hcl:"dose_type,optional"`
	Isotope          *string      `hcl:"isotope,optional"`
	ProductionDate   *string      `hcl:"production_date,optional"`
	OriginalActivity *float64     `hcl:"original_activity_bq,optional"`
	CurrentActivity  *float64     `hcl:"current_activity_bq,optional"`
	Shield           *shieldBlock `hcl:"shield,block"`
}

type shieldBlock struct {
	Material  string  `hcl:"material"`
	Thickness float64 `hcl:"thickness_cm"`
}

// Reader parses scenario files. Not safe for concurrent use.
type Reader struct {
	parser *hclparse.Parser
	today  types.Date
}

// NewReader creates a reader; the `today` variable resolves to the current date
func NewReader() *Reader {
	return &Reader{
		parser: hclparse.NewParser(),
		today:  types.Today(),
	}
}

// WithToday pins the date bound to the `today` variable
func (r *Reader) WithToday(d types.Date) *Reader {
	r.today = d
	return r
}

// ReadFile parses a scenario file from disk
func (r *Reader) ReadFile(path string) ([]Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Parsing("failed to read scenario file "+path, err)
	}
	return r.Parse(src, path)
}

// Parse decodes scenario source. Every calculation is resolved; the first
// failure is returned with the calculation name and position.
func (r *Reader) Parse(src []byte, filename string) ([]Scenario, error) {
	file, diags := r.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	if len(content.Blocks) == 0 {
		return nil, errors.Parsing(filename+": no calculation blocks", nil)
	}

	seen := make(map[string]bool, len(content.Blocks))
	out := make([]Scenario, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		name := block.Labels[0]
		if seen[name] {
			return nil, errors.Parsing(fmt.Sprintf("%s: duplicate calculation %q", block.DefRange, name), nil)
		}
		seen[name] = true

		var calc calculationBlock
		if diags := gohcl.DecodeBody(block.Body, r.evalContext(), &calc); diags.HasErrors() {
			return nil, diagnosticsError(diags)
		}

		req, err := r.request(calc)
		if err != nil {
			if e, ok := errors.As(err); ok {
				return nil, e.WithContext("calculation", name).WithContext("line", block.DefRange.Start.Line)
			}
			return nil, err
		}

		sc := Scenario{
			Name:    name,
			Request: req,
			File:    filename,
			Line:    block.DefRange.Start.Line,
		}
		if calc.Label != nil {
			sc.Label = *calc.Label
		}
		out = append(out, sc)
	}
	return out, nil
}

func (r *Reader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"today": cty.StringVal(r.today.String()),
		},
	}
}

func (r *Reader) request(b calculationBlock) (engine.Request, error) {
	req := engine.Request{
		SourceIndex:   b.SourceIndex,
		ReferenceDate: r.today,
		Distance:      b.Distance,
		DoseType:      dose.Ambient,
	}

	if b.ReferenceDate != nil {
		d, err := source.ParseDate("reference_date", *b.ReferenceDate)
		if err != nil {
			return req, err
		}
		req.ReferenceDate = d
	}
	if b.DoseType != nil {
		t, err := dose.ParseType(*b.DoseType)
		if err != nil {
			return req, err
		}
		req.DoseType = t
	}
	if b.Shield != nil {
		m, err := shield.ParseMaterial(b.Shield.Material)
		if err != nil {
			return req, err
		}
		req.Material = m
		req.Thickness = b.Shield.Thickness
	}
	if b.Isotope != nil {
		req.Overrides.Isotope = strings.TrimSpace(*b.Isotope)
	}
	if b.ProductionDate != nil {
		d, err := source.ParseDate("production_date", *b.ProductionDate)
		if err != nil {
			return req, err
		}
		req.Overrides.ProductionDate = d
	}
	req.Overrides.OriginalActivity = b.OriginalActivity
	req.Overrides.CurrentActivity = b.CurrentActivity

	return req, req.Validate()
}

// diagnosticsError flattens HCL error diagnostics into one parsing error
func diagnosticsError(diags hcl.Diagnostics) error {
	var msgs []string
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		msg := diag.Summary
		if diag.Detail != "" {
			msg += ": " + diag.Detail
		}
		if diag.Subject != nil {
			msg = diag.Subject.String() + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return errors.Parsing("invalid scenario file", diags).WithContext("diagnostics", msgs)
}

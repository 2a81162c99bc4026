// Package output renders computed reports in machine and document formats.
// The interactive table view lives in core/ui.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"dose-calculator/core/engine"
	"dose-calculator/core/ui"
	"dose-calculator/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown report, one section per scenario
	FormatMarkdown Format = "markdown"

	// FormatCSV has one row per emission line
	FormatCSV Format = "csv"
)

// Entry is one named report to render
type Entry struct {
	Name   string             `json:"name"`
	Label  string             `json:"label,omitempty"`
	Report *engine.RateReport `json:"report"`
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes the entries to w
	Render(w io.Writer, entries []Entry) error
}

// Registry maps format names to formatters
type Registry struct {
	formatters map[Format]Formatter
}

// NewRegistry returns a registry holding the built-in formatters
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	for _, f := range []Formatter{JSONFormatter{}, MarkdownFormatter{}, CSVFormatter{}} {
		_ = r.Register(f)
	}
	return r
}

// Register adds a formatter; formats are unique
func (r *Registry) Register(f Formatter) error {
	if _, exists := r.formatters[f.Format()]; exists {
		return errors.Newf(errors.TypeInternal, "formatter %q already registered", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns the formatter of a format name
func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[Format(strings.ToLower(name))]
	if !ok {
		return nil, errors.Validation("format", fmt.Sprintf("unknown output format %q (have %s)", name, strings.Join(r.Names(), ", ")))
	}
	return f, nil
}

// Names lists registered formats in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for f := range r.formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// JSONFormatter writes the entries as an indented JSON array
type JSONFormatter struct{}

func (JSONFormatter) Format() Format { return FormatJSON }

func (JSONFormatter) Render(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// MarkdownFormatter writes a summary list and a line table per entry
type MarkdownFormatter struct{}

func (MarkdownFormatter) Format() Format { return FormatMarkdown }

func (MarkdownFormatter) Render(w io.Writer, entries []Entry) error {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		r := e.Report
		title := e.Name
		if e.Label != "" {
			title += " (" + e.Label + ")"
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		fmt.Fprintf(&b, "- **Isotope:** %s\n", r.Source.Isotope)
		fmt.Fprintf(&b, "- **Activity:** %s Bq\n", ui.FormatValue(r.Source.CurrentActivity, 0))
		fmt.Fprintf(&b, "- **Distance:** %s\n", ui.FormatQuantity(r.Source.Distance, "cm"))
		fmt.Fprintf(&b, "- **Shield:** %s %s (air gap %s)\n", r.Shield.Material,
			ui.FormatQuantity(r.Shield.Thickness, "cm"), ui.FormatQuantity(r.Shield.AirGap, "cm"))
		fmt.Fprintf(&b, "- **Flux:** %s\n", ui.FormatQuantity(r.FluxDisplay.Value, r.FluxDisplay.Unit))
		if r.DoseApplicable {
			doseType := ""
			if r.DoseType != nil {
				doseType = " (" + r.DoseType.String() + ")"
			}
			fmt.Fprintf(&b, "- **Dose rate:** %s%s\n", ui.FormatQuantity(r.DoseDisplay.Value, r.DoseDisplay.Unit), doseType)
		} else {
			b.WriteString("- **Dose rate:** only flux for neutrons\n")
		}

		b.WriteString("\n| Energy (MeV) | Yield (%) | Flux (p/cm²s) | Dose (µSv/h) |\n")
		b.WriteString("|---:|---:|---:|---:|\n")
		for _, l := range r.Lines {
			doseCell := "-"
			if l.DoseRate != nil {
				doseCell = ui.FormatValue(*l.DoseRate, 4)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				ui.FormatValue(l.EnergyMeV, 4), ui.FormatValue(l.YieldPercent, 2), ui.FormatValue(l.Flux, 4), doseCell)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CSVFormatter writes one row per emission line of every entry
type CSVFormatter struct{}

func (CSVFormatter) Format() Format { return FormatCSV }

func (CSVFormatter) Render(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	header := []string{"scenario", "label", "isotope", "distance_cm", "material", "thickness_cm",
		"energy_mev", "yield_percent", "flux", "kerma_rate", "dose_rate"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		r := e.Report
		for _, l := range r.Lines {
			row := []string{
				e.Name, e.Label, r.Source.Isotope,
				num(r.Source.Distance), r.Shield.Material.String(), num(r.Shield.Thickness),
				num(l.EnergyMeV), num(l.YieldPercent), num(l.Flux),
				optional(l.KermaRate), optional(l.DoseRate),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

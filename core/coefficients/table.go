// Package coefficients - Tabulated coefficient curves
// Attenuation, kerma and dose conversion coefficients are all stored as
// energy-ordered samples and evaluated by piecewise-linear interpolation.
package coefficients

import (
	"math"
	"sort"

	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// Table is an immutable piecewise-linear curve over strictly increasing x.
// Queries outside the sampled range extend the nearest boundary segment.
type Table struct {
	xs []float64
	ys []float64
}

// NewTable validates samples and builds a table. Samples must already be
// sorted ascending by x; at least two are required.
func NewTable(samples []types.Sample) (*Table, error) {
	if len(samples) < 2 {
		return nil, errors.Configf("coefficient table needs at least 2 samples, got %d", len(samples))
	}

	t := &Table{
		xs: make([]float64, len(samples)),
		ys: make([]float64, len(samples)),
	}
	for i, s := range samples {
		if !finite(s.X) || !finite(s.Y) {
			return nil, errors.Configf("coefficient table sample %d is not finite (%v, %v)", i, s.X, s.Y)
		}
		if i > 0 && s.X <= samples[i-1].X {
			return nil, errors.Configf("coefficient table x must be strictly increasing: sample %d (%v) follows %v",
				i, s.X, samples[i-1].X)
		}
		t.xs[i] = s.X
		t.ys[i] = s.Y
	}
	return t, nil
}

// MustTable builds a table and panics on invalid samples. For fixtures.
func MustTable(samples ...types.Sample) *Table {
	t, err := NewTable(samples)
	if err != nil {
		panic(err)
	}
	return t
}

// ValueAt evaluates the curve at x
func (t *Table) ValueAt(x float64) float64 {
	i := t.segment(x)
	x0, x1 := t.xs[i], t.xs[i+1]
	y0, y1 := t.ys[i], t.ys[i+1]
	slope := (y1 - y0) / (x1 - x0)
	return slope*(x-x0) + y0
}

// ValuesAt evaluates the curve at each x, preserving order
func (t *Table) ValuesAt(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = t.ValueAt(x)
	}
	return out
}

// Len returns the number of samples
func (t *Table) Len() int {
	return len(t.xs)
}

// Domain returns the sampled x range
func (t *Table) Domain() (min, max float64) {
	return t.xs[0], t.xs[len(t.xs)-1]
}

// Samples returns a copy of the stored samples
func (t *Table) Samples() []types.Sample {
	out := make([]types.Sample, len(t.xs))
	for i := range t.xs {
		out[i] = types.Sample{X: t.xs[i], Y: t.ys[i]}
	}
	return out
}

// segment returns the index of the left sample of the segment used for x.
// Points below the domain use the first segment, above it the last one.
func (t *Table) segment(x float64) int {
	// first index with xs[i] >= x
	i := sort.SearchFloat64s(t.xs, x)
	switch {
	case i == 0:
		return 0
	case i >= len(t.xs):
		return len(t.xs) - 2
	default:
		return i - 1
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

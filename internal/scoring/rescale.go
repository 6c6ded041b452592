package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Rescaler maps raw weighted z-score sums onto the fixed [0, 100] range.
// The transform is fit once per run over the full multi-era population,
// so scores stay comparable across cohorts computed in the same run. All
// implementations are monotonic.
type Rescaler interface {
	Fit(values []float64)
	Apply(v float64) float64
	Name() string
}

// NewRescaler selects a transform by config name.
func NewRescaler(method string) (Rescaler, error) {
	switch method {
	case "minmax":
		return &MinMax{}, nil
	case "percentile":
		return &Percentile{Lo: 0.05, Hi: 0.95}, nil
	default:
		return nil, fmt.Errorf("unknown rescale method: %q", method)
	}
}

// MinMax maps the observed [min, max] onto [0, 100]. The default.
type MinMax struct {
	min, max float64
	flat     bool
}

// Fit records the observed range.
func (m *MinMax) Fit(values []float64) {
	if len(values) == 0 {
		m.flat = true
		return
	}
	m.min, m.max = values[0], values[0]
	for _, v := range values[1:] {
		m.min = math.Min(m.min, v)
		m.max = math.Max(m.max, v)
	}
	// A population with a single observed value has no spread to map.
	m.flat = m.max == m.min
}

// Apply maps a raw composite onto [0, 100]. A flat population maps to the
// midpoint.
func (m *MinMax) Apply(v float64) float64 {
	if m.flat {
		return 50
	}
	return clamp((v-m.min)/(m.max-m.min)*100, 0, 100)
}

// Name implements Rescaler.
func (m *MinMax) Name() string { return "minmax" }

// Percentile maps the [p_lo, p_hi] quantile band onto [0, 100], clamping
// the tails. Less sensitive to outlier seasons than MinMax.
type Percentile struct {
	Lo, Hi   float64
	lov, hiv float64
	flat     bool
}

// Fit computes the quantile bounds by linear interpolation.
func (p *Percentile) Fit(values []float64) {
	if len(values) == 0 {
		p.flat = true
		return
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p.lov = quantile(sorted, p.Lo)
	p.hiv = quantile(sorted, p.Hi)
	p.flat = p.hiv == p.lov
}

// Apply maps a raw composite onto [0, 100].
func (p *Percentile) Apply(v float64) float64 {
	if p.flat {
		return 50
	}
	return clamp((v-p.lov)/(p.hiv-p.lov)*100, 0, 100)
}

// Name implements Rescaler.
func (p *Percentile) Name() string { return "percentile" }

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

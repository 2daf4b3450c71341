// Package degradation estimates how much lap time each tyre compound loses
// per lap of age, from the stints actually driven in a session.
//
// Every stint long enough to fit contributes one slope of fuel-corrected lap
// time against tyre lap. Slopes outside the plausibility bounds are thrown
// away, the rest are pooled per compound across all drivers. A compound seen
// in the input without a usable stint falls back to a fixed prior.
package degradation

import (
	"sort"
	"time"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/regression"
	"github.com/banshee-data/lap-pace/internal/stint"
)

// FallbackRate is used for a compound that has neither an empirical
// estimate nor an entry in the prior table.
const FallbackRate = 0.05

// DefaultPriors returns the prior degradation table in s/lap.
func DefaultPriors() map[string]float64 {
	return map[string]float64{
		"SOFT":         0.08,
		"MEDIUM":       0.05,
		"HARD":         0.03,
		"INTERMEDIATE": 0.10,
		"WET":          0.12,
	}
}

// Options controls which stints contribute a slope.
type Options struct {
	MinLaps int
	// Slopes must lie strictly inside (MinSlope, MaxSlope).
	MinSlope float64
	MaxSlope float64
	Priors   map[string]float64
	// GapThreshold is used only when the input has to be stint-tagged.
	GapThreshold time.Duration
}

// DefaultOptions returns the default fit policy.
func DefaultOptions() Options {
	return Options{
		MinLaps:      4,
		MinSlope:     0,
		MaxSlope:     0.3,
		Priors:       DefaultPriors(),
		GapThreshold: stint.DefaultGapThreshold,
	}
}

// Estimate is the pooled degradation rate for one compound.
type Estimate struct {
	Compound string
	Median   float64
	Mean     float64
	Std      float64 // population
	Stints   int
	Prior    bool // no stint qualified; values come from the prior table
}

// StintFit records the fit of one stint, accepted or not.
type StintFit struct {
	Driver   string
	Stint    int
	Compound string
	Laps     int
	Slope    float64
	Accepted bool
}

// Estimates holds one Estimate per compound observed in the input. Rate is
// defined for every compound, observed or not.
type Estimates struct {
	ByCompound map[string]Estimate
	Fits       []StintFit

	SkippedShort   int // stints below MinLaps
	RejectedSlopes int // fitted slopes outside the plausibility bounds

	priors map[string]float64
}

// Prior returns the prior rate for compound from priors, or FallbackRate.
func Prior(priors map[string]float64, compound string) float64 {
	if r, ok := priors[compound]; ok {
		return r
	}
	return FallbackRate
}

// Build estimates per-compound degradation from fuel-corrected laps. Laps
// that are not stint-tagged are segmented first.
func Build(ls []laps.Lap, opts Options) *Estimates {
	if opts.MinLaps <= 0 {
		opts.MinLaps = DefaultOptions().MinLaps
	}
	if opts.MaxSlope <= opts.MinSlope {
		opts.MinSlope, opts.MaxSlope = DefaultOptions().MinSlope, DefaultOptions().MaxSlope
	}
	if opts.Priors == nil {
		opts.Priors = DefaultPriors()
	}

	tagged := stint.EnsureTagged(ls, opts.GapThreshold)
	e := &Estimates{
		ByCompound: make(map[string]Estimate),
		priors:     opts.Priors,
	}

	slopes := make(map[string][]float64)
	keys, groups := laps.ByStint(tagged)
	for _, k := range keys {
		g := groups[k]
		compound := g[0].Compound
		if len(g) < opts.MinLaps {
			e.SkippedShort++
			monitoring.Verbosef("degradation: %s stint %d has %d laps, skipped", k.Driver, k.Stint, len(g))
			continue
		}

		x := make([]float64, len(g))
		y := make([]float64, len(g))
		for i, l := range g {
			x[i] = float64(l.TyreLap)
			y[i] = l.FuelCorrectedTime()
		}
		line, ok := regression.Fit(x, y)
		fit := StintFit{Driver: k.Driver, Stint: k.Stint, Compound: compound, Laps: len(g), Slope: line.Slope}
		if ok && line.Slope > opts.MinSlope && line.Slope < opts.MaxSlope {
			fit.Accepted = true
			slopes[compound] = append(slopes[compound], line.Slope)
		} else {
			e.RejectedSlopes++
			monitoring.Verbosef("degradation: %s stint %d slope %.4f rejected", k.Driver, k.Stint, line.Slope)
		}
		e.Fits = append(e.Fits, fit)
	}

	for _, compound := range laps.Compounds(tagged) {
		s := slopes[compound]
		if len(s) == 0 {
			p := Prior(opts.Priors, compound)
			e.ByCompound[compound] = Estimate{Compound: compound, Median: p, Mean: p, Prior: true}
			continue
		}
		e.ByCompound[compound] = Estimate{
			Compound: compound,
			Median:   regression.Median(s),
			Mean:     regression.Mean(s),
			Std:      regression.PopStdDev(s),
			Stints:   len(s),
		}
	}

	if e.SkippedShort > 0 || e.RejectedSlopes > 0 {
		monitoring.Logf("degradation: %d short stints skipped, %d slopes rejected", e.SkippedShort, e.RejectedSlopes)
	}
	return e
}

// Rate returns the degradation rate used for compound: the empirical median
// when present, otherwise the prior. A nil receiver uses the default priors.
func (e *Estimates) Rate(compound string) float64 {
	if e == nil {
		return Prior(DefaultPriors(), compound)
	}
	if est, ok := e.ByCompound[compound]; ok {
		return est.Median
	}
	priors := e.priors
	if priors == nil {
		priors = DefaultPriors()
	}
	return Prior(priors, compound)
}

// Get returns the estimate for compound, if it was observed.
func (e *Estimates) Get(compound string) (Estimate, bool) {
	if e == nil {
		return Estimate{}, false
	}
	est, ok := e.ByCompound[compound]
	return est, ok
}

// List returns the estimates ordered by compound.
func (e *Estimates) List() []Estimate {
	if e == nil {
		return nil
	}
	out := make([]Estimate, 0, len(e.ByCompound))
	for _, est := range e.ByCompound {
		out = append(out, est)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compound < out[j].Compound })
	return out
}

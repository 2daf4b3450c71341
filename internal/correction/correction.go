// Package correction composes the fuel, track evolution and tyre age
// corrections into one fully corrected lap time.
//
// Each correction is an offset from the raw lap time. They are computed
// independently and summed once, so FullyCorrectedTime never includes a
// cross term.
package correction

import (
	"fmt"
	"time"

	"github.com/banshee-data/lap-pace/internal/degradation"
	"github.com/banshee-data/lap-pace/internal/evolution"
	"github.com/banshee-data/lap-pace/internal/fuel"
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/regression"
	"github.com/banshee-data/lap-pace/internal/stint"
)

// Options selects the corrections to apply. A disabled correction is
// exactly zero on every lap.
type Options struct {
	DisableFuel      bool
	DisableEvolution bool
	DisableTyre      bool

	GapThreshold time.Duration
	Fuel         fuel.Model
	Degradation  degradation.Options
}

// DefaultOptions enables every correction with the default models.
func DefaultOptions() Options {
	return Options{
		GapThreshold: stint.DefaultGapThreshold,
		Fuel:         fuel.DefaultModel(),
		Degradation:  degradation.DefaultOptions(),
	}
}

// Input is everything Compose needs for one session.
type Input struct {
	Laps         []laps.Lap
	SessionStart time.Time
	Evolution    evolution.Model
	// Degradation may be nil, in which case it is estimated from the
	// fuel-corrected laps.
	Degradation *degradation.Estimates
}

// Result is the corrected lap table and the degradation estimates used.
type Result struct {
	Laps          []laps.Lap
	Degradation   *degradation.Estimates
	MedianTyreLap float64
	FuelReference int
}

// Compose validates, stint-tags and corrects laps. The only error it
// returns is a structurally invalid lap.
func Compose(in Input, opts Options) (Result, error) {
	if err := laps.ValidateAll(in.Laps); err != nil {
		return Result{}, fmt.Errorf("compose corrections: %w", err)
	}
	if opts.Fuel == (fuel.Model{}) {
		opts.Fuel = fuel.DefaultModel()
	}

	tagged := stint.Segment(in.Laps, opts.GapThreshold)

	res := Result{FuelReference: fuel.ReferenceLap(tagged)}
	fuelled := opts.Fuel.ApplyRelativeTo(tagged, res.FuelReference)

	est := in.Degradation
	if est == nil {
		if opts.Degradation.GapThreshold == 0 {
			opts.Degradation.GapThreshold = opts.GapThreshold
		}
		est = degradation.Build(fuelled, opts.Degradation)
	}
	res.Degradation = est

	out := in.Evolution.Apply(fuelled, in.SessionStart)
	res.MedianTyreLap = medianTyreLap(out)
	for i := range out {
		l := &out[i]
		if opts.DisableFuel {
			l.FuelCorrection = 0
		}
		if opts.DisableEvolution {
			l.EvolutionCorrection = 0
		}
		if opts.DisableTyre {
			l.TyreCorrection = 0
		} else {
			l.TyreCorrection = TyreCorrection(l.TyreLap, res.MedianTyreLap, est.Rate(l.Compound))
		}
	}
	res.Laps = out
	return res, nil
}

// TyreCorrection is the tyre age offset of a lap on tyreLap relative to the
// median tyre lap, for a compound degrading at rate s/lap.
func TyreCorrection(tyreLap int, median, rate float64) float64 {
	return -(float64(tyreLap) - median) * rate
}

func medianTyreLap(ls []laps.Lap) float64 {
	ages := make([]int, len(ls))
	for i, l := range ls {
		ages[i] = l.TyreLap
	}
	return regression.MedianInt(ages)
}

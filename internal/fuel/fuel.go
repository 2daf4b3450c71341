// Package fuel converts the fuel load a car carries on a given lap into a
// lap-time offset.
package fuel

import (
	"math"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/regression"
)

// Default model constants.
const (
	DefaultStartKg      = 80.0
	DefaultBurnKgPerLap = 1.5
	DefaultEffectPerKg  = 0.035
	DefaultFloorKg      = 5.0
)

// Model is a linear burn-off fuel model.
type Model struct {
	StartKg      float64 // load at lap 1
	BurnKgPerLap float64
	EffectPerKg  float64 // seconds of lap time per kg carried
	FloorKg      float64 // minimum load ever assumed
}

// DefaultModel returns the model with the default constants.
func DefaultModel() Model {
	return Model{
		StartKg:      DefaultStartKg,
		BurnKgPerLap: DefaultBurnKgPerLap,
		EffectPerKg:  DefaultEffectPerKg,
		FloorKg:      DefaultFloorKg,
	}
}

// Load returns the estimated fuel on board at the start of lap n. Lap
// numbers below 1 are treated as lap 1.
func (m Model) Load(n int) float64 {
	if n < 1 {
		n = 1
	}
	return math.Max(m.StartKg-float64(n-1)*m.BurnKgPerLap, m.FloorKg)
}

// Correction returns the lap-time offset of lap n relative to reference
// lap ref. Early (heavier) laps get a positive offset when n < ref.
func (m Model) Correction(n, ref int) float64 {
	return (m.Load(n) - m.Load(ref)) * m.EffectPerKg
}

// ReferenceLap returns the median lap number of ls, truncated to an int.
func ReferenceLap(ls []laps.Lap) int {
	if len(ls) == 0 {
		return 1
	}
	numbers := make([]int, len(ls))
	for i, l := range ls {
		numbers[i] = l.Number
	}
	return int(regression.MedianInt(numbers))
}

// Apply returns a copy of ls with FuelCorrection set relative to the median
// lap number of ls.
func (m Model) Apply(ls []laps.Lap) []laps.Lap {
	return m.ApplyRelativeTo(ls, ReferenceLap(ls))
}

// ApplyRelativeTo returns a copy of ls with FuelCorrection set relative to
// ref.
func (m Model) ApplyRelativeTo(ls []laps.Lap, ref int) []laps.Lap {
	out := laps.Clone(ls)
	for i := range out {
		out[i].FuelCorrection = m.Correction(out[i].Number, ref)
	}
	return out
}

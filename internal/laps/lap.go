package laps

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidLap is returned when a lap is missing a field every stage
// depends on.
var ErrInvalidLap = errors.New("invalid lap")

// Lap is a single completed, timed lap. The raw fields are set by the lap
// store; Stint, TyreLap and the correction fields are filled in by the
// pipeline stages.
type Lap struct {
	Driver    string    `json:"driver"`
	Compound  string    `json:"compound"`
	Number    int       `json:"lap_number"`
	StartTime time.Time `json:"lap_start_time"`
	Time      float64   `json:"lap_time"` // seconds
	Sector1   float64   `json:"sector1"`
	Sector2   float64   `json:"sector2"`
	Sector3   float64   `json:"sector3"`
	Accurate  bool      `json:"is_accurate"`

	// Stint tags; zero until segmented.
	Stint   int `json:"stint"`
	TyreLap int `json:"tyre_lap"`

	// Corrections in seconds, each relative to the raw Time.
	FuelCorrection      float64 `json:"fuel_correction"`
	EvolutionCorrection float64 `json:"track_evolution_correction"`
	TyreCorrection      float64 `json:"tyre_age_correction"`
}

// FuelCorrectedTime is the raw lap time with only the fuel correction applied.
func (l Lap) FuelCorrectedTime() float64 {
	return l.Time + l.FuelCorrection
}

// EvolutionCorrectedTime is the raw lap time with only the track evolution
// correction applied.
func (l Lap) EvolutionCorrectedTime() float64 {
	return l.Time + l.EvolutionCorrection
}

// TyreCorrectedTime is the raw lap time with only the tyre age correction
// applied.
func (l Lap) TyreCorrectedTime() float64 {
	return l.Time + l.TyreCorrection
}

// TotalCorrection is the sum of the three independent corrections.
func (l Lap) TotalCorrection() float64 {
	return l.FuelCorrection + l.EvolutionCorrection + l.TyreCorrection
}

// FullyCorrectedTime is the raw time plus every correction.
func (l Lap) FullyCorrectedTime() float64 {
	return l.Time + l.TotalCorrection()
}

// ElapsedMinutes returns the minutes between sessionStart and the start of
// this lap. Laps that started before sessionStart give a negative value.
func (l Lap) ElapsedMinutes(sessionStart time.Time) float64 {
	return l.StartTime.Sub(sessionStart).Minutes()
}

// Tagged reports whether the lap carries stint tags.
func (l Lap) Tagged() bool {
	return l.Stint > 0 && l.TyreLap > 0
}

// Validate checks the fields required by the correction pipeline.
func (l Lap) Validate() error {
	switch {
	case l.Driver == "":
		return fmt.Errorf("%w: lap %d has no driver", ErrInvalidLap, l.Number)
	case l.Compound == "":
		return fmt.Errorf("%w: %s lap %d has no compound", ErrInvalidLap, l.Driver, l.Number)
	case l.StartTime.IsZero():
		return fmt.Errorf("%w: %s lap %d has no start time", ErrInvalidLap, l.Driver, l.Number)
	case math.IsNaN(l.Time) || math.IsInf(l.Time, 0) || l.Time <= 0:
		return fmt.Errorf("%w: %s lap %d has lap time %v", ErrInvalidLap, l.Driver, l.Number, l.Time)
	}
	return nil
}

// ValidateAll returns the first validation error in ls.
func ValidateAll(ls []Lap) error {
	for _, l := range ls {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Session is the complete lap table for one timed session.
type Session struct {
	Name  string
	Start time.Time
	Laps  []Lap
}

// Clone returns a copy of ls that shares no backing array with it.
func Clone(ls []Lap) []Lap {
	if ls == nil {
		return nil
	}
	out := make([]Lap, len(ls))
	copy(out, ls)
	return out
}

// Drivers returns the distinct driver codes in ls, sorted.
func Drivers(ls []Lap) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range ls {
		if _, ok := seen[l.Driver]; ok {
			continue
		}
		seen[l.Driver] = struct{}{}
		out = append(out, l.Driver)
	}
	sort.Strings(out)
	return out
}

// Compounds returns the distinct compounds in ls, sorted.
func Compounds(ls []Lap) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range ls {
		if _, ok := seen[l.Compound]; ok {
			continue
		}
		seen[l.Compound] = struct{}{}
		out = append(out, l.Compound)
	}
	sort.Strings(out)
	return out
}

// ByDriver partitions ls by driver. Order within each group follows ls.
func ByDriver(ls []Lap) map[string][]Lap {
	out := make(map[string][]Lap)
	for _, l := range ls {
		out[l.Driver] = append(out[l.Driver], l)
	}
	return out
}

// StintKey identifies one stint of one driver.
type StintKey struct {
	Driver string
	Stint  int
}

// ByStint partitions tagged laps into non-overlapping (driver, stint) groups
// and returns the keys in driver then stint order. Laps within a group are
// ordered by tyre lap.
func ByStint(ls []Lap) ([]StintKey, map[StintKey][]Lap) {
	groups := make(map[StintKey][]Lap)
	for _, l := range ls {
		k := StintKey{Driver: l.Driver, Stint: l.Stint}
		groups[k] = append(groups[k], l)
	}
	keys := make([]StintKey, 0, len(groups))
	for k, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].TyreLap < g[j].TyreLap })
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Driver != keys[j].Driver {
			return keys[i].Driver < keys[j].Driver
		}
		return keys[i].Stint < keys[j].Stint
	})
	return keys, groups
}

// Filter returns the laps for which keep returns true.
func Filter(ls []Lap, keep func(Lap) bool) []Lap {
	var out []Lap
	for _, l := range ls {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// ForDriver returns the laps driven by driver.
func ForDriver(ls []Lap, driver string) []Lap {
	return Filter(ls, func(l Lap) bool { return l.Driver == driver })
}

// ForCompound returns the laps run on compound.
func ForCompound(ls []Lap, compound string) []Lap {
	return Filter(ls, func(l Lap) bool { return l.Compound == compound })
}

// BestTime returns the fastest raw lap time in ls, or 0 for no laps.
func BestTime(ls []Lap) float64 {
	best := math.Inf(1)
	for _, l := range ls {
		if l.Time < best {
			best = l.Time
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// Representative keeps laps whose raw time is within percent of the best
// raw time in ls. A percent of 107 keeps laps up to 7% slower than the best.
func Representative(ls []Lap, percent float64) []Lap {
	if len(ls) == 0 {
		return nil
	}
	threshold := BestTime(ls) * percent / 100
	return Filter(ls, func(l Lap) bool { return l.Time <= threshold })
}

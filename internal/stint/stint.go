// Package stint splits each driver's laps into stints: contiguous runs on
// one tyre set.
//
// There is no explicit pit marker in the lap table, so a stint boundary is
// inferred from either a compound change or a long gap between consecutive
// lap starts (an in-lap, pit visit and out-lap that were filtered upstream).
package stint

import (
	"sort"
	"time"

	"github.com/banshee-data/lap-pace/internal/laps"
)

// DefaultGapThreshold is the start-to-start gap above which a new stint
// begins.
const DefaultGapThreshold = 300 * time.Second

// Segment returns a copy of ls with Stint and TyreLap set on every lap.
// Drivers are emitted in ascending order and each driver's laps in start
// time order. Any existing tags are ignored, so Segment is idempotent.
func Segment(ls []laps.Lap, gapThreshold time.Duration) []laps.Lap {
	if len(ls) == 0 {
		return nil
	}
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}

	byDriver := laps.ByDriver(laps.Clone(ls))
	out := make([]laps.Lap, 0, len(ls))
	for _, driver := range laps.Drivers(ls) {
		out = append(out, segmentDriver(byDriver[driver], gapThreshold)...)
	}
	return out
}

// segmentDriver tags one driver's laps in place and returns them sorted.
func segmentDriver(dl []laps.Lap, gapThreshold time.Duration) []laps.Lap {
	sort.SliceStable(dl, func(i, j int) bool {
		if !dl[i].StartTime.Equal(dl[j].StartTime) {
			return dl[i].StartTime.Before(dl[j].StartTime)
		}
		return dl[i].Number < dl[j].Number
	})

	stintIdx, tyreLap := 0, 0
	for i := range dl {
		if i == 0 || isBoundary(dl[i-1], dl[i], gapThreshold) {
			stintIdx++
			tyreLap = 0
		}
		tyreLap++
		dl[i].Stint = stintIdx
		dl[i].TyreLap = tyreLap
	}
	return dl
}

func isBoundary(prev, cur laps.Lap, gapThreshold time.Duration) bool {
	if cur.Compound != prev.Compound {
		return true
	}
	return cur.StartTime.Sub(prev.StartTime) > gapThreshold
}

// EnsureTagged segments ls only when some lap is missing its stint tags.
func EnsureTagged(ls []laps.Lap, gapThreshold time.Duration) []laps.Lap {
	for _, l := range ls {
		if !l.Tagged() {
			return Segment(ls, gapThreshold)
		}
	}
	return laps.Clone(ls)
}

// Summary describes one segmented stint.
type Summary struct {
	Driver    string
	Stint     int
	Compound  string
	Laps      int
	FirstLap  int
	LastLap   int
	StartTime time.Time
}

// Summaries lists every stint in tagged laps in driver then stint order.
func Summaries(tagged []laps.Lap) []Summary {
	keys, groups := laps.ByStint(tagged)
	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		s := Summary{
			Driver:    k.Driver,
			Stint:     k.Stint,
			Compound:  g[0].Compound,
			Laps:      len(g),
			FirstLap:  g[0].Number,
			LastLap:   g[0].Number,
			StartTime: g[0].StartTime,
		}
		for _, l := range g[1:] {
			if l.Number < s.FirstLap {
				s.FirstLap = l.Number
			}
			if l.Number > s.LastLap {
				s.LastLap = l.Number
			}
			if l.StartTime.Before(s.StartTime) {
				s.StartTime = l.StartTime
			}
		}
		out = append(out, s)
	}
	return out
}

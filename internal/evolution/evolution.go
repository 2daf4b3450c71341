// Package evolution models how the circuit itself gets faster or slower over
// a session.
//
// The session is cut into fixed-width time windows. Each window with enough
// representative laps contributes its best lap, and a straight line through
// those best laps gives the evolution rate in seconds per minute. With too
// few windows no line is fitted and the rate is zero.
package evolution

import (
	"math"
	"time"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/regression"
)

// Options configures model construction. Zero fields take the defaults.
type Options struct {
	Window              time.Duration // window width
	RepresentativeRatio float64       // keep laps <= best * ratio
	MinLapsPerWindow    int
	MinWindows          int
	MaxRate             float64 // |slope| clamp in s/min
}

// DefaultOptions returns the default windowing and clamp policy.
func DefaultOptions() Options {
	return Options{
		Window:              5 * time.Minute,
		RepresentativeRatio: 1.05,
		MinLapsPerWindow:    3,
		MinWindows:          3,
		MaxRate:             0.05,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.RepresentativeRatio <= 0 {
		o.RepresentativeRatio = d.RepresentativeRatio
	}
	if o.MinLapsPerWindow <= 0 {
		o.MinLapsPerWindow = d.MinLapsPerWindow
	}
	if o.MinWindows <= 0 {
		o.MinWindows = d.MinWindows
	}
	if o.MaxRate <= 0 {
		o.MaxRate = d.MaxRate
	}
	return o
}

// Window is one qualifying time bucket.
type Window struct {
	Start    float64 // minutes since session start
	Mid      float64
	Best     float64 // fastest lap in the window, seconds
	LapCount int
	Fitted   float64 // model value at Mid
}

// Model is the fitted evolution trend for one session.
type Model struct {
	Windows   []Window
	Rate      float64 // s/min; negative means the track is getting faster
	Intercept float64
	RSquared  float64
	Fit       bool // false for a degenerate model
	Clamped   bool // the fitted slope exceeded MaxRate

	DroppedWindows int // windows with laps but too few to qualify
}

// Build fits an evolution model from every lap of a session. The result
// depends only on the laps, sessionStart and opts.
func Build(ls []laps.Lap, sessionStart time.Time, opts Options) Model {
	opts = opts.withDefaults()
	if len(ls) == 0 {
		return Model{}
	}

	threshold := laps.BestTime(ls) * opts.RepresentativeRatio
	width := opts.Window.Minutes()

	type bucket struct {
		best  float64
		count int
	}
	buckets := make(map[int]*bucket)
	maxIdx := -1
	for _, l := range ls {
		if l.Time > threshold {
			continue
		}
		minute := l.ElapsedMinutes(sessionStart)
		if minute < 0 {
			continue
		}
		idx := int(math.Floor(minute / width))
		b, ok := buckets[idx]
		if !ok {
			b = &bucket{best: l.Time}
			buckets[idx] = b
		}
		if l.Time < b.best {
			b.best = l.Time
		}
		b.count++
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	var m Model
	for idx := 0; idx <= maxIdx; idx++ {
		b, ok := buckets[idx]
		if !ok {
			continue
		}
		if b.count < opts.MinLapsPerWindow {
			m.DroppedWindows++
			continue
		}
		startMin := float64(idx) * width
		m.Windows = append(m.Windows, Window{
			Start:    startMin,
			Mid:      startMin + width/2,
			Best:     b.best,
			LapCount: b.count,
		})
	}

	if len(m.Windows) < opts.MinWindows {
		return m.degenerate()
	}

	x := make([]float64, len(m.Windows))
	y := make([]float64, len(m.Windows))
	for i, w := range m.Windows {
		x[i] = w.Mid
		y[i] = w.Best
	}
	line, ok := regression.Fit(x, y)
	if !ok {
		return m.degenerate()
	}

	slope := line.Slope
	if math.Abs(slope) > opts.MaxRate {
		slope = math.Copysign(opts.MaxRate, slope)
		m.Clamped = true
		monitoring.Logf("evolution: clamped slope %.4f to %.4f s/min", line.Slope, slope)
	}

	m.Fit = true
	m.Rate = slope
	m.Intercept = line.Intercept
	m.RSquared = line.RSquared
	for i := range m.Windows {
		m.Windows[i].Fitted = m.Intercept + slope*m.Windows[i].Mid
	}
	return m
}

func (m Model) degenerate() Model {
	if len(m.Windows) > 0 {
		monitoring.Logf("evolution: %d qualifying windows, no trend fitted", len(m.Windows))
	}
	m.Fit = false
	m.Rate = 0
	m.Intercept = 0
	m.RSquared = 0
	for i := range m.Windows {
		m.Windows[i].Fitted = m.Windows[i].Best
	}
	return m
}

// ReferenceMinute is the median window midpoint, the point at which the
// evolution correction is zero. Returns 0 for a model with no windows.
func (m Model) ReferenceMinute() float64 {
	mids := make([]float64, len(m.Windows))
	for i, w := range m.Windows {
		mids[i] = w.Mid
	}
	return regression.Median(mids)
}

// Correction returns the track evolution correction for a lap that started
// minute minutes into the session.
func (m Model) Correction(minute float64) float64 {
	return m.correction(minute, m.ReferenceMinute())
}

func (m Model) correction(minute, ref float64) float64 {
	if len(m.Windows) == 0 || m.Rate == 0 {
		return 0
	}
	return -(minute - ref) * m.Rate
}

// Apply returns a copy of ls with EvolutionCorrection set. Elapsed time is
// measured from sessionStart, the origin the model was built on.
func (m Model) Apply(ls []laps.Lap, sessionStart time.Time) []laps.Lap {
	out := laps.Clone(ls)
	ref := m.ReferenceMinute()
	for i := range out {
		out[i].EvolutionCorrection = m.correction(out[i].ElapsedMinutes(sessionStart), ref)
	}
	return out
}

// Package pipeline runs one full analysis: it loads the rookie and
// reference sessions, corrects both, and builds the comparison report.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lap-pace/internal/analytics"
	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/correction"
	"github.com/banshee-data/lap-pace/internal/degradation"
	"github.com/banshee-data/lap-pace/internal/evolution"
	"github.com/banshee-data/lap-pace/internal/lapstore"
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/timeutil"
)

// LapSource loads the usable laps of a named session.
type LapSource interface {
	SessionLaps(ctx context.Context, name string) (laps.Session, error)
}

// RunStore persists a finished run.
type RunStore interface {
	SaveRun(ctx context.Context, run lapstore.Run) (uuid.UUID, error)
}

// SessionResult is one session after correction.
type SessionResult struct {
	Name  string
	Start time.Time

	Evolution evolution.Model
	// Fuel is stint-tagged with only the fuel correction applied.
	Fuel []laps.Lap
	// Corrected carries all three corrections.
	Corrected []laps.Lap

	Degradation   *degradation.Estimates
	MedianTyreLap float64
	FuelReference int
}

// Diagnostics gathers every silent fallback taken during the run.
type Diagnostics struct {
	Counters map[string]int
	// PriorCompounds lists, per session, compounds whose tyre correction
	// fell back to the prior table.
	PriorCompounds map[string][]string
}

// Result is the output of one run.
type Result struct {
	RunID     uuid.UUID
	CreatedAt time.Time
	Duration  time.Duration
	Event     string

	Rookie    SessionResult
	Reference SessionResult
	Report    analytics.Report

	Diagnostics Diagnostics
}

// Pipeline wires the correction stages to a lap source.
type Pipeline struct {
	src   LapSource
	cfg   *config.PaceConfig
	clock timeutil.Clock
}

// New returns a Pipeline. A nil cfg uses the defaults and a nil clock the
// wall clock.
func New(src LapSource, cfg *config.PaceConfig, clock timeutil.Clock) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultPaceConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Pipeline{src: src, cfg: cfg, clock: clock}
}

// Run loads and corrects both sessions concurrently, then joins them in
// the analytics report. Any load or validation failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.clock.Now()
	res := &Result{
		RunID:     uuid.New(),
		CreatedAt: start,
		Event:     p.cfg.GetEvent(),
	}
	counters := &monitoring.Counters{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.prepare(gctx, p.cfg.GetRookieSession(), counters)
		res.Rookie = s
		return err
	})
	g.Go(func() error {
		s, err := p.prepare(gctx, p.cfg.GetReferenceSession(), counters)
		res.Reference = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analyzer := analytics.New(analytics.OptionsFromConfig(p.cfg), counters)
	res.Report = analyzer.Run(analytics.Input{
		Rookie:    analytics.Session{Name: res.Rookie.Name, Fuel: res.Rookie.Fuel, Corrected: res.Rookie.Corrected},
		Reference: analytics.Session{Name: res.Reference.Name, Fuel: res.Reference.Fuel, Corrected: res.Reference.Corrected},
	})

	res.Diagnostics = Diagnostics{
		Counters: counters.Snapshot(),
		PriorCompounds: map[string][]string{
			res.Rookie.Name:    priorCompounds(res.Rookie.Degradation),
			res.Reference.Name: priorCompounds(res.Reference.Degradation),
		},
	}
	res.Duration = p.clock.Since(start)
	monitoring.Logf("pipeline: run %s finished in %v (%d pace rows, %d skips)",
		res.RunID, res.Duration, len(res.Report.CompoundPace), total(res.Diagnostics.Counters))
	return res, nil
}

// prepare loads one session, fits its evolution model and composes the
// fuel-only and fully corrected lap tables.
func (p *Pipeline) prepare(ctx context.Context, name string, counters *monitoring.Counters) (SessionResult, error) {
	s, err := p.src.SessionLaps(ctx, name)
	if err != nil {
		return SessionResult{Name: name}, fmt.Errorf("load %s: %w", name, err)
	}
	if err := laps.ValidateAll(s.Laps); err != nil {
		return SessionResult{Name: name}, fmt.Errorf("session %s: %w", name, err)
	}

	out := SessionResult{Name: name, Start: s.Start}
	out.Evolution = evolution.Build(s.Laps, s.Start, p.cfg.EvolutionOptions())
	counters.Add("evolution."+name+".dropped_windows", out.Evolution.DroppedWindows)
	if !out.Evolution.Fit {
		counters.Inc("evolution." + name + ".degenerate")
	}

	opts := p.cfg.CorrectionOptions()
	full, err := correction.Compose(correction.Input{
		Laps:         s.Laps,
		SessionStart: s.Start,
		Evolution:    out.Evolution,
	}, opts)
	if err != nil {
		return out, fmt.Errorf("session %s: %w", name, err)
	}
	out.Corrected = full.Laps
	out.Degradation = full.Degradation
	out.MedianTyreLap = full.MedianTyreLap
	out.FuelReference = full.FuelReference
	counters.Add("degradation."+name+".short_stints", full.Degradation.SkippedShort)
	counters.Add("degradation."+name+".rejected_slopes", full.Degradation.RejectedSlopes)

	fuelOnly := opts
	fuelOnly.DisableFuel = false
	fuelOnly.DisableEvolution = true
	fuelOnly.DisableTyre = true
	fr, err := correction.Compose(correction.Input{
		Laps:         s.Laps,
		SessionStart: s.Start,
		Evolution:    out.Evolution,
		Degradation:  full.Degradation,
	}, fuelOnly)
	if err != nil {
		return out, fmt.Errorf("session %s: %w", name, err)
	}
	out.Fuel = fr.Laps

	monitoring.Logf("pipeline: %s: %d laps, evolution %.4f s/min (fit=%v, windows=%d), fuel reference lap %d",
		name, len(s.Laps), out.Evolution.Rate, out.Evolution.Fit, len(out.Evolution.Windows), out.FuelReference)
	return out, nil
}

// Save persists the run header and both corrected lap tables.
func (p *Pipeline) Save(ctx context.Context, store RunStore, res *Result) error {
	cfgJSON, err := json.Marshal(p.cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = store.SaveRun(ctx, lapstore.Run{
		ID:                     res.RunID,
		RookieSession:          res.Rookie.Name,
		ReferenceSession:       res.Reference.Name,
		CreatedAt:              res.CreatedAt,
		RookieEvolutionRate:    res.Rookie.Evolution.Rate,
		ReferenceEvolutionRate: res.Reference.Evolution.Rate,
		ConfigJSON:             string(cfgJSON),
		Corrected: map[string][]laps.Lap{
			res.Rookie.Name:    res.Rookie.Corrected,
			res.Reference.Name: res.Reference.Corrected,
		},
	})
	return err
}

func priorCompounds(e *degradation.Estimates) []string {
	var out []string
	for _, est := range e.List() {
		if est.Prior {
			out = append(out, est.Compound)
		}
	}
	return out
}

func total(counts map[string]int) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}

// Package analytics turns corrected lap tables into the rookie versus
// reference comparisons: compound-matched pace, stint trends, tyre
// management, long-run pace and sector deficits.
//
// Nothing here estimates anything new. Every table is a grouping or join
// over laps already prepared by the correction pipeline. Rows that cannot
// be produced because a driver or compound is missing are skipped and
// counted in the analyzer's counters.
package analytics

import (
	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
)

// Counter names for skipped rows.
const (
	SkipPaceMissingDriver     = "compound_pace.missing_driver"
	SkipPaceNoCommonCompound  = "compound_pace.no_common_compound"
	SkipTrendShortStint       = "stint_trend.short_stint"
	SkipTrendNoFit            = "stint_trend.no_fit"
	SkipLongRunShortStint     = "long_run.short_stint"
	SkipLongRunMissingPairing = "long_run_comparison.missing_driver"
	SkipLongRunNoCommon       = "long_run_comparison.no_common_compound"
	SkipSectorNoData          = "sector.no_data"
)

// Options controls filtering and thresholds.
type Options struct {
	OutlierThresholdPercent float64
	MinTrendLaps            int
	MinLongRunLaps          int
	Roster                  config.Roster
}

// DefaultOptions returns the default thresholds and roster.
func DefaultOptions() Options {
	return Options{
		OutlierThresholdPercent: 107,
		MinTrendLaps:            4,
		MinLongRunLaps:          6,
		Roster:                  config.DefaultRoster(),
	}
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.PaceConfig) Options {
	return Options{
		OutlierThresholdPercent: cfg.GetOutlierThresholdPercent(),
		MinTrendLaps:            cfg.GetMinLapsForDegradation(),
		MinLongRunLaps:          cfg.GetMinLongRunLaps(),
		Roster:                  cfg.GetRoster(),
	}
}

// Session is one session's laps in the two forms analytics consumes.
type Session struct {
	Name string
	// Fuel holds stint-tagged, fuel-corrected laps.
	Fuel []laps.Lap
	// Corrected holds fully corrected laps.
	Corrected []laps.Lap
}

// Input pairs the session the rookies drove with the one their reference
// drivers drove.
type Input struct {
	Rookie    Session
	Reference Session
}

// Report is every analytics table of one run.
type Report struct {
	CompoundPace      []CompoundPace
	Aggregate         []AggregateDeficit
	Stints            []StintSummary
	Trends            []StintTrend
	TyreScores        []TyreScore
	LongRuns          []LongRun
	LongRunComparison []LongRunComparison
	Sectors           []SectorDeficit
	Summary           Summary
}

// Analyzer computes the analytics tables.
type Analyzer struct {
	opts     Options
	counters *monitoring.Counters
}

// New returns an Analyzer. counters may be nil.
func New(opts Options, counters *monitoring.Counters) *Analyzer {
	d := DefaultOptions()
	if opts.OutlierThresholdPercent <= 0 {
		opts.OutlierThresholdPercent = d.OutlierThresholdPercent
	}
	if opts.MinTrendLaps <= 0 {
		opts.MinTrendLaps = d.MinTrendLaps
	}
	if opts.MinLongRunLaps <= 0 {
		opts.MinLongRunLaps = d.MinLongRunLaps
	}
	return &Analyzer{opts: opts, counters: counters}
}

// Run produces the full report.
func (a *Analyzer) Run(in Input) Report {
	var r Report
	r.CompoundPace = a.CompoundPace(in.Rookie.Fuel, in.Reference.Fuel)
	r.Aggregate = AggregateDeficits(r.CompoundPace)
	r.Stints = a.StintSummaries(in.Rookie.Corrected)
	r.Trends = a.StintTrends(
		Session{Name: in.Rookie.Name, Fuel: in.Rookie.Fuel},
		Session{Name: in.Reference.Name, Fuel: in.Reference.Fuel},
	)
	r.TyreScores = TyreScores(r.Trends)
	r.LongRuns = a.LongRuns(
		Session{Name: in.Rookie.Name, Corrected: in.Rookie.Corrected},
		Session{Name: in.Reference.Name, Corrected: in.Reference.Corrected},
	)
	r.LongRunComparison = a.CompareLongRuns(r.LongRuns, in.Rookie.Name, in.Reference.Name)
	r.Sectors = a.SectorDeficits(in.Rookie.Fuel, in.Reference.Fuel)
	r.Summary = a.Summarize(r)

	if a.counters != nil {
		for _, name := range a.counters.Names() {
			monitoring.Verbosef("analytics: %s = %d", name, a.counters.Get(name))
		}
	}
	return r
}

func (a *Analyzer) skip(name string) {
	a.counters.Inc(name)
}

func (a *Analyzer) representative(ls []laps.Lap) []laps.Lap {
	return laps.Representative(ls, a.opts.OutlierThresholdPercent)
}

// commonCompounds returns the compounds present in both sets, sorted.
func commonCompounds(x, y []laps.Lap) []string {
	in := make(map[string]bool)
	for _, c := range laps.Compounds(y) {
		in[c] = true
	}
	var out []string
	for _, c := range laps.Compounds(x) {
		if in[c] {
			out = append(out, c)
		}
	}
	return out
}

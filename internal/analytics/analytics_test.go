package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
)

var start = time.Date(2025, 12, 5, 9, 30, 0, 0, time.UTC)

// stintLaps builds n tagged laps of one stint. Lap time grows by slope per
// tyre lap and the fuel correction by fuelPerLap per tyre lap.
func stintLaps(driver, compound string, stint, firstNumber, n int, base, slope, fuelPerLap float64) []laps.Lap {
	out := make([]laps.Lap, n)
	for i := 0; i < n; i++ {
		tl := i + 1
		out[i] = laps.Lap{
			Driver:         driver,
			Compound:       compound,
			Number:         firstNumber + i,
			StartTime:      start.Add(time.Duration(firstNumber+i) * 90 * time.Second),
			Time:           base + slope*float64(tl),
			Sector1:        30,
			Sector2:        30,
			Sector3:        base + slope*float64(tl) - 60,
			Accurate:       true,
			Stint:          stint,
			TyreLap:        tl,
			FuelCorrection: fuelPerLap * float64(tl),
		}
	}
	return out
}

func join(groups ...[]laps.Lap) []laps.Lap {
	var out []laps.Lap
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func testRoster() config.Roster {
	return config.Roster{
		Pairings: []config.Pairing{
			{Reference: "PIA", Rookie: "OWA"},
			{Reference: "TSU", Rookie: "LIN"},
			{Reference: "HAM", Rookie: "ALE"},
		},
		Names: map[string]string{"OWA": "Pato O'Ward", "PIA": "Oscar Piastri", "ALE": "Arthur Leclerc"},
		Teams: map[string]string{"OWA": "McLaren", "PIA": "McLaren", "ALE": "Ferrari", "HAM": "Ferrari"},
	}
}

func newAnalyzer(counters *monitoring.Counters) *Analyzer {
	opts := DefaultOptions()
	opts.Roster = testRoster()
	return New(opts, counters)
}

func TestCompoundPace(t *testing.T) {
	rookie := join(
		[]laps.Lap{
			{Driver: "OWA", Compound: "SOFT", Number: 1, StartTime: start, Time: 90.5, FuelCorrection: 0.2, Stint: 1, TyreLap: 1},
			{Driver: "OWA", Compound: "SOFT", Number: 2, StartTime: start.Add(time.Minute), Time: 90.8, FuelCorrection: 0.1, Stint: 1, TyreLap: 2},
			{Driver: "OWA", Compound: "SOFT", Number: 3, StartTime: start.Add(2 * time.Minute), Time: 99.0, Stint: 1, TyreLap: 3},
		},
		stintLaps("ALE", "HARD", 1, 1, 3, 91, 0, 0),
	)
	reference := join(
		[]laps.Lap{
			{Driver: "PIA", Compound: "SOFT", Number: 1, StartTime: start, Time: 90.0, FuelCorrection: -0.1, Stint: 1, TyreLap: 1},
			{Driver: "PIA", Compound: "SOFT", Number: 2, StartTime: start.Add(time.Minute), Time: 90.3, FuelCorrection: -0.2, Stint: 1, TyreLap: 2},
		},
		stintLaps("PIA", "MEDIUM", 2, 3, 3, 90.4, 0, 0),
		stintLaps("HAM", "SOFT", 1, 1, 3, 90.2, 0, 0),
	)

	counters := &monitoring.Counters{}
	rows := newAnalyzer(counters).CompoundPace(rookie, reference)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "PIA", row.Reference)
	assert.Equal(t, "Pato O'Ward", row.RookieName)
	assert.Equal(t, "McLaren", row.Team)
	assert.Equal(t, "SOFT", row.Compound)
	assert.InDelta(t, 0.5, row.RawDeficit, 1e-9)
	assert.InDelta(t, 90.7, row.RookieBestCorrected, 1e-9)
	assert.InDelta(t, 89.9, row.ReferenceBestCorrected, 1e-9)
	assert.InDelta(t, 0.8, row.CorrectedDeficit, 1e-9)
	assert.Equal(t, 2, row.RookieLaps, "the 99s lap is outside 107% of the session best")
	assert.Equal(t, 2, row.ReferenceLaps)

	assert.Equal(t, 1, counters.Get(SkipPaceMissingDriver))
	assert.Equal(t, 1, counters.Get(SkipPaceNoCommonCompound))
}

func TestAggregateDeficits(t *testing.T) {
	rows := []CompoundPace{
		{Reference: "PIA", Rookie: "OWA", RookieName: "Pato O'Ward", Compound: "MEDIUM",
			RawDeficit: 0.5, CorrectedDeficit: 0.8, ReferenceBestRaw: 90.0, ReferenceLaps: 4, RookieLaps: 6},
		{Reference: "HAM", Rookie: "ALE", Compound: "SOFT",
			RawDeficit: 1.0, CorrectedDeficit: 0.9, ReferenceBestRaw: 89.0, ReferenceLaps: 3, RookieLaps: 3},
		{Reference: "PIA", Rookie: "OWA", RookieName: "Pato O'Ward", Compound: "SOFT",
			RawDeficit: 0.3, CorrectedDeficit: 0.2, ReferenceBestRaw: 89.5, ReferenceLaps: 5, RookieLaps: 2},
	}
	got := AggregateDeficits(rows)
	require.Len(t, got, 2)

	owa := got[0]
	assert.Equal(t, "OWA", owa.Rookie)
	assert.Equal(t, 2, owa.Compounds)
	assert.InDelta(t, 0.4, owa.AvgRawDeficit, 1e-9)
	assert.InDelta(t, 0.5, owa.AvgCorrectedDeficit, 1e-9)
	assert.InDelta(t, 0.3, owa.BestRawDeficit, 1e-9)
	assert.InDelta(t, 0.2, owa.BestCorrectedDeficit, 1e-9)
	assert.Equal(t, 9, owa.ReferenceLaps)
	assert.Equal(t, 8, owa.RookieLaps)
	assert.Equal(t, 89.5, owa.ReferenceOverallBest)
	assert.InDelta(t, 0.5/89.5*100, owa.DeficitPercent, 1e-9)

	assert.Equal(t, "ALE", got[1].Rookie)
	assert.Empty(t, AggregateDeficits(nil))
}

func TestSectorDeficits(t *testing.T) {
	rookie := stintLaps("OWA", "SOFT", 1, 1, 3, 91, 0, 0)
	reference := stintLaps("PIA", "SOFT", 1, 1, 3, 90, 0, 0)
	for i := range rookie {
		rookie[i].Sector2 = 0 // not timed
	}

	counters := &monitoring.Counters{}
	rows := newAnalyzer(counters).SectorDeficits(rookie, reference)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Sector)
	assert.Equal(t, 0.0, rows[0].BestDeficit)
	assert.Equal(t, 3, rows[1].Sector)
	assert.InDelta(t, 1.0, rows[1].BestDeficit, 1e-9)
	assert.InDelta(t, 1.0, rows[1].MeanDeficit, 1e-9)
	assert.Equal(t, 1, counters.Get(SkipSectorNoData))
}

func TestStintSummaries(t *testing.T) {
	ls := join(
		stintLaps("OWA", "SOFT", 1, 1, 4, 90, 0.1, 0),
		stintLaps("OWA", "MEDIUM", 2, 7, 3, 91, 0, 0),
		stintLaps("ALB", "HARD", 1, 2, 2, 91.5, 0, 0),
	)
	for i := range ls {
		ls[i].EvolutionCorrection = -0.05
	}

	got := newAnalyzer(nil).StintSummaries(ls)
	require.Len(t, got, 3)

	assert.Equal(t, "ALB", got[0].Driver)
	assert.False(t, got[0].Rookie)
	assert.Equal(t, "Unknown", got[0].Team)

	soft := got[1]
	assert.Equal(t, "OWA", soft.Driver)
	assert.True(t, soft.Rookie)
	assert.Equal(t, 1, soft.Stint)
	assert.Equal(t, 4, soft.LapCount)
	assert.Equal(t, 4, soft.StintLength)
	assert.InDelta(t, 90.1, soft.BestRaw, 1e-9)
	assert.InDelta(t, 90.05, soft.BestCorrected, 1e-9)
	assert.InDelta(t, 90.25, soft.AvgRaw, 1e-9)
	assert.InDelta(t, 90.20, soft.AvgCorrected, 1e-9)
	assert.InDelta(t, 0.1290994, soft.StdRaw, 1e-6)
	assert.Equal(t, 1, soft.FirstLap)
	assert.Equal(t, 4, soft.LastLap)

	assert.Equal(t, "MEDIUM", got[2].Compound)
	assert.Equal(t, 0.0, got[2].StdRaw)
}

func TestStintTrends(t *testing.T) {
	fp1 := join(
		stintLaps("OWA", "SOFT", 1, 1, 5, 90, 0.1, -0.05),
		stintLaps("OWA", "MEDIUM", 2, 8, 3, 90.5, 0.1, 0),
	)
	fp2 := stintLaps("OWA", "SOFT", 1, 1, 4, 89.8, 0.02, 0)

	counters := &monitoring.Counters{}
	got := newAnalyzer(counters).StintTrends(
		Session{Name: "FP1", Fuel: fp1},
		Session{Name: "FP2", Fuel: fp2},
	)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "FP1", first.Session)
	assert.Equal(t, 5, first.LapCount)
	assert.InDelta(t, 0.1, first.RawTrend, 1e-9)
	assert.InDelta(t, 0.05, first.FuelCorrectedTrend, 1e-9)
	assert.InDelta(t, 90.0, first.InitialPace, 1e-9)
	assert.InDelta(t, 1.0, first.RSquared, 1e-9)
	assert.True(t, first.Rookie)

	second := got[1]
	assert.Equal(t, "FP2", second.Session, "stints are never merged across sessions")
	assert.Equal(t, 1, second.Stint)
	assert.InDelta(t, 0.02, second.RawTrend, 1e-9)

	assert.Equal(t, 1, counters.Get(SkipTrendShortStint))
}

func TestStintTrendFlatStintHasZeroRSquared(t *testing.T) {
	got := newAnalyzer(nil).StintTrends(Session{Name: "FP1", Fuel: stintLaps("OWA", "SOFT", 1, 1, 4, 90, 0, 0)})
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].RSquared)
}

func TestTyreScores(t *testing.T) {
	trends := []StintTrend{
		{Driver: "A", Compound: "SOFT", FuelCorrectedTrend: 0.3},
		{Driver: "B", Compound: "SOFT", FuelCorrectedTrend: 0.1},
		{Driver: "C", Compound: "MEDIUM", FuelCorrectedTrend: 0.05},
		{Driver: "D", Compound: "SOFT", FuelCorrectedTrend: 0.4},
		{Driver: "E", Compound: "SOFT", FuelCorrectedTrend: 0.2},
	}
	got := TyreScores(trends)
	require.Len(t, got, 5)

	// MEDIUM sorts first and its single trend ranks at 100
	assert.Equal(t, "C", got[0].Driver)
	assert.Equal(t, 0.0, got[0].Score)
	assert.Equal(t, 0.0, got[0].TrendVsMedian)

	scores := make(map[string]float64)
	for _, s := range got[1:] {
		assert.Equal(t, "SOFT", s.Compound)
		assert.InDelta(t, 0.25, s.MedianTrend, 1e-12)
		scores[s.Driver] = s.Score
	}
	assert.Equal(t, map[string]float64{"A": 25, "B": 75, "D": 0, "E": 50}, scores)
	assert.Empty(t, TyreScores(nil))
}

func TestTyreScoresTies(t *testing.T) {
	got := TyreScores([]StintTrend{
		{Driver: "A", Compound: "HARD", FuelCorrectedTrend: 0.02},
		{Driver: "B", Compound: "HARD", FuelCorrectedTrend: 0.02},
	})
	require.Len(t, got, 2)
	// tied entries rank at (0 + 2 + 1) * 50 / 2 = 75
	assert.Equal(t, 25.0, got[0].Score)
	assert.Equal(t, got[0].Score, got[1].Score)
}

func TestLongRunsAndComparison(t *testing.T) {
	fp1 := join(
		stintLaps("OWA", "MEDIUM", 1, 1, 6, 91, 0, 0),
		stintLaps("OWA", "SOFT", 2, 10, 2, 90, 0, 0),
		stintLaps("ALE", "HARD", 1, 1, 6, 92, 0, 0),
	)
	fp2 := join(
		stintLaps("PIA", "MEDIUM", 1, 1, 7, 90.4, 0, 0),
		stintLaps("PIA", "MEDIUM", 2, 12, 6, 90.6, 0, 0),
		stintLaps("HAM", "SOFT", 1, 1, 6, 90, 0, 0),
	)
	for i := range fp1 {
		fp1[i].TyreCorrection = 0.1
	}

	counters := &monitoring.Counters{}
	a := newAnalyzer(counters)
	runs := a.LongRuns(
		Session{Name: "FP1", Corrected: fp1},
		Session{Name: "FP2", Corrected: fp2},
	)
	require.Len(t, runs, 5)
	assert.Equal(t, 1, counters.Get(SkipLongRunShortStint))

	owa := runs[1]
	assert.Equal(t, "OWA", owa.Driver)
	assert.Equal(t, "FP1", owa.Session)
	assert.Equal(t, 6, owa.Length)
	assert.InDelta(t, 91.0, owa.AvgRaw, 1e-9)
	assert.InDelta(t, 91.1, owa.AvgCorrected, 1e-9)
	assert.Equal(t, 0.0, owa.Consistency)

	cmp := a.CompareLongRuns(runs, "FP1", "FP2")
	require.Len(t, cmp, 1)
	assert.Equal(t, "MEDIUM", cmp[0].Compound)
	assert.InDelta(t, 90.5, cmp[0].ReferencePace, 1e-9)
	assert.InDelta(t, 91.1, cmp[0].RookiePace, 1e-9)
	assert.InDelta(t, 0.6, cmp[0].Deficit, 1e-9)

	assert.Equal(t, 1, counters.Get(SkipLongRunMissingPairing), "TSU/LIN have no runs")
	assert.Equal(t, 1, counters.Get(SkipLongRunNoCommon), "ALE ran HARD, HAM ran SOFT")
}

func TestSummarize(t *testing.T) {
	r := Report{
		CompoundPace: []CompoundPace{{Compound: "SOFT"}, {Compound: "MEDIUM"}, {Compound: "SOFT"}},
		Aggregate: []AggregateDeficit{
			{RookieName: "Pato O'Ward", AvgRawDeficit: 0.6, AvgCorrectedDeficit: 0.4},
			{RookieName: "Arthur Leclerc", AvgRawDeficit: 0.2, AvgCorrectedDeficit: 0.1},
		},
		Trends: []StintTrend{
			{DriverName: "Pato O'Ward", Rookie: true, FuelCorrectedTrend: 0.08},
			{DriverName: "Arthur Leclerc", Rookie: true, FuelCorrectedTrend: 0.04},
			{DriverName: "Oscar Piastri", FuelCorrectedTrend: 0.02},
		},
	}
	s := newAnalyzer(nil).Summarize(r)

	assert.Equal(t, 3, s.RookiesTotal)
	assert.Equal(t, 2, s.RookiesWithData)
	assert.Equal(t, []string{"MEDIUM", "SOFT"}, s.Compounds)
	assert.True(t, s.HasPace)
	assert.InDelta(t, 0.4, s.AvgRawDeficit, 1e-9)
	assert.InDelta(t, 0.25, s.AvgCorrectedDeficit, 1e-9)
	assert.Equal(t, "Arthur Leclerc", s.ClosestRookie)
	assert.Equal(t, 0.1, s.ClosestRookieDeficit)
	assert.InDelta(t, 0.06, s.AvgRookieTrend, 1e-9)
	assert.InDelta(t, 0.02, s.AvgReferenceTrend, 1e-9)
	assert.Equal(t, "Arthur Leclerc", s.BestTyreManager)
}

func TestSummarizeEmpty(t *testing.T) {
	s := newAnalyzer(nil).Summarize(Report{})
	assert.False(t, s.HasPace)
	assert.False(t, s.HasRookieTrend)
	assert.False(t, s.HasReferenceTrend)
	assert.Empty(t, s.ClosestRookie)
	assert.Equal(t, 3, s.RookiesTotal)
}

func TestRun(t *testing.T) {
	fp1 := join(
		stintLaps("OWA", "SOFT", 1, 1, 6, 90.6, 0.05, -0.05),
		stintLaps("ALE", "SOFT", 1, 1, 6, 90.4, 0.04, -0.05),
	)
	fp2 := join(
		stintLaps("PIA", "SOFT", 1, 1, 6, 90.0, 0.06, -0.05),
		stintLaps("HAM", "SOFT", 1, 1, 6, 90.1, 0.03, -0.05),
	)

	counters := &monitoring.Counters{}
	r := newAnalyzer(counters).Run(Input{
		Rookie:    Session{Name: "FP1", Fuel: fp1, Corrected: fp1},
		Reference: Session{Name: "FP2", Fuel: fp2, Corrected: fp2},
	})

	assert.Len(t, r.CompoundPace, 2)
	assert.Len(t, r.Aggregate, 2)
	assert.Len(t, r.Stints, 2)
	assert.Len(t, r.Trends, 4)
	assert.Len(t, r.TyreScores, 4)
	assert.Len(t, r.LongRuns, 4)
	assert.Len(t, r.LongRunComparison, 2)
	assert.Len(t, r.Sectors, 6)
	assert.Equal(t, 2, r.Summary.RookiesWithData)
	assert.Equal(t, "Arthur Leclerc", r.Summary.ClosestRookie)
	assert.Equal(t, 1, counters.Get(SkipPaceMissingDriver))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.EmptyPaceConfig()
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 107.0, opts.OutlierThresholdPercent)
	assert.Equal(t, 4, opts.MinTrendLaps)
	assert.Equal(t, 6, opts.MinLongRunLaps)
	assert.Len(t, opts.Roster.Pairings, 9)
}

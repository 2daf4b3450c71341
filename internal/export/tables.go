package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/lap-pace/internal/analytics"
	"github.com/banshee-data/lap-pace/internal/degradation"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/pipeline"
)

// Table is one CSV file: a header and its rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
func itoa(v int) string    { return strconv.Itoa(v) }
func btoa(v bool) string   { return strconv.FormatBool(v) }

// Tables builds every CSV table of res. Empty tables are included; callers
// decide whether to write them.
func Tables(res *pipeline.Result) []Table {
	r := res.Report
	return []Table{
		correctedLapsTable(res.Rookie, res.Reference),
		evolutionTable(res.Rookie),
		evolutionTable(res.Reference),
		degradationTable(res.Rookie),
		degradationTable(res.Reference),
		compoundPaceTable(r.CompoundPace),
		aggregateTable(r.Aggregate),
		stintSummaryTable(r.Stints),
		trendsTable(r.Trends),
		tyreScoresTable(r.TyreScores),
		longRunsTable(r.LongRuns),
		longRunComparisonTable(r.LongRunComparison),
		sectorsTable(r.Sectors),
		summaryTable(res),
	}
}

func writeTables(w *runWriter, res *pipeline.Result) error {
	for _, t := range Tables(res) {
		if len(t.Rows) == 0 {
			monitoring.Verbosef("export: skipping empty table %s", t.Name)
			continue
		}
		if err := w.create(t.Name+".csv", t.write); err != nil {
			return err
		}
	}
	return nil
}

func (t Table) write(out io.Writer) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func sessionFile(prefix, session string) string {
	return prefix + "_" + strings.ToLower(session)
}

func correctedLapsTable(sessions ...pipeline.SessionResult) Table {
	t := Table{
		Name: "corrected_laps",
		Header: []string{
			"session", "driver", "compound", "lap_number", "stint", "tyre_lap", "lap_time",
			"fuel_correction", "track_evolution_correction", "tyre_age_correction",
			"total_correction", "fully_corrected_time",
		},
	}
	for _, s := range sessions {
		for _, l := range s.Corrected {
			t.Rows = append(t.Rows, []string{
				s.Name, l.Driver, l.Compound, itoa(l.Number), itoa(l.Stint), itoa(l.TyreLap), f64(l.Time),
				f64(l.FuelCorrection), f64(l.EvolutionCorrection), f64(l.TyreCorrection),
				f64(l.TotalCorrection()), f64(l.FullyCorrectedTime()),
			})
		}
	}
	return t
}

func evolutionTable(s pipeline.SessionResult) Table {
	t := Table{
		Name:   sessionFile("track_evolution", s.Name),
		Header: []string{"window_start", "window_mid", "best_lap", "lap_count", "fitted_time", "evolution_rate", "r_squared"},
	}
	m := s.Evolution
	for _, win := range m.Windows {
		t.Rows = append(t.Rows, []string{
			f64(win.Start), f64(win.Mid), f64(win.Best), itoa(win.LapCount), f64(win.Fitted),
			f64(m.Rate), f64(m.RSquared),
		})
	}
	return t
}

func degradationTable(s pipeline.SessionResult) Table {
	t := Table{
		Name:   sessionFile("degradation", s.Name),
		Header: []string{"compound", "median", "mean", "std", "n_stints", "prior"},
	}
	for _, e := range s.Degradation.List() {
		t.Rows = append(t.Rows, degradationRow(e))
	}
	return t
}

func degradationRow(e degradation.Estimate) []string {
	return []string{e.Compound, f64(e.Median), f64(e.Mean), f64(e.Std), itoa(e.Stints), btoa(e.Prior)}
}

func compoundPaceTable(rows []analytics.CompoundPace) Table {
	t := Table{
		Name: "compound_pace",
		Header: []string{
			"reference", "reference_name", "rookie", "rookie_name", "team", "compound",
			"reference_best_raw", "rookie_best_raw", "raw_deficit",
			"reference_best_corrected", "rookie_best_corrected", "corrected_deficit",
			"reference_laps", "rookie_laps",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Reference, r.ReferenceName, r.Rookie, r.RookieName, r.Team, r.Compound,
			f64(r.ReferenceBestRaw), f64(r.RookieBestRaw), f64(r.RawDeficit),
			f64(r.ReferenceBestCorrected), f64(r.RookieBestCorrected), f64(r.CorrectedDeficit),
			itoa(r.ReferenceLaps), itoa(r.RookieLaps),
		})
	}
	return t
}

func aggregateTable(rows []analytics.AggregateDeficit) Table {
	t := Table{
		Name: "aggregate_deficit",
		Header: []string{
			"reference", "reference_name", "rookie", "rookie_name", "team",
			"avg_raw_deficit", "avg_corrected_deficit", "best_raw_deficit", "best_corrected_deficit",
			"compounds_compared", "reference_laps", "rookie_laps", "reference_overall_best", "deficit_percent",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Reference, r.ReferenceName, r.Rookie, r.RookieName, r.Team,
			f64(r.AvgRawDeficit), f64(r.AvgCorrectedDeficit), f64(r.BestRawDeficit), f64(r.BestCorrectedDeficit),
			itoa(r.Compounds), itoa(r.ReferenceLaps), itoa(r.RookieLaps), f64(r.ReferenceOverallBest), f64(r.DeficitPercent),
		})
	}
	return t
}

func stintSummaryTable(rows []analytics.StintSummary) Table {
	t := Table{
		Name: "stint_summary",
		Header: []string{
			"driver", "driver_name", "team", "is_rookie", "stint", "compound",
			"lap_count", "stint_length", "best_raw", "best_corrected", "avg_raw", "avg_corrected",
			"std_raw", "first_lap", "last_lap",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Driver, r.DriverName, r.Team, btoa(r.Rookie), itoa(r.Stint), r.Compound,
			itoa(r.LapCount), itoa(r.StintLength), f64(r.BestRaw), f64(r.BestCorrected), f64(r.AvgRaw), f64(r.AvgCorrected),
			f64(r.StdRaw), itoa(r.FirstLap), itoa(r.LastLap),
		})
	}
	return t
}

func trendsTable(rows []analytics.StintTrend) Table {
	t := Table{
		Name: "stint_trends",
		Header: []string{
			"session", "driver", "driver_name", "team", "is_rookie", "stint", "compound", "lap_count",
			"raw_trend", "fuel_corrected_trend", "initial_pace", "r_squared",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Session, r.Driver, r.DriverName, r.Team, btoa(r.Rookie), itoa(r.Stint), r.Compound, itoa(r.LapCount),
			f64(r.RawTrend), f64(r.FuelCorrectedTrend), f64(r.InitialPace), f64(r.RSquared),
		})
	}
	return t
}

func tyreScoresTable(rows []analytics.TyreScore) Table {
	t := Table{
		Name: "tyre_scores",
		Header: []string{
			"session", "driver", "driver_name", "team", "is_rookie", "stint", "compound",
			"fuel_corrected_trend", "median_trend", "trend_vs_median", "score",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Session, r.Driver, r.DriverName, r.Team, btoa(r.Rookie), itoa(r.Stint), r.Compound,
			f64(r.FuelCorrectedTrend), f64(r.MedianTrend), f64(r.TrendVsMedian), f64(r.Score),
		})
	}
	return t
}

func longRunsTable(rows []analytics.LongRun) Table {
	t := Table{
		Name: "long_runs",
		Header: []string{
			"session", "driver", "driver_name", "team", "is_rookie", "stint", "compound",
			"length", "avg_raw", "avg_corrected", "best_raw", "consistency",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Session, r.Driver, r.DriverName, r.Team, btoa(r.Rookie), itoa(r.Stint), r.Compound,
			itoa(r.Length), f64(r.AvgRaw), f64(r.AvgCorrected), f64(r.BestRaw), f64(r.Consistency),
		})
	}
	return t
}

func longRunComparisonTable(rows []analytics.LongRunComparison) Table {
	t := Table{
		Name: "long_run_comparison",
		Header: []string{
			"reference", "reference_name", "rookie", "rookie_name", "team", "compound",
			"reference_pace", "rookie_pace", "deficit", "reference_consistency", "rookie_consistency",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Reference, r.ReferenceName, r.Rookie, r.RookieName, r.Team, r.Compound,
			f64(r.ReferencePace), f64(r.RookiePace), f64(r.Deficit), f64(r.ReferenceConsistency), f64(r.RookieConsistency),
		})
	}
	return t
}

func sectorsTable(rows []analytics.SectorDeficit) Table {
	t := Table{
		Name: "sector_deficits",
		Header: []string{
			"reference", "rookie", "rookie_name", "team", "compound", "sector",
			"reference_best", "rookie_best", "best_deficit", "reference_mean", "rookie_mean", "mean_deficit",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Reference, r.Rookie, r.RookieName, r.Team, r.Compound, itoa(r.Sector),
			f64(r.ReferenceBest), f64(r.RookieBest), f64(r.BestDeficit), f64(r.ReferenceMean), f64(r.RookieMean), f64(r.MeanDeficit),
		})
	}
	return t
}

// summaryTable flattens the run summary into metric/value rows. Figures
// that could not be computed are left out.
func summaryTable(res *pipeline.Result) Table {
	s := res.Report.Summary
	t := Table{Name: "summary", Header: []string{"metric", "value"}}
	add := func(k, v string) { t.Rows = append(t.Rows, []string{k, v}) }

	add("run_id", res.RunID.String())
	add("event", res.Event)
	add("rookie_session", res.Rookie.Name)
	add("reference_session", res.Reference.Name)
	add("rookie_evolution_rate", f64(res.Rookie.Evolution.Rate))
	add("reference_evolution_rate", f64(res.Reference.Evolution.Rate))
	add("rookies_total", itoa(s.RookiesTotal))
	add("rookies_with_data", itoa(s.RookiesWithData))
	add("compounds_analysed", strings.Join(s.Compounds, " "))
	if s.HasPace {
		add("avg_raw_deficit", f64(s.AvgRawDeficit))
		add("avg_corrected_deficit", f64(s.AvgCorrectedDeficit))
		add("closest_rookie", s.ClosestRookie)
		add("closest_rookie_deficit", f64(s.ClosestRookieDeficit))
	}
	if s.HasRookieTrend {
		add("avg_rookie_trend", f64(s.AvgRookieTrend))
		add("best_tyre_manager", s.BestTyreManager)
	}
	if s.HasReferenceTrend {
		add("avg_reference_trend", f64(s.AvgReferenceTrend))
	}
	for _, name := range sortedKeys(res.Diagnostics.Counters) {
		add("skipped."+name, itoa(res.Diagnostics.Counters[name]))
	}
	return t
}

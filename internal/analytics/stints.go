package analytics

import (
	"sort"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/regression"
)

// StintSummary describes one stint of the rookie session.
type StintSummary struct {
	Driver     string
	DriverName string
	Team       string
	Rookie     bool
	Stint      int
	Compound   string

	LapCount      int
	StintLength   int // highest tyre lap seen
	BestRaw       float64
	BestCorrected float64
	AvgRaw        float64
	AvgCorrected  float64
	StdRaw        float64 // sample standard deviation
	FirstLap      int
	LastLap       int
}

// StintSummaries summarises every stint of fully corrected laps after the
// representative filter.
func (a *Analyzer) StintSummaries(corrected []laps.Lap) []StintSummary {
	roster := a.opts.Roster
	keys, groups := laps.ByStint(a.representative(corrected))

	out := make([]StintSummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		raw, full := rawTimes(g), fullyCorrectedTimes(g)
		s := StintSummary{
			Driver:        k.Driver,
			DriverName:    roster.Name(k.Driver),
			Team:          roster.Team(k.Driver),
			Rookie:        roster.IsRookie(k.Driver),
			Stint:         k.Stint,
			Compound:      g[0].Compound,
			LapCount:      len(g),
			BestRaw:       regression.Min(raw),
			BestCorrected: regression.Min(full),
			AvgRaw:        regression.Mean(raw),
			AvgCorrected:  regression.Mean(full),
			StdRaw:        regression.StdDev(raw),
			FirstLap:      g[0].Number,
			LastLap:       g[0].Number,
		}
		for _, l := range g {
			if l.TyreLap > s.StintLength {
				s.StintLength = l.TyreLap
			}
			if l.Number < s.FirstLap {
				s.FirstLap = l.Number
			}
			if l.Number > s.LastLap {
				s.LastLap = l.Number
			}
		}
		out = append(out, s)
	}
	return out
}

// StintTrend is the pace trend of one stint in one session.
type StintTrend struct {
	Session    string
	Driver     string
	DriverName string
	Team       string
	Rookie     bool
	Stint      int
	Compound   string
	LapCount   int

	RawTrend           float64 // s/lap
	FuelCorrectedTrend float64 // s/lap
	InitialPace        float64 // raw intercept at tyre lap 0
	RSquared           float64 // of the raw fit
}

// StintTrends fits lap time against tyre lap for every stint with at least
// MinTrendLaps representative laps. Each session is filtered on its own and
// stints never merge across sessions.
func (a *Analyzer) StintTrends(sessions ...Session) []StintTrend {
	roster := a.opts.Roster
	var out []StintTrend
	for _, s := range sessions {
		keys, groups := laps.ByStint(a.representative(s.Fuel))
		for _, k := range keys {
			g := groups[k]
			if len(g) < a.opts.MinTrendLaps {
				a.skip(SkipTrendShortStint)
				continue
			}
			x := tyreLaps(g)
			rawLine, ok := regression.Fit(x, rawTimes(g))
			if !ok {
				a.skip(SkipTrendNoFit)
				continue
			}
			fuelLine, _ := regression.Fit(x, fuelCorrectedTimes(g))
			out = append(out, StintTrend{
				Session:            s.Name,
				Driver:             k.Driver,
				DriverName:         roster.Name(k.Driver),
				Team:               roster.Team(k.Driver),
				Rookie:             roster.IsRookie(k.Driver),
				Stint:              k.Stint,
				Compound:           g[0].Compound,
				LapCount:           len(g),
				RawTrend:           rawLine.Slope,
				FuelCorrectedTrend: fuelLine.Slope,
				InitialPace:        rawLine.Intercept,
				RSquared:           rawLine.RSquared,
			})
		}
	}
	return out
}

// TyreScore ranks one stint trend against every other stint on the same
// compound. A score of 100 means the flattest trend on that compound.
type TyreScore struct {
	Session            string
	Driver             string
	DriverName         string
	Team               string
	Rookie             bool
	Stint              int
	Compound           string
	FuelCorrectedTrend float64
	MedianTrend        float64
	TrendVsMedian      float64
	Score              float64
}

// TyreScores scores every trend within its compound as 100 minus the
// percentile rank of its fuel-corrected trend. Compounds are emitted in
// sorted order, rows within a compound in trend order.
func TyreScores(trends []StintTrend) []TyreScore {
	byCompound := make(map[string][]StintTrend)
	for _, t := range trends {
		byCompound[t.Compound] = append(byCompound[t.Compound], t)
	}
	compounds := make([]string, 0, len(byCompound))
	for c := range byCompound {
		compounds = append(compounds, c)
	}
	sort.Strings(compounds)

	var out []TyreScore
	for _, c := range compounds {
		group := byCompound[c]
		values := make([]float64, len(group))
		for i, t := range group {
			values[i] = t.FuelCorrectedTrend
		}
		median := regression.Median(values)
		for _, t := range group {
			out = append(out, TyreScore{
				Session:            t.Session,
				Driver:             t.Driver,
				DriverName:         t.DriverName,
				Team:               t.Team,
				Rookie:             t.Rookie,
				Stint:              t.Stint,
				Compound:           c,
				FuelCorrectedTrend: t.FuelCorrectedTrend,
				MedianTrend:        median,
				TrendVsMedian:      t.FuelCorrectedTrend - median,
				Score:              100 - regression.PercentileRank(values, t.FuelCorrectedTrend),
			})
		}
	}
	return out
}

func rawTimes(ls []laps.Lap) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = l.Time
	}
	return out
}

func fuelCorrectedTimes(ls []laps.Lap) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = l.FuelCorrectedTime()
	}
	return out
}

func fullyCorrectedTimes(ls []laps.Lap) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = l.FullyCorrectedTime()
	}
	return out
}

func tyreLaps(ls []laps.Lap) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = float64(l.TyreLap)
	}
	return out
}

package analytics

import (
	"sort"

	"github.com/banshee-data/lap-pace/internal/regression"
)

// Summary is the headline view of a run. The Has* flags mark which
// optional figures could be computed.
type Summary struct {
	RookiesTotal    int
	RookiesWithData int
	Compounds       []string

	HasPace              bool
	AvgRawDeficit        float64
	AvgCorrectedDeficit  float64
	ClosestRookie        string
	ClosestRookieDeficit float64

	HasRookieTrend    bool
	AvgRookieTrend    float64
	HasReferenceTrend bool
	AvgReferenceTrend float64
	BestTyreManager   string // rookie with the flattest fuel-corrected stint trend
}

// Summarize derives the headline figures from the tables of r.
func (a *Analyzer) Summarize(r Report) Summary {
	s := Summary{RookiesTotal: len(a.opts.Roster.Pairings)}

	seen := make(map[string]bool)
	for _, row := range r.CompoundPace {
		if !seen[row.Compound] {
			seen[row.Compound] = true
			s.Compounds = append(s.Compounds, row.Compound)
		}
	}
	sort.Strings(s.Compounds)

	if len(r.Aggregate) > 0 {
		s.HasPace = true
		s.RookiesWithData = len(r.Aggregate)
		raw := make([]float64, len(r.Aggregate))
		corrected := make([]float64, len(r.Aggregate))
		closest := 0
		for i, agg := range r.Aggregate {
			raw[i] = agg.AvgRawDeficit
			corrected[i] = agg.AvgCorrectedDeficit
			if agg.AvgCorrectedDeficit < r.Aggregate[closest].AvgCorrectedDeficit {
				closest = i
			}
		}
		s.AvgRawDeficit = regression.Mean(raw)
		s.AvgCorrectedDeficit = regression.Mean(corrected)
		s.ClosestRookie = r.Aggregate[closest].RookieName
		s.ClosestRookieDeficit = r.Aggregate[closest].AvgCorrectedDeficit
	}

	var rookie, reference []float64
	best := -1
	for i, t := range r.Trends {
		if !t.Rookie {
			reference = append(reference, t.FuelCorrectedTrend)
			continue
		}
		rookie = append(rookie, t.FuelCorrectedTrend)
		if best < 0 || t.FuelCorrectedTrend < r.Trends[best].FuelCorrectedTrend {
			best = i
		}
	}
	if len(rookie) > 0 {
		s.HasRookieTrend = true
		s.AvgRookieTrend = regression.Mean(rookie)
		s.BestTyreManager = r.Trends[best].DriverName
	}
	if len(reference) > 0 {
		s.HasReferenceTrend = true
		s.AvgReferenceTrend = regression.Mean(reference)
	}
	return s
}

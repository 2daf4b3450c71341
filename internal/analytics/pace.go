package analytics

import (
	"math"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/regression"
)

// CompoundPace compares a rookie with their reference driver on one
// compound. Deficits are rookie minus reference; positive means slower.
type CompoundPace struct {
	Reference     string
	ReferenceName string
	Rookie        string
	RookieName    string
	Team          string
	Compound      string

	ReferenceBestRaw       float64
	RookieBestRaw          float64
	RawDeficit             float64
	ReferenceBestCorrected float64
	RookieBestCorrected    float64
	CorrectedDeficit       float64
	ReferenceLaps          int
	RookieLaps             int
}

// CompoundPace compares every pairing on each compound both drivers ran.
// rookie and reference are the fuel-corrected laps of the two sessions;
// each session is filtered for representative laps on its own.
func (a *Analyzer) CompoundPace(rookie, reference []laps.Lap) []CompoundPace {
	rookie = a.representative(rookie)
	reference = a.representative(reference)
	roster := a.opts.Roster

	var out []CompoundPace
	for _, p := range roster.Pairings {
		rl := laps.ForDriver(rookie, p.Rookie)
		fl := laps.ForDriver(reference, p.Reference)
		if len(rl) == 0 || len(fl) == 0 {
			a.skip(SkipPaceMissingDriver)
			monitoring.Verbosef("analytics: no pace comparison for %s/%s, missing laps", p.Reference, p.Rookie)
			continue
		}
		compounds := commonCompounds(rl, fl)
		if len(compounds) == 0 {
			a.skip(SkipPaceNoCommonCompound)
			continue
		}
		for _, c := range compounds {
			rc := laps.ForCompound(rl, c)
			fc := laps.ForCompound(fl, c)
			row := CompoundPace{
				Reference:              p.Reference,
				ReferenceName:          roster.Name(p.Reference),
				Rookie:                 p.Rookie,
				RookieName:             roster.Name(p.Rookie),
				Team:                   roster.Team(p.Rookie),
				Compound:               c,
				ReferenceBestRaw:       laps.BestTime(fc),
				RookieBestRaw:          laps.BestTime(rc),
				ReferenceBestCorrected: bestFuelCorrected(fc),
				RookieBestCorrected:    bestFuelCorrected(rc),
				ReferenceLaps:          len(fc),
				RookieLaps:             len(rc),
			}
			row.RawDeficit = row.RookieBestRaw - row.ReferenceBestRaw
			row.CorrectedDeficit = row.RookieBestCorrected - row.ReferenceBestCorrected
			out = append(out, row)
		}
	}
	return out
}

func bestFuelCorrected(ls []laps.Lap) float64 {
	vals := make([]float64, len(ls))
	for i, l := range ls {
		vals[i] = l.FuelCorrectedTime()
	}
	return regression.Min(vals)
}

// AggregateDeficit summarises one pairing across every compared compound.
type AggregateDeficit struct {
	Reference     string
	ReferenceName string
	Rookie        string
	RookieName    string
	Team          string

	AvgRawDeficit        float64
	AvgCorrectedDeficit  float64
	BestRawDeficit       float64
	BestCorrectedDeficit float64
	Compounds            int
	ReferenceLaps        int
	RookieLaps           int
	ReferenceOverallBest float64 // best raw reference lap over the compared compounds
	DeficitPercent       float64 // AvgCorrectedDeficit as a percentage of ReferenceOverallBest
}

// AggregateDeficits groups compound rows by pairing, keeping the order in
// which pairings first appear.
func AggregateDeficits(rows []CompoundPace) []AggregateDeficit {
	type key struct{ reference, rookie string }
	index := make(map[key]int)
	var out []AggregateDeficit
	var raw, corrected [][]float64

	for _, r := range rows {
		k := key{r.Reference, r.Rookie}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, AggregateDeficit{
				Reference:            r.Reference,
				ReferenceName:        r.ReferenceName,
				Rookie:               r.Rookie,
				RookieName:           r.RookieName,
				Team:                 r.Team,
				ReferenceOverallBest: math.Inf(1),
			})
			raw = append(raw, nil)
			corrected = append(corrected, nil)
		}
		agg := &out[i]
		raw[i] = append(raw[i], r.RawDeficit)
		corrected[i] = append(corrected[i], r.CorrectedDeficit)
		agg.Compounds++
		agg.ReferenceLaps += r.ReferenceLaps
		agg.RookieLaps += r.RookieLaps
		agg.ReferenceOverallBest = math.Min(agg.ReferenceOverallBest, r.ReferenceBestRaw)
	}

	for i := range out {
		agg := &out[i]
		agg.AvgRawDeficit = regression.Mean(raw[i])
		agg.AvgCorrectedDeficit = regression.Mean(corrected[i])
		agg.BestRawDeficit = regression.Min(raw[i])
		agg.BestCorrectedDeficit = regression.Min(corrected[i])
		if agg.ReferenceOverallBest > 0 {
			agg.DeficitPercent = agg.AvgCorrectedDeficit / agg.ReferenceOverallBest * 100
		}
	}
	return out
}

// SectorDeficit compares one sector of one pairing on one compound.
type SectorDeficit struct {
	Reference  string
	Rookie     string
	RookieName string
	Team       string
	Compound   string
	Sector     int

	ReferenceBest float64
	RookieBest    float64
	BestDeficit   float64
	ReferenceMean float64
	RookieMean    float64
	MeanDeficit   float64
}

// SectorDeficits compares sector times for every pairing and common
// compound, using the same representative laps as CompoundPace. Sector
// times of zero are treated as missing.
func (a *Analyzer) SectorDeficits(rookie, reference []laps.Lap) []SectorDeficit {
	rookie = a.representative(rookie)
	reference = a.representative(reference)
	roster := a.opts.Roster

	var out []SectorDeficit
	for _, p := range roster.Pairings {
		rl := laps.ForDriver(rookie, p.Rookie)
		fl := laps.ForDriver(reference, p.Reference)
		if len(rl) == 0 || len(fl) == 0 {
			continue
		}
		for _, c := range commonCompounds(rl, fl) {
			rc := laps.ForCompound(rl, c)
			fc := laps.ForCompound(fl, c)
			for sector := 1; sector <= 3; sector++ {
				rs := sectorTimes(rc, sector)
				fs := sectorTimes(fc, sector)
				if len(rs) == 0 || len(fs) == 0 {
					a.skip(SkipSectorNoData)
					continue
				}
				row := SectorDeficit{
					Reference:     p.Reference,
					Rookie:        p.Rookie,
					RookieName:    roster.Name(p.Rookie),
					Team:          roster.Team(p.Rookie),
					Compound:      c,
					Sector:        sector,
					ReferenceBest: regression.Min(fs),
					RookieBest:    regression.Min(rs),
					ReferenceMean: regression.Mean(fs),
					RookieMean:    regression.Mean(rs),
				}
				row.BestDeficit = row.RookieBest - row.ReferenceBest
				row.MeanDeficit = row.RookieMean - row.ReferenceMean
				out = append(out, row)
			}
		}
	}
	return out
}

func sectorTimes(ls []laps.Lap, sector int) []float64 {
	var out []float64
	for _, l := range ls {
		var v float64
		switch sector {
		case 1:
			v = l.Sector1
		case 2:
			v = l.Sector2
		case 3:
			v = l.Sector3
		}
		if v > 0 && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

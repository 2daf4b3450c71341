package analytics

import (
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/regression"
)

// LongRun is one stint long enough to judge race pace.
type LongRun struct {
	Session      string
	Driver       string
	DriverName   string
	Team         string
	Rookie       bool
	Stint        int
	Compound     string
	Length       int
	AvgRaw       float64
	AvgCorrected float64
	BestRaw      float64
	Consistency  float64 // sample standard deviation of raw times
}

// LongRuns lists every stint with at least MinLongRunLaps representative,
// fully corrected laps. Each session is filtered on its own.
func (a *Analyzer) LongRuns(sessions ...Session) []LongRun {
	roster := a.opts.Roster
	var out []LongRun
	for _, s := range sessions {
		keys, groups := laps.ByStint(a.representative(s.Corrected))
		for _, k := range keys {
			g := groups[k]
			if len(g) < a.opts.MinLongRunLaps {
				a.skip(SkipLongRunShortStint)
				continue
			}
			raw := rawTimes(g)
			out = append(out, LongRun{
				Session:      s.Name,
				Driver:       k.Driver,
				DriverName:   roster.Name(k.Driver),
				Team:         roster.Team(k.Driver),
				Rookie:       roster.IsRookie(k.Driver),
				Stint:        k.Stint,
				Compound:     g[0].Compound,
				Length:       len(g),
				AvgRaw:       regression.Mean(raw),
				AvgCorrected: regression.Mean(fullyCorrectedTimes(g)),
				BestRaw:      regression.Min(raw),
				Consistency:  regression.StdDev(raw),
			})
		}
	}
	return out
}

// LongRunComparison compares the long-run pace of one pairing on one
// compound.
type LongRunComparison struct {
	Reference            string
	ReferenceName        string
	Rookie               string
	RookieName           string
	Team                 string
	Compound             string
	ReferencePace        float64 // mean of AvgCorrected over the reference's runs
	RookiePace           float64
	Deficit              float64 // RookiePace - ReferencePace
	ReferenceConsistency float64
	RookieConsistency    float64
}

// CompareLongRuns compares rookie long runs from rookieSession with
// reference long runs from referenceSession, per common compound.
func (a *Analyzer) CompareLongRuns(runs []LongRun, rookieSession, referenceSession string) []LongRunComparison {
	roster := a.opts.Roster
	var out []LongRunComparison
	for _, p := range roster.Pairings {
		rr := filterRuns(runs, rookieSession, p.Rookie)
		fr := filterRuns(runs, referenceSession, p.Reference)
		if len(rr) == 0 || len(fr) == 0 {
			a.skip(SkipLongRunMissingPairing)
			continue
		}

		compounds := runCompounds(rr, fr)
		if len(compounds) == 0 {
			a.skip(SkipLongRunNoCommon)
			continue
		}
		for _, c := range compounds {
			rookiePace, rookieCons := runMeans(rr, c)
			refPace, refCons := runMeans(fr, c)
			out = append(out, LongRunComparison{
				Reference:            p.Reference,
				ReferenceName:        roster.Name(p.Reference),
				Rookie:               p.Rookie,
				RookieName:           roster.Name(p.Rookie),
				Team:                 roster.Team(p.Rookie),
				Compound:             c,
				ReferencePace:        refPace,
				RookiePace:           rookiePace,
				Deficit:              rookiePace - refPace,
				ReferenceConsistency: refCons,
				RookieConsistency:    rookieCons,
			})
		}
	}
	return out
}

func filterRuns(runs []LongRun, session, driver string) []LongRun {
	var out []LongRun
	for _, r := range runs {
		if r.Session == session && r.Driver == driver {
			out = append(out, r)
		}
	}
	return out
}

// runCompounds returns the compounds present in both run sets, in the
// order they first appear in x.
func runCompounds(x, y []LongRun) []string {
	inY := make(map[string]bool)
	for _, r := range y {
		inY[r.Compound] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range x {
		if inY[r.Compound] && !seen[r.Compound] {
			seen[r.Compound] = true
			out = append(out, r.Compound)
		}
	}
	return out
}

func runMeans(runs []LongRun, compound string) (pace, consistency float64) {
	var p, c []float64
	for _, r := range runs {
		if r.Compound == compound {
			p = append(p, r.AvgCorrected)
			c = append(c, r.Consistency)
		}
	}
	return regression.Mean(p), regression.Mean(c)
}

// Package testutil provides shared lap fixtures and a map-backed lap source
// for tests that run more than one pipeline stage.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/lap-pace/internal/lapstore"
	"github.com/banshee-data/lap-pace/internal/laps"
)

// SessionStart is the start of the fixture FP1 session.
var SessionStart = time.Date(2025, 12, 5, 9, 30, 0, 0, time.UTC)

// Run describes a block of consecutive laps on one set of tyres.
type Run struct {
	Driver    string
	Compound  string
	FirstLap  int           // lap number of the first lap
	Offset    time.Duration // start of the first lap after session start
	Laps      int
	Base      float64 // lap time of the first lap, seconds
	Slope     float64 // added per lap, seconds
	SectorGap float64 // added to sector 3 only, seconds
}

// Expand turns r into raw laps starting relative to start. Each lap starts
// when the previous one ends, so the whole run is a single stint.
func (r Run) Expand(start time.Time) []laps.Lap {
	out := make([]laps.Lap, 0, r.Laps)
	at := start.Add(r.Offset)
	for i := 0; i < r.Laps; i++ {
		t := r.Base + r.Slope*float64(i)
		out = append(out, laps.Lap{
			Driver:    r.Driver,
			Compound:  r.Compound,
			Number:    r.FirstLap + i,
			StartTime: at,
			Time:      t,
			Sector1:   t * 0.2,
			Sector2:   t * 0.42,
			Sector3:   t*0.38 + r.SectorGap,
			Accurate:  true,
		})
		at = at.Add(time.Duration(t * float64(time.Second)))
	}
	return out
}

// Session builds a named session from runs.
func Session(name string, start time.Time, runs ...Run) laps.Session {
	s := laps.Session{Name: name, Start: start}
	for _, r := range runs {
		s.Laps = append(s.Laps, r.Expand(start)...)
	}
	return s
}

// MapSource serves sessions from memory. Unknown names yield
// lapstore.ErrSessionNotFound and sessions without laps
// lapstore.ErrEmptySession, like the SQLite store.
type MapSource map[string]laps.Session

// SessionLaps implements pipeline.LapSource.
func (m MapSource) SessionLaps(ctx context.Context, name string) (laps.Session, error) {
	if err := ctx.Err(); err != nil {
		return laps.Session{}, err
	}
	s, ok := m[name]
	if !ok {
		return laps.Session{}, fmt.Errorf("%w: %s", lapstore.ErrSessionNotFound, name)
	}
	if len(s.Laps) == 0 {
		return s, fmt.Errorf("%w: %s", lapstore.ErrEmptySession, name)
	}
	s.Laps = laps.Clone(s.Laps)
	return s, nil
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

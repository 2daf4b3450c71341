package stint

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lap-pace/internal/laps"
)

var start = time.Date(2025, 12, 5, 9, 30, 0, 0, time.UTC)

func mk(driver, compound string, number int, at time.Duration) laps.Lap {
	return laps.Lap{
		Driver:    driver,
		Compound:  compound,
		Number:    number,
		StartTime: start.Add(at),
		Time:      90,
		Accurate:  true,
	}
}

func tyreLaps(ls []laps.Lap) []int {
	out := make([]int, len(ls))
	for i, l := range ls {
		out[i] = l.TyreLap
	}
	return out
}

func stints(ls []laps.Lap) []int {
	out := make([]int, len(ls))
	for i, l := range ls {
		out[i] = l.Stint
	}
	return out
}

func TestSegmentSingleStint(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "MEDIUM", 1, 0),
		mk("OWA", "MEDIUM", 2, 90*time.Second),
		mk("OWA", "MEDIUM", 3, 180*time.Second),
		mk("OWA", "MEDIUM", 4, 270*time.Second),
		mk("OWA", "MEDIUM", 5, 360*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, stints(out))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, tyreLaps(out))
}

func TestSegmentGapStartsNewStint(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "MEDIUM", 1, 0),
		mk("OWA", "MEDIUM", 2, 90*time.Second),
		mk("OWA", "MEDIUM", 3, 490*time.Second),
		mk("OWA", "MEDIUM", 4, 580*time.Second),
		mk("OWA", "MEDIUM", 5, 670*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)
	assert.Equal(t, []int{1, 1, 2, 2, 2}, stints(out))
	assert.Equal(t, []int{1, 2, 1, 2, 3}, tyreLaps(out))
}

func TestSegmentGapAtThresholdIsSameStint(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "MEDIUM", 1, 0),
		mk("OWA", "MEDIUM", 2, 300*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)
	assert.Equal(t, []int{1, 1}, stints(out))
}

func TestSegmentCompoundChangeStartsNewStint(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "SOFT", 1, 0),
		mk("OWA", "SOFT", 2, 90*time.Second),
		mk("OWA", "MEDIUM", 3, 100*time.Second),
		mk("OWA", "MEDIUM", 4, 190*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)
	assert.Equal(t, []int{1, 1, 2, 2}, stints(out))
	assert.Equal(t, []int{1, 2, 1, 2}, tyreLaps(out))
}

func TestSegmentSortsByStartTimeAndDriver(t *testing.T) {
	in := []laps.Lap{
		mk("PIA", "SOFT", 2, 95*time.Second),
		mk("OWA", "SOFT", 3, 180*time.Second),
		mk("OWA", "SOFT", 1, 0),
		mk("PIA", "SOFT", 1, 5*time.Second),
		mk("OWA", "SOFT", 2, 90*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)
	require.Len(t, out, 5)

	var order []string
	for _, l := range out {
		order = append(order, l.Driver)
	}
	assert.Equal(t, []string{"OWA", "OWA", "OWA", "PIA", "PIA"}, order)
	assert.Equal(t, []int{1, 2, 3, 1, 2}, tyreLaps(out))
	for i := 1; i < 3; i++ {
		assert.True(t, out[i].StartTime.After(out[i-1].StartTime))
	}
}

func TestSegmentInvariants(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "SOFT", 1, 0),
		mk("OWA", "SOFT", 2, 90*time.Second),
		mk("OWA", "MEDIUM", 3, 600*time.Second),
		mk("OWA", "MEDIUM", 4, 690*time.Second),
		mk("OWA", "HARD", 5, 780*time.Second),
		mk("LIN", "HARD", 1, 30*time.Second),
		mk("LIN", "HARD", 2, 1000*time.Second),
	}
	out := Segment(in, DefaultGapThreshold)

	for driver, dl := range laps.ByDriver(out) {
		prevStint, prevTyre := 0, 0
		for _, l := range dl {
			if l.Stint != prevStint {
				assert.Equal(t, prevStint+1, l.Stint, "stints contiguous for %s", driver)
				assert.Equal(t, 1, l.TyreLap, "tyre lap restarts for %s", driver)
			} else {
				assert.Equal(t, prevTyre+1, l.TyreLap, "tyre lap contiguous for %s", driver)
			}
			prevStint, prevTyre = l.Stint, l.TyreLap
		}
	}
}

func TestSegmentIsIdempotentAndPure(t *testing.T) {
	in := []laps.Lap{
		mk("OWA", "SOFT", 2, 90*time.Second),
		mk("OWA", "SOFT", 1, 0),
		mk("OWA", "SOFT", 3, 600*time.Second),
	}
	first := Segment(in, DefaultGapThreshold)
	second := Segment(first, DefaultGapThreshold)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-segmenting changed tags (-first +second):\n%s", diff)
	}
	assert.Equal(t, 0, in[0].Stint, "input must not be modified")
	assert.Equal(t, 2, in[0].Number, "input order must not be modified")
}

func TestSegmentEmpty(t *testing.T) {
	assert.Empty(t, Segment(nil, DefaultGapThreshold))
}

func TestEnsureTagged(t *testing.T) {
	tagged := Segment([]laps.Lap{mk("OWA", "SOFT", 1, 0), mk("OWA", "SOFT", 2, 90*time.Second)}, DefaultGapThreshold)
	tagged[1].TyreLap = 7
	kept := EnsureTagged(tagged, DefaultGapThreshold)
	assert.Equal(t, 7, kept[1].TyreLap, "already tagged laps are kept as-is")

	untagged := []laps.Lap{mk("OWA", "SOFT", 1, 0)}
	out := EnsureTagged(untagged, DefaultGapThreshold)
	assert.Equal(t, 1, out[0].Stint)
}

func TestSummaries(t *testing.T) {
	out := Segment([]laps.Lap{
		mk("OWA", "SOFT", 1, 0),
		mk("OWA", "SOFT", 2, 90*time.Second),
		mk("OWA", "MEDIUM", 3, 180*time.Second),
	}, DefaultGapThreshold)

	got := Summaries(out)
	require.Len(t, got, 2)
	assert.Equal(t, Summary{Driver: "OWA", Stint: 1, Compound: "SOFT", Laps: 2, FirstLap: 1, LastLap: 2, StartTime: start}, got[0])
	assert.Equal(t, "MEDIUM", got[1].Compound)
	assert.Equal(t, 1, got[1].Laps)
}

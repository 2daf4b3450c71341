package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/evolution"
	"github.com/banshee-data/lap-pace/internal/fsutil"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/pipeline"
	"github.com/banshee-data/lap-pace/internal/security"
	"github.com/banshee-data/lap-pace/internal/testutil"
	"github.com/banshee-data/lap-pace/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func runFixture(t *testing.T) *pipeline.Result {
	t.Helper()
	fp2 := testutil.SessionStart.Add(4 * time.Hour)
	src := testutil.MapSource{
		"FP1": testutil.Session("FP1", testutil.SessionStart,
			testutil.Run{Driver: "OWA", Compound: "MEDIUM", FirstLap: 2, Offset: 2 * time.Minute, Laps: 8, Base: 90.0, Slope: 0.1, SectorGap: 0.2},
			testutil.Run{Driver: "LIN", Compound: "SOFT", FirstLap: 2, Offset: 3 * time.Minute, Laps: 6, Base: 89.5, Slope: 0.08},
		),
		"FP2": testutil.Session("FP2", fp2,
			testutil.Run{Driver: "PIA", Compound: "MEDIUM", FirstLap: 2, Offset: 2 * time.Minute, Laps: 8, Base: 89.6, Slope: 0.1},
			testutil.Run{Driver: "TSU", Compound: "SOFT", FirstLap: 2, Offset: 4 * time.Minute, Laps: 6, Base: 88.9, Slope: 0.06},
		),
	}
	clock := timeutil.NewMockClock(time.Date(2025, 12, 5, 18, 0, 0, 0, time.UTC))
	res, err := pipeline.New(src, config.DefaultPaceConfig(), clock).Run(context.Background())
	require.NoError(t, err)
	return res
}

func readCSV(t *testing.T, fsys *fsutil.MemoryFileSystem, path string) [][]string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWrite(t *testing.T) {
	res := runFixture(t)
	fsys := fsutil.NewMemoryFileSystem()
	e := New(fsys, "out", config.DefaultRoster())

	written, err := e.Write(res)
	require.NoError(t, err)
	assert.Equal(t, fsys.Files(), sortedCopy(written))

	dir := e.RunDir(res)
	assert.Equal(t, filepath.Join("out", res.RunID.String()), dir)
	for _, name := range []string{
		"corrected_laps.csv", "degradation_fp1.csv", "degradation_fp2.csv",
		"compound_pace.csv", "aggregate_deficit.csv", "stint_summary.csv", "stint_trends.csv",
		"tyre_scores.csv", "long_runs.csv", "long_run_comparison.csv", "sector_deficits.csv",
		"summary.csv", "corrections_owa.png", "corrections_lin.png",
		"aggregate_deficit.html", "tyre_scores.html", "summary.txt",
	} {
		assert.True(t, fsys.Exists(filepath.Join(dir, name)), name)
	}
	assert.False(t, fsys.Exists(filepath.Join(dir, "corrections_ale.png")), "rookies without laps get no plot")
}

func TestWriteCompoundPaceCSV(t *testing.T) {
	res := runFixture(t)
	fsys := fsutil.NewMemoryFileSystem()
	e := New(fsys, "out", config.DefaultRoster())
	_, err := e.Write(res)
	require.NoError(t, err)

	rows := readCSV(t, fsys, filepath.Join(e.RunDir(res), "compound_pace.csv"))
	require.Len(t, rows, 3)
	want := []string{
		"reference", "reference_name", "rookie", "rookie_name", "team", "compound",
		"reference_best_raw", "rookie_best_raw", "raw_deficit",
		"reference_best_corrected", "rookie_best_corrected", "corrected_deficit",
		"reference_laps", "rookie_laps",
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"PIA", "Oscar Piastri", "OWA", "Pato O'Ward", "McLaren", "MEDIUM", "89.6", "90"}, rows[1][:8])
	assert.Equal(t, []string{"TSU", "Yuki Tsunoda", "LIN", "Arvid Lindblad"}, rows[2][:4])
	assert.Equal(t, "SOFT", rows[2][5])
}

func TestWriteCorrectedLapsCSV(t *testing.T) {
	res := runFixture(t)
	fsys := fsutil.NewMemoryFileSystem()
	e := New(fsys, "out", config.DefaultRoster())
	_, err := e.Write(res)
	require.NoError(t, err)

	rows := readCSV(t, fsys, filepath.Join(e.RunDir(res), "corrected_laps.csv"))
	assert.Len(t, rows, 1+len(res.Rookie.Corrected)+len(res.Reference.Corrected))
	assert.Equal(t, "FP1", rows[1][0])
	assert.Equal(t, "FP2", rows[len(rows)-1][0])
}

func TestWriteArtefactFormats(t *testing.T) {
	res := runFixture(t)
	fsys := fsutil.NewMemoryFileSystem()
	e := New(fsys, "out", config.DefaultRoster())
	_, err := e.Write(res)
	require.NoError(t, err)
	dir := e.RunDir(res)

	png, err := fsys.ReadFile(filepath.Join(dir, "corrections_owa.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	html, err := fsys.ReadFile(filepath.Join(dir, "aggregate_deficit.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")
	assert.Contains(t, string(html), "Pato O")

	txt, err := fsys.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "FP1 rookies vs FP2 reference drivers")
	assert.Contains(t, string(txt), "Closest rookie")
}

func TestSummaryTable(t *testing.T) {
	res := runFixture(t)
	tbl := summaryTable(res)

	values := make(map[string]string)
	for _, r := range tbl.Rows {
		values[r[0]] = r[1]
	}
	assert.Equal(t, res.RunID.String(), values["run_id"])
	assert.Equal(t, "9", values["rookies_total"])
	assert.Equal(t, "2", values["rookies_with_data"])
	assert.Equal(t, "Pato O'Ward", values["closest_rookie"])
	assert.Equal(t, "MEDIUM SOFT", values["compounds_analysed"])
	assert.Equal(t, "7", values["skipped.compound_pace.missing_driver"])
}

func TestSummaryTableOmitsMissingFigures(t *testing.T) {
	res := runFixture(t)
	res.Report.Summary.HasPace = false
	res.Report.Summary.HasRookieTrend = false

	for _, r := range summaryTable(res).Rows {
		assert.NotEqual(t, "closest_rookie", r[0])
		assert.NotEqual(t, "best_tyre_manager", r[0])
	}
}

func TestWriteSkipsEmptyTables(t *testing.T) {
	res := runFixture(t)
	res.Report.Sectors = nil
	res.Report.TyreScores = nil

	fsys := fsutil.NewMemoryFileSystem()
	e := New(fsys, "out", config.DefaultRoster())
	_, err := e.Write(res)
	require.NoError(t, err)

	dir := e.RunDir(res)
	assert.False(t, fsys.Exists(filepath.Join(dir, "sector_deficits.csv")))
	assert.False(t, fsys.Exists(filepath.Join(dir, "tyre_scores.csv")))
	assert.False(t, fsys.Exists(filepath.Join(dir, "tyre_scores.html")))
}

func TestEvolutionPlot(t *testing.T) {
	m := evolution.Model{
		Windows: []evolution.Window{
			{Start: 0, Mid: 2.5, Best: 90, Fitted: 90},
			{Start: 5, Mid: 7.5, Best: 89.9, Fitted: 89.95},
		},
		Rate: -0.01,
	}
	p, err := EvolutionPlot("FP1", m)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "FP1")
	assert.Contains(t, p.Title.Text, "-0.0100")
}

func TestTyreScoreCharts(t *testing.T) {
	res := runFixture(t)
	bars := TyreScoreCharts(res.Report.TyreScores)

	compounds := make(map[string]bool)
	for _, s := range res.Report.TyreScores {
		compounds[s.Compound] = true
	}
	assert.Len(t, bars, len(compounds))
}

type failingFS struct{ *fsutil.MemoryFileSystem }

func (failingFS) Create(name string) (io.WriteCloser, error) {
	return nil, errors.New("disk full")
}

func TestWriteReportsCreateError(t *testing.T) {
	res := runFixture(t)
	e := New(failingFS{fsutil.NewMemoryFileSystem()}, "out", config.DefaultRoster())
	_, err := e.Write(res)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "export tables:"), err.Error())
}

func TestWriteRejectsUnsafeSessionName(t *testing.T) {
	res := runFixture(t)
	res.Reference.Name = "../FP2"

	fsys := fsutil.NewMemoryFileSystem()
	_, err := New(fsys, "out", config.DefaultRoster()).Write(res)
	require.ErrorIs(t, err, security.ErrUnsafeName)
	for _, f := range fsys.Files() {
		assert.True(t, strings.HasPrefix(f, filepath.Join("out", res.RunID.String())), f)
	}
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

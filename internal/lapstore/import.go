package lapstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/lap-pace/internal/monitoring"
)

// ImportColumns is the header of an importable lap CSV. The first five
// columns are required; the rest may be absent or blank.
var ImportColumns = []string{
	"driver", "compound", "lap_number", "lap_start_time", "lap_time",
	"sector1", "sector2", "sector3", "is_accurate", "pit_in", "pit_out",
}

const requiredColumns = 5

// RawLap is one imported row. Missing numeric values are NaN.
type RawLap struct {
	Driver    string
	Compound  string
	Number    int
	StartTime time.Time
	Time      float64
	Sector1   float64
	Sector2   float64
	Sector3   float64
	Accurate  bool
	PitIn     bool
	PitOut    bool
}

// ParseCSV reads lap rows from r. lap_start_time is either an RFC 3339
// timestamp or a number of seconds since start. Any malformed row fails the
// whole parse.
func ParseCSV(r io.Reader, start time.Time) ([]RawLap, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty lap csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range ImportColumns[:requiredColumns] {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("lap csv missing column %q", name)
		}
	}

	var out []RawLap
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lap csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		lap, err := parseRow(field, start)
		if err != nil {
			return nil, fmt.Errorf("lap csv line %d: %w", line, err)
		}
		out = append(out, lap)
	}
	return out, nil
}

func parseRow(field func(string) string, start time.Time) (RawLap, error) {
	l := RawLap{
		Driver:   field("driver"),
		Compound: strings.ToUpper(field("compound")),
	}
	if l.Driver == "" {
		return l, errors.New("empty driver")
	}
	if l.Compound == "" {
		return l, errors.New("empty compound")
	}

	var err error
	if l.Number, err = strconv.Atoi(field("lap_number")); err != nil {
		return l, fmt.Errorf("lap_number: %w", err)
	}
	if l.StartTime, err = parseStart(field("lap_start_time"), start); err != nil {
		return l, fmt.Errorf("lap_start_time: %w", err)
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"lap_time", &l.Time},
		{"sector1", &l.Sector1},
		{"sector2", &l.Sector2},
		{"sector3", &l.Sector3},
	} {
		if *f.dst, err = parseOptionalFloat(field(f.name)); err != nil {
			return l, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if l.Accurate, err = parseOptionalBool(field("is_accurate"), true); err != nil {
		return l, fmt.Errorf("is_accurate: %w", err)
	}
	if l.PitIn, err = parseOptionalBool(field("pit_in"), false); err != nil {
		return l, fmt.Errorf("pit_in: %w", err)
	}
	if l.PitOut, err = parseOptionalBool(field("pit_out"), false); err != nil {
		return l, fmt.Errorf("pit_out: %w", err)
	}
	return l, nil
}

// maxOffsetSeconds is the largest relative start time a time.Duration can
// hold.
const maxOffsetSeconds = float64(math.MaxInt64) / float64(time.Second)

func parseStart(s string, start time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing")
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if start.IsZero() {
			return time.Time{}, errors.New("relative start time without a session start")
		}
		if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) >= maxOffsetSeconds {
			return time.Time{}, fmt.Errorf("invalid offset %q", s)
		}
		return start.Add(time.Duration(secs * float64(time.Second))), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseOptionalBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

// ImportCSV parses r and stores it as session, replacing any laps already
// stored under that name. It returns the number of rows stored.
func (db *DB) ImportCSV(ctx context.Context, session string, start time.Time, r io.Reader) (int, error) {
	rows, err := ParseCSV(r, start)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", session, err)
	}
	if err := db.ImportLaps(ctx, session, start, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportLaps stores rows as session in one transaction, replacing any laps
// already stored under that name.
func (db *DB) ImportLaps(ctx context.Context, session string, start time.Time, rows []RawLap) error {
	if session == "" {
		return errors.New("import: empty session name")
	}
	if start.IsZero() {
		return fmt.Errorf("import %s: missing session start", session)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import %s: %w", session, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (name, start_time) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET start_time = excluded.start_time, imported_at = CURRENT_TIMESTAMP`,
		session, start.UTC().UnixNano()); err != nil {
		return fmt.Errorf("import %s: upsert session: %w", session, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM laps WHERE session = ?`, session); err != nil {
		return fmt.Errorf("import %s: clear laps: %w", session, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO laps (
			session, driver, compound, lap_number, start_time, lap_time,
			sector1, sector2, sector3, is_accurate, pit_in, pit_out
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("import %s: %w", session, err)
	}
	defer stmt.Close()

	for _, l := range rows {
		if _, err := stmt.ExecContext(ctx,
			session, l.Driver, l.Compound, l.Number, l.StartTime.UTC().UnixNano(),
			nullFloat(l.Time), nullFloat(l.Sector1), nullFloat(l.Sector2), nullFloat(l.Sector3),
			l.Accurate, l.PitIn, l.PitOut,
		); err != nil {
			return fmt.Errorf("import %s: %s lap %d: %w", session, l.Driver, l.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import %s: commit: %w", session, err)
	}
	monitoring.Logf("lapstore: imported %d laps into %s", len(rows), session)
	return nil
}

func nullFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

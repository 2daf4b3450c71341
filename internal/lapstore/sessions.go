package lapstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/lap-pace/internal/laps"
)

// SessionInfo describes one imported session.
type SessionInfo struct {
	Name     string
	Start    time.Time
	LapCount int
	Drivers  int
	Usable   int // accurate, timed, non-pit laps
}

// Sessions lists every imported session by name.
func (db *DB) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.name, s.start_time,
			COUNT(l.lap_number),
			COUNT(DISTINCT l.driver),
			COALESCE(SUM(CASE WHEN `+usableLap+` THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN laps l ON l.session = s.name
		GROUP BY s.name, s.start_time
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var s SessionInfo
		var start int64
		if err := rows.Scan(&s.Name, &start, &s.LapCount, &s.Drivers, &s.Usable); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		s.Start = time.Unix(0, start).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

const usableLap = `l.is_accurate = 1 AND l.pit_in = 0 AND l.pit_out = 0 AND l.lap_time IS NOT NULL AND l.lap_time > 0`

// SessionLaps loads the usable laps of a session ordered by driver and lap
// number. Inaccurate, untimed, in-lap and out-lap rows are left out.
// A session that was never imported yields ErrSessionNotFound, one with no
// usable laps ErrEmptySession.
func (db *DB) SessionLaps(ctx context.Context, name string) (laps.Session, error) {
	s := laps.Session{Name: name}

	var start int64
	err := db.QueryRowContext(ctx, `SELECT start_time FROM sessions WHERE name = ?`, name).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	if err != nil {
		return s, fmt.Errorf("load session %s: %w", name, err)
	}
	s.Start = time.Unix(0, start).UTC()

	rows, err := db.QueryContext(ctx, `
		SELECT l.driver, l.compound, l.lap_number, l.start_time, l.lap_time,
			l.sector1, l.sector2, l.sector3, l.is_accurate
		FROM laps l
		WHERE l.session = ? AND `+usableLap+`
		ORDER BY l.driver, l.lap_number`, name)
	if err != nil {
		return s, fmt.Errorf("load session %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l laps.Lap
		var lapStart int64
		var s1, s2, s3 sql.NullFloat64
		if err := rows.Scan(&l.Driver, &l.Compound, &l.Number, &lapStart, &l.Time,
			&s1, &s2, &s3, &l.Accurate); err != nil {
			return s, fmt.Errorf("load session %s: %w", name, err)
		}
		l.StartTime = time.Unix(0, lapStart).UTC()
		l.Sector1, l.Sector2, l.Sector3 = s1.Float64, s2.Float64, s3.Float64
		s.Laps = append(s.Laps, l)
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("load session %s: %w", name, err)
	}
	if len(s.Laps) == 0 {
		return s, fmt.Errorf("%w: %s", ErrEmptySession, name)
	}
	return s, nil
}

// DeleteSession removes a session and its laps.
func (db *DB) DeleteSession(ctx context.Context, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}

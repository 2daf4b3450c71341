package lapstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/monitoring"
)

// ErrRunNotFound is returned when no analysis run has the requested id.
var ErrRunNotFound = errors.New("analysis run not found")

// Run is one persisted analysis: the two sessions compared, their
// evolution rates and every corrected lap keyed by session name.
type Run struct {
	ID                     uuid.UUID
	RookieSession          string
	ReferenceSession       string
	CreatedAt              time.Time
	RookieEvolutionRate    float64
	ReferenceEvolutionRate float64
	ConfigJSON             string
	Corrected              map[string][]laps.Lap
}

// SaveRun stores run and its corrected laps in one transaction. A zero ID
// is replaced with a fresh random one, which is returned.
func (db *DB) SaveRun(ctx context.Context, run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	id := run.ID.String()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save run %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, rookie_session, reference_session, created_at,
			rookie_evolution_rate, reference_evolution_rate, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, run.RookieSession, run.ReferenceSession, run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.RookieEvolutionRate, run.ReferenceEvolutionRate, run.ConfigJSON,
	); err != nil {
		return uuid.Nil, fmt.Errorf("save run %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corrected_laps (
			run_id, session, driver, lap_number, compound, stint, tyre_lap, lap_time,
			fuel_correction, track_evolution_correction, tyre_age_correction, fully_corrected_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save run %s: %w", id, err)
	}
	defer stmt.Close()

	n := 0
	for session, ls := range run.Corrected {
		for _, l := range ls {
			if _, err := stmt.ExecContext(ctx,
				id, session, l.Driver, l.Number, l.Compound, l.Stint, l.TyreLap, l.Time,
				l.FuelCorrection, l.EvolutionCorrection, l.TyreCorrection, l.FullyCorrectedTime(),
			); err != nil {
				return uuid.Nil, fmt.Errorf("save run %s: %s %s lap %d: %w", id, session, l.Driver, l.Number, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("save run %s: commit: %w", id, err)
	}
	monitoring.Logf("lapstore: saved run %s with %d corrected laps", id, n)
	return run.ID, nil
}

// LoadRun reads a run header and its corrected laps. Corrected laps carry
// the stint tags and corrections; raw sector and start fields are not
// persisted with the run.
func (db *DB) LoadRun(ctx context.Context, id uuid.UUID) (Run, error) {
	run := Run{ID: id, Corrected: make(map[string][]laps.Lap)}
	var created string
	err := db.QueryRowContext(ctx, `
		SELECT rookie_session, reference_session, created_at,
			rookie_evolution_rate, reference_evolution_rate, COALESCE(config_json, '')
		FROM analysis_runs WHERE run_id = ?`, id.String()).Scan(
		&run.RookieSession, &run.ReferenceSession, &created,
		&run.RookieEvolutionRate, &run.ReferenceEvolutionRate, &run.ConfigJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return run, fmt.Errorf("load run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return run, fmt.Errorf("load run %s: created_at: %w", id, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT session, driver, lap_number, compound, stint, tyre_lap, lap_time,
			fuel_correction, track_evolution_correction, tyre_age_correction
		FROM corrected_laps WHERE run_id = ?
		ORDER BY session, driver, lap_number`, id.String())
	if err != nil {
		return run, fmt.Errorf("load run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var session string
		var l laps.Lap
		if err := rows.Scan(&session, &l.Driver, &l.Number, &l.Compound, &l.Stint, &l.TyreLap, &l.Time,
			&l.FuelCorrection, &l.EvolutionCorrection, &l.TyreCorrection); err != nil {
			return run, fmt.Errorf("load run %s: %w", id, err)
		}
		run.Corrected[session] = append(run.Corrected[session], l)
	}
	return run, rows.Err()
}

package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/launchtrace/internal/series"
)

// RunStatus values for the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusComplete  = "complete"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// Run is one extraction run over one video.
type Run struct {
	RunID        string
	Video        string
	Schedule     string
	FPS          float64
	FrameStart   int
	FrameEnd     int
	Stride       int
	T0Frame      *float64
	Status       string
	FramesTotal  int
	FramesFailed int
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// CreateRun inserts a new run in the running state and returns its
// generated ID.
func (db *DB) CreateRun(video, schedule string, fps float64, frameStart, frameEnd, stride int) (string, error) {
	runID := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, video, schedule, fps, frame_start, frame_end, stride)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, video, schedule, fps, frameStart, frameEnd, stride,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// FinishRun records the run's terminal status and summary counts.
func (db *DB) FinishRun(runID, status string, t0Frame float64, framesTotal, framesFailed int) error {
	res, err := db.Exec(
		`UPDATE runs SET status = ?, t0_frame = ?, frames_total = ?, frames_failed = ?,
		 finished_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		status, t0Frame, framesTotal, framesFailed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no run with id %s", runID)
	}
	return nil
}

// GetRun loads one run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	var r Run
	err := db.QueryRow(
		`SELECT run_id, video, schedule, fps, frame_start, frame_end, stride,
		        t0_frame, status, frames_total, frames_failed, started_at, finished_at
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.Video, &r.Schedule, &r.FPS, &r.FrameStart, &r.FrameEnd, &r.Stride,
		&r.T0Frame, &r.Status, &r.FramesTotal, &r.FramesFailed, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT run_id, video, schedule, fps, frame_start, frame_end, stride,
		        t0_frame, status, frames_total, frames_failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Video, &r.Schedule, &r.FPS, &r.FrameStart, &r.FrameEnd,
			&r.Stride, &r.T0Frame, &r.Status, &r.FramesTotal, &r.FramesFailed,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SaveSeries writes every cleaned and derived role series of a run in
// batched transactions. batchSize bounds rows per transaction so a long
// run never holds one giant write lock.
func (db *DB) SaveSeries(runID string, cs *series.CleanedSeries, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	type row struct {
		role string
		s    series.Sample
	}
	var rows []row
	for role, rs := range cs.Roles {
		for _, s := range rs.Samples {
			rows = append(rows, row{role, s})
		}
	}
	for role, rs := range cs.Derived {
		for _, s := range rs.Samples {
			rows = append(rows, row{role, s})
		}
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin sample batch: %w", err)
		}
		stmt, err := tx.Prepare(
			`INSERT INTO samples (run_id, role, frame, t, value, valid, flag)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
		for _, r := range rows[start:end] {
			valid := 0
			if r.s.Valid {
				valid = 1
			}
			if _, err := stmt.Exec(runID, r.role, r.s.Frame, r.s.Time, r.s.Value, valid, r.s.Flag.String()); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("failed to insert sample (%s frame %d): %w", r.role, r.s.Frame, err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit sample batch: %w", err)
		}
	}

	return db.saveEvents(runID, cs.Events)
}

func (db *DB) saveEvents(runID string, events []series.EngineEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO engine_events (run_id, role, engine_index, frame, t, lit)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, ev := range events {
		lit := 0
		if ev.Lit {
			lit = 1
		}
		if _, err := stmt.Exec(runID, ev.Role, ev.Engine, ev.Frame, ev.Time, lit); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to insert engine event: %w", err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

// Samples loads one role's stored series for a run, in frame order.
func (db *DB) Samples(runID, role string) ([]series.Sample, error) {
	rows, err := db.Query(
		`SELECT frame, t, value, valid, flag FROM samples
		 WHERE run_id = ? AND role = ? ORDER BY frame`, runID, role,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []series.Sample
	for rows.Next() {
		var s series.Sample
		var valid int
		var flag string
		if err := rows.Scan(&s.Frame, &s.Time, &s.Value, &valid, &flag); err != nil {
			return nil, err
		}
		s.Valid = valid != 0
		s.Flag = parseFlag(flag)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SampleRoles returns the distinct role names stored for a run.
func (db *DB) SampleRoles(runID string) ([]string, error) {
	rows, err := db.Query(
		`SELECT DISTINCT role FROM samples WHERE run_id = ? ORDER BY role`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// LoadSeries reassembles a stored run into a CleanedSeries, the inverse
// of SaveSeries. Acceleration and g-force roles land in Derived, the
// rest in Roles.
func (db *DB) LoadSeries(runID string) (*series.CleanedSeries, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}

	cs := &series.CleanedSeries{
		FPS:     run.FPS,
		Roles:   make(map[string]*series.RoleSeries),
		Derived: make(map[string]*series.RoleSeries),
	}
	if run.T0Frame != nil {
		cs.T0Frame = *run.T0Frame
	}

	roles, err := db.SampleRoles(runID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		samples, err := db.Samples(runID, role)
		if err != nil {
			return nil, err
		}
		rs := &series.RoleSeries{Role: role, Samples: samples}
		if strings.HasSuffix(role, "_acceleration") || strings.HasSuffix(role, "_g_force") {
			cs.Derived[role] = rs
		} else {
			cs.Roles[role] = rs
		}
	}

	cs.Events, err = db.EngineEvents(runID)
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// EngineEvents loads a run's engine transitions in frame order.
func (db *DB) EngineEvents(runID string) ([]series.EngineEvent, error) {
	rows, err := db.Query(
		`SELECT role, engine_index, frame, t, lit FROM engine_events
		 WHERE run_id = ? ORDER BY frame`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []series.EngineEvent
	for rows.Next() {
		var ev series.EngineEvent
		var lit int
		if err := rows.Scan(&ev.Role, &ev.Engine, &ev.Frame, &ev.Time, &lit); err != nil {
			return nil, err
		}
		ev.Lit = lit != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

func parseFlag(s string) series.Flag {
	for _, f := range []series.Flag{
		series.FlagMeasured, series.FlagMissing, series.FlagOutlier,
		series.FlagProvisional, series.FlagInterpolated,
	} {
		if f.String() == s {
			return f
		}
	}
	return series.FlagMissing
}

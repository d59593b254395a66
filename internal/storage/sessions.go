package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meltforce/classpulse/internal/models"
)

// GetSession retrieves the live session row for a class.
func (db *DB) GetSession(ctx context.Context, classID int64) (*models.LiveSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT class_id, workout_id, workout_type, status, time_cap_seconds,
		 started_at, paused_at, ended_at, pause_accum_seconds, steps, updated_at
		 FROM live_sessions WHERE class_id = $1`,
		classID)

	var s models.LiveSession
	var stepsJSON []byte
	err := row.Scan(&s.ClassID, &s.WorkoutID, &s.WorkoutType, &s.Status,
		&s.TimeCapSeconds, &s.StartedAt, &s.PausedAt, &s.EndedAt,
		&s.PauseAccumSeconds, &stepsJSON, &s.UpdatedAt)
	if err != nil {
		return nil, classify("querying session", err)
	}
	if err := json.Unmarshal(stepsJSON, &s.Steps); err != nil {
		return nil, fmt.Errorf("decoding session steps: %w", err)
	}
	return &s, nil
}

// PutSession upserts the session row. One row per class; the write is
// atomic at row level, which linearizes concurrent coach transitions
// (last writer wins, acceptable for a single assigned coach).
func (db *DB) PutSession(ctx context.Context, s *models.LiveSession) error {
	stepsJSON, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("encoding session steps: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO live_sessions (class_id, workout_id, workout_type, status,
		 time_cap_seconds, started_at, paused_at, ended_at, pause_accum_seconds, steps, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (class_id) DO UPDATE SET
		   workout_id = EXCLUDED.workout_id,
		   workout_type = EXCLUDED.workout_type,
		   status = EXCLUDED.status,
		   time_cap_seconds = EXCLUDED.time_cap_seconds,
		   started_at = EXCLUDED.started_at,
		   paused_at = EXCLUDED.paused_at,
		   ended_at = EXCLUDED.ended_at,
		   pause_accum_seconds = EXCLUDED.pause_accum_seconds,
		   steps = EXCLUDED.steps,
		   updated_at = EXCLUDED.updated_at`,
		s.ClassID, s.WorkoutID, s.WorkoutType, s.Status, s.TimeCapSeconds,
		s.StartedAt, s.PausedAt, s.EndedAt, s.PauseAccumSeconds, stepsJSON, s.UpdatedAt)
	return classify("upserting session", err)
}

// ListEndedSessions returns sessions that ended at or after since,
// oldest first. The export tooling walks this.
func (db *DB) ListEndedSessions(ctx context.Context, since time.Time) ([]models.LiveSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT class_id, workout_id, workout_type, status, time_cap_seconds,
		 started_at, paused_at, ended_at, pause_accum_seconds, steps, updated_at
		 FROM live_sessions
		 WHERE status = 'ended' AND ended_at >= $1
		 ORDER BY ended_at ASC`,
		since)
	if err != nil {
		return nil, classify("querying ended sessions", err)
	}
	defer rows.Close()

	var result []models.LiveSession
	for rows.Next() {
		var s models.LiveSession
		var stepsJSON []byte
		if err := rows.Scan(&s.ClassID, &s.WorkoutID, &s.WorkoutType, &s.Status,
			&s.TimeCapSeconds, &s.StartedAt, &s.PausedAt, &s.EndedAt,
			&s.PauseAccumSeconds, &stepsJSON, &s.UpdatedAt); err != nil {
			return nil, classify("scanning ended session", err)
		}
		if err := json.Unmarshal(stepsJSON, &s.Steps); err != nil {
			return nil, fmt.Errorf("decoding session steps: %w", err)
		}
		result = append(result, s)
	}
	return result, classify("iterating ended sessions", rows.Err())
}

// ListActiveSessions returns sessions that are live or paused, by
// class id. Backs the running-classes listing.
func (db *DB) ListActiveSessions(ctx context.Context) ([]models.LiveSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT class_id, workout_id, workout_type, status, time_cap_seconds,
		 started_at, paused_at, ended_at, pause_accum_seconds, steps, updated_at
		 FROM live_sessions
		 WHERE status IN ('live', 'paused')
		 ORDER BY class_id ASC`)
	if err != nil {
		return nil, classify("querying active sessions", err)
	}
	defer rows.Close()

	var result []models.LiveSession
	for rows.Next() {
		var s models.LiveSession
		var stepsJSON []byte
		if err := rows.Scan(&s.ClassID, &s.WorkoutID, &s.WorkoutType, &s.Status,
			&s.TimeCapSeconds, &s.StartedAt, &s.PausedAt, &s.EndedAt,
			&s.PauseAccumSeconds, &stepsJSON, &s.UpdatedAt); err != nil {
			return nil, classify("scanning active session", err)
		}
		if err := json.Unmarshal(stepsJSON, &s.Steps); err != nil {
			return nil, fmt.Errorf("decoding session steps: %w", err)
		}
		result = append(result, s)
	}
	return result, classify("iterating active sessions", rows.Err())
}

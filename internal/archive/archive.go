// Package archive persists ended sessions and their final
// leaderboards to a local SQLite file for offline analysis and
// long-term retention outside the operational database.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
	_ "modernc.org/sqlite"
)

// DB is the results archive.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at dir/results.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "results.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS archived_sessions (
			class_id         INTEGER PRIMARY KEY,
			workout_id       INTEGER NOT NULL,
			workout_type     TEXT NOT NULL,
			time_cap_seconds INTEGER NOT NULL,
			started_at       TIMESTAMP,
			ended_at         TIMESTAMP,
			steps            TEXT NOT NULL,
			export_batch     TEXT NOT NULL,
			archived_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS archived_results (
			class_id         INTEGER NOT NULL,
			user_id          INTEGER NOT NULL,
			rank             INTEGER NOT NULL,
			scaling          TEXT NOT NULL,
			finished         INTEGER NOT NULL,
			finish_seconds   INTEGER NOT NULL,
			score            INTEGER NOT NULL,
			minutes_finished INTEGER NOT NULL,
			PRIMARY KEY (class_id, user_id)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating archive tables: %w", err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the archive database.
func (a *DB) Close() error {
	return a.db.Close()
}

// ArchiveSession writes one ended session and its final leaderboard.
// Re-archiving a class replaces the previous rows, so repeated export
// passes are idempotent.
func (a *DB) ArchiveSession(ctx context.Context, s *models.LiveSession, lb *engine.Leaderboard, batch string) error {
	stepsJSON, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("encoding steps: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archived_sessions
		 (class_id, workout_id, workout_type, time_cap_seconds, started_at, ended_at, steps, export_batch)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.ClassID, s.WorkoutID, string(s.WorkoutType), s.TimeCapSeconds,
		timePtr(s.StartedAt), timePtr(s.EndedAt), string(stepsJSON), batch)
	if err != nil {
		return fmt.Errorf("archiving session %d: %w", s.ClassID, err)
	}

	for _, entry := range lb.Entries {
		_, err := a.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO archived_results
			 (class_id, user_id, rank, scaling, finished, finish_seconds, score, minutes_finished)
			 VALUES (?,?,?,?,?,?,?,?)`,
			s.ClassID, entry.UserID, entry.Rank, string(entry.Scaling),
			entry.Finished, entry.FinishSeconds, entry.Score, entry.MinutesFinished)
		if err != nil {
			return fmt.Errorf("archiving result %d/%d: %w", s.ClassID, entry.UserID, err)
		}
	}
	return nil
}

// CountSessions returns how many sessions the archive holds.
func (a *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_sessions`).Scan(&n)
	return n, err
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Exporter walks ended sessions and archives each with its final
// leaderboard.
type Exporter struct {
	Engine  *engine.Engine
	Store   engine.SessionStore
	Archive *DB
}

// Result summarizes one export pass.
type Result struct {
	Batch    string `json:"batch"`
	Archived int    `json:"archived"`
	Skipped  int    `json:"skipped"`
}

// ArchiveEnded adapts Run to the server's ops-route Archiver interface.
func (ex *Exporter) ArchiveEnded(ctx context.Context, since time.Time) (any, error) {
	return ex.Run(ctx, since)
}

// Run archives every session ended since the given time. Sessions
// whose leaderboard cannot be computed are skipped, not fatal; a
// later pass retries them.
func (ex *Exporter) Run(ctx context.Context, since time.Time) (*Result, error) {
	sessions, err := ex.Store.ListEndedSessions(ctx, since)
	if err != nil {
		return nil, err
	}
	res := &Result{Batch: uuid.NewString()}
	for i := range sessions {
		s := &sessions[i]
		lb, err := ex.Engine.FinalLeaderboard(ctx, s.ClassID)
		if err != nil {
			res.Skipped++
			continue
		}
		if err := ex.Archive.ArchiveSession(ctx, s, lb, res.Batch); err != nil {
			return res, err
		}
		res.Archived++
	}
	return res, nil
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meltforce/classpulse/internal/models"
)

// GetProgress retrieves one participant's progress record.
func (db *DB) GetProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT class_id, user_id, current_step_index, finished, finish_seconds,
		 total_reps, total_reps_overridden, partial_reps, per_step_reps,
		 emom_marks, scaling, updated_at
		 FROM progress_records WHERE class_id = $1 AND user_id = $2`,
		classID, userID)
	p, err := scanProgress(row)
	if err != nil {
		return nil, classify("querying progress", err)
	}
	return p, nil
}

// PutProgress upserts a participant's progress record. Each
// participant owns their row exclusively, so per-row atomicity is all
// the ordering concurrent submissions need.
func (db *DB) PutProgress(ctx context.Context, p *models.ProgressRecord) error {
	perStepJSON, err := json.Marshal(p.PerStepReps)
	if err != nil {
		return fmt.Errorf("encoding per-step reps: %w", err)
	}
	marksJSON, err := json.Marshal(p.EmomMarks)
	if err != nil {
		return fmt.Errorf("encoding emom marks: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO progress_records (class_id, user_id, current_step_index,
		 finished, finish_seconds, total_reps, total_reps_overridden,
		 partial_reps, per_step_reps, emom_marks, scaling, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (class_id, user_id) DO UPDATE SET
		   current_step_index = EXCLUDED.current_step_index,
		   finished = EXCLUDED.finished,
		   finish_seconds = EXCLUDED.finish_seconds,
		   total_reps = EXCLUDED.total_reps,
		   total_reps_overridden = EXCLUDED.total_reps_overridden,
		   partial_reps = EXCLUDED.partial_reps,
		   per_step_reps = EXCLUDED.per_step_reps,
		   emom_marks = EXCLUDED.emom_marks,
		   scaling = EXCLUDED.scaling,
		   updated_at = EXCLUDED.updated_at`,
		p.ClassID, p.UserID, p.CurrentStepIndex, p.Finished, p.FinishSeconds,
		p.TotalReps, p.TotalRepsOverridden, p.PartialReps, perStepJSON, marksJSON,
		p.Scaling, p.UpdatedAt)
	return classify("upserting progress", err)
}

// ListProgress returns every progress record of a class.
func (db *DB) ListProgress(ctx context.Context, classID int64) ([]models.ProgressRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT class_id, user_id, current_step_index, finished, finish_seconds,
		 total_reps, total_reps_overridden, partial_reps, per_step_reps,
		 emom_marks, scaling, updated_at
		 FROM progress_records WHERE class_id = $1 ORDER BY user_id ASC`,
		classID)
	if err != nil {
		return nil, classify("querying class progress", err)
	}
	defer rows.Close()

	var result []models.ProgressRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, classify("scanning progress", err)
		}
		result = append(result, *p)
	}
	return result, classify("iterating class progress", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner) (*models.ProgressRecord, error) {
	var p models.ProgressRecord
	var perStepJSON, marksJSON []byte
	err := row.Scan(&p.ClassID, &p.UserID, &p.CurrentStepIndex, &p.Finished,
		&p.FinishSeconds, &p.TotalReps, &p.TotalRepsOverridden, &p.PartialReps,
		&perStepJSON, &marksJSON, &p.Scaling, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(perStepJSON) > 0 {
		if err := json.Unmarshal(perStepJSON, &p.PerStepReps); err != nil {
			return nil, fmt.Errorf("decoding per-step reps: %w", err)
		}
	}
	if len(marksJSON) > 0 {
		if err := json.Unmarshal(marksJSON, &p.EmomMarks); err != nil {
			return nil, fmt.Errorf("decoding emom marks: %w", err)
		}
	}
	return &p, nil
}

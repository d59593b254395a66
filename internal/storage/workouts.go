package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meltforce/classpulse/internal/models"
)

// GetWorkout reads an authored workout definition. The rounds
// structure is stored as JSONB by the authoring side; the engine only
// consumes it at session start.
func (db *DB) GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutDefinition, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, workout_type, time_cap_seconds, rounds
		 FROM workouts WHERE id = $1`,
		workoutID)

	var def models.WorkoutDefinition
	var roundsJSON []byte
	if err := row.Scan(&def.ID, &def.Name, &def.Type, &def.TimeCapSeconds, &roundsJSON); err != nil {
		return nil, classify("querying workout", err)
	}
	if err := json.Unmarshal(roundsJSON, &def.Rounds); err != nil {
		return nil, fmt.Errorf("decoding workout rounds: %w", err)
	}
	return &def, nil
}

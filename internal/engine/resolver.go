package engine

import "github.com/meltforce/classpulse/internal/models"

// ResolveSteps flattens a workout definition's rounds, subrounds, and
// exercises into the ordered step list that gets snapshotted onto a
// session at start. Ordering preserves (round, subround) grouping;
// indices are assigned sequentially from 0.
func ResolveSteps(def *models.WorkoutDefinition) ([]models.Step, error) {
	if def == nil || def.ID <= 0 {
		return nil, Errf(CodeInvalidWorkoutID, "workout definition missing or has invalid id")
	}
	var steps []models.Step
	for _, round := range def.Rounds {
		for _, sub := range round.Subrounds {
			for _, ex := range sub.Exercises {
				steps = append(steps, models.Step{
					Index:           len(steps),
					Name:            ex.Name,
					Round:           round.Number,
					Subround:        sub.Number,
					Reps:            ex.Reps,
					DurationSeconds: ex.DurationSeconds,
				})
			}
		}
	}
	return steps, nil
}

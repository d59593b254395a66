package models

// WorkoutType identifies the scoring modality of a workout.
type WorkoutType string

const (
	WorkoutForTime  WorkoutType = "FOR_TIME"
	WorkoutAmrap    WorkoutType = "AMRAP"
	WorkoutEmom     WorkoutType = "EMOM"
	WorkoutInterval WorkoutType = "INTERVAL"
	WorkoutTabata   WorkoutType = "TABATA"
)

// IsInterval reports whether the modality scores by per-step reps
// posted out of sequence (INTERVAL and TABATA share this rule).
func (t WorkoutType) IsInterval() bool {
	return t == WorkoutInterval || t == WorkoutTabata
}

// Valid reports whether t is one of the known modalities.
func (t WorkoutType) Valid() bool {
	switch t {
	case WorkoutForTime, WorkoutAmrap, WorkoutEmom, WorkoutInterval, WorkoutTabata:
		return true
	}
	return false
}

// Exercise is a single movement inside a subround. Reps and
// DurationSeconds are alternatives: duration-only exercises carry
// zero reps and contribute nothing to cumulative rep counts.
type Exercise struct {
	Name            string `json:"name"`
	Reps            int    `json:"reps,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// Subround groups exercises executed together within a round.
type Subround struct {
	Number    int        `json:"number"`
	Exercises []Exercise `json:"exercises"`
}

// Round is one pass of the workout structure.
type Round struct {
	Number    int        `json:"number"`
	Subrounds []Subround `json:"subrounds"`
}

// WorkoutDefinition is the authored workout as stored by the workout
// catalog. The session engine only reads it, at session start.
type WorkoutDefinition struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Type           WorkoutType `json:"type"`
	TimeCapSeconds int         `json:"time_cap_seconds"`
	Rounds         []Round     `json:"rounds"`
}

// Class is the slice of the booking system's class record the session
// engine needs: who coaches it and which workout is attached.
// WorkoutID is zero when no workout has been assigned.
type Class struct {
	ID        int64 `json:"id"`
	CoachID   int64 `json:"coach_id"`
	WorkoutID int64 `json:"workout_id"`
}

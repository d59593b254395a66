package models

import (
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusLive       SessionStatus = "live"
	StatusPaused     SessionStatus = "paused"
	StatusEnded      SessionStatus = "ended"
)

// Transition errors returned by the LiveSession state machine. The
// engine translates these to coded API errors.
var (
	ErrNotLive      = errors.New("session is not live")
	ErrNotPaused    = errors.New("session is not paused")
	ErrAlreadyEnded = errors.New("session has already ended")
)

// Step is one entry of the ordered snapshot captured at session start.
// Reps is zero for duration-only steps.
type Step struct {
	Index           int    `json:"index"`
	Name            string `json:"name"`
	Round           int    `json:"round"`
	Subround        int    `json:"subround"`
	Reps            int    `json:"reps,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// LiveSession is the single authoritative record of a running class
// session. There is at most one per class; starting again overwrites
// it in place. The transition methods are the only mutators of Status
// and the timing fields.
type LiveSession struct {
	ClassID           int64         `json:"class_id"`
	WorkoutID         int64         `json:"workout_id"`
	WorkoutType       WorkoutType   `json:"workout_type"`
	Status            SessionStatus `json:"status"`
	TimeCapSeconds    int           `json:"time_cap_seconds"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	PausedAt          *time.Time    `json:"paused_at,omitempty"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
	PauseAccumSeconds int           `json:"pause_accum_seconds"`
	Steps             []Step        `json:"steps"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Start moves the session to live and snapshots the given steps.
// Calling Start on a session that is already running restarts it:
// the clock resets and the steps are re-snapshotted. That restart is
// coach-initiated and intentional.
func (s *LiveSession) Start(now time.Time, workoutID int64, workoutType WorkoutType, timeCapSeconds int, steps []Step) {
	s.WorkoutID = workoutID
	s.WorkoutType = workoutType
	s.TimeCapSeconds = timeCapSeconds
	s.Steps = steps
	s.Status = StatusLive
	s.StartedAt = &now
	s.PausedAt = nil
	s.EndedAt = nil
	s.PauseAccumSeconds = 0
	s.UpdatedAt = now
}

// Pause suspends the session clock. Only valid from live.
func (s *LiveSession) Pause(now time.Time) error {
	if s.Status == StatusEnded {
		return ErrAlreadyEnded
	}
	if s.Status != StatusLive {
		return ErrNotLive
	}
	s.Status = StatusPaused
	s.PausedAt = &now
	s.UpdatedAt = now
	return nil
}

// Resume folds the completed pause interval into PauseAccumSeconds
// and restarts the clock. Only valid from paused.
func (s *LiveSession) Resume(now time.Time) error {
	if s.Status == StatusEnded {
		return ErrAlreadyEnded
	}
	if s.Status != StatusPaused || s.PausedAt == nil {
		return ErrNotPaused
	}
	s.PauseAccumSeconds += int(now.Sub(*s.PausedAt).Seconds())
	s.PausedAt = nil
	s.Status = StatusLive
	s.UpdatedAt = now
	return nil
}

// Stop terminates the session from any non-ended state. Ended is
// terminal; stopping twice fails.
func (s *LiveSession) Stop(now time.Time) error {
	if s.Status == StatusEnded {
		return ErrAlreadyEnded
	}
	if s.Status == StatusPaused && s.PausedAt != nil {
		s.PauseAccumSeconds += int(now.Sub(*s.PausedAt).Seconds())
		s.PausedAt = nil
	}
	s.Status = StatusEnded
	s.EndedAt = &now
	s.UpdatedAt = now
	return nil
}

// Elapsed returns workout seconds since start, excluding time spent
// paused. This is the single authoritative clock: every time-cap
// check and finish time must come through here so concurrent readers
// agree. Returns 0 before start and never goes negative.
func (s *LiveSession) Elapsed(now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	ref := now
	if s.Status == StatusEnded && s.EndedAt != nil {
		ref = *s.EndedAt
	}
	elapsed := int(ref.Sub(*s.StartedAt).Seconds()) - s.PauseAccumSeconds
	if s.Status == StatusPaused && s.PausedAt != nil {
		elapsed -= int(ref.Sub(*s.PausedAt).Seconds())
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns seconds left before the time cap. Zero or
// negative means the cap has been reached.
func (s *LiveSession) Remaining(now time.Time) int {
	return s.TimeCapSeconds - s.Elapsed(now)
}

// CumReps returns the cumulative rep counts keyed by step index:
// CumReps()[i] is the sum of reps of steps[0..i]. Duration-only steps
// contribute 0. AMRAP and FOR_TIME scoring key off this snapshot.
func (s *LiveSession) CumReps() []int {
	cum := make([]int, len(s.Steps))
	total := 0
	for i, st := range s.Steps {
		total += st.Reps
		cum[i] = total
	}
	return cum
}

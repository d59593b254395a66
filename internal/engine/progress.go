package engine

import (
	"context"
	"time"

	"github.com/meltforce/classpulse/internal/models"
)

// AdvanceDirection moves a participant through the step list.
type AdvanceDirection string

const (
	AdvanceNext AdvanceDirection = "next"
	AdvancePrev AdvanceDirection = "prev"
)

// loadForProgress runs the shared preamble of every participant
// write: session exists, caller is booked, session is live or paused.
// Once ended, records freeze; only the coach override gateway writes
// past that point.
func (e *Engine) loadForProgress(ctx context.Context, classID, userID int64) (*models.LiveSession, *models.ProgressRecord, error) {
	s, err := e.loadSession(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireBooked(ctx, classID, userID); err != nil {
		return nil, nil, err
	}
	if s.Status == models.StatusNotStarted {
		return nil, nil, Errf(CodeSessionNotStarted, "session for class %d has not started", classID)
	}
	if s.Status == models.StatusEnded {
		return nil, nil, Errf(CodeNotLive, "session has ended")
	}
	p, err := e.loadOrCreateProgress(ctx, classID, userID)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// AdvanceStep moves the participant's current step by one in the
// given direction. FOR_TIME clamps at the step list bounds and sets
// finished when advancing past the last step; AMRAP wraps around and
// keeps repeating rounds. The time cap is checked before any
// mutation: once remaining time hits zero, AdvanceStep fails with
// TIME_UP and the record is left untouched.
func (e *Engine) AdvanceStep(ctx context.Context, classID, userID int64, dir AdvanceDirection) (*models.ProgressRecord, error) {
	s, p, err := e.loadForProgress(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	if s.Remaining(now) <= 0 {
		return nil, Errf(CodeTimeUp, "time cap reached")
	}
	if len(s.Steps) == 0 {
		return nil, Errf(CodeStepIndexOutOfRange, "session has no steps")
	}

	switch s.WorkoutType {
	case models.WorkoutAmrap:
		e.advanceAmrap(s, p, dir)
	default:
		e.advanceForTime(s, p, dir, now)
	}

	p.UpdatedAt = now
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.changed(classID)
	return p, nil
}

func (e *Engine) advanceForTime(s *models.LiveSession, p *models.ProgressRecord, dir AdvanceDirection, now time.Time) {
	last := len(s.Steps) - 1
	if dir == AdvancePrev {
		if p.Finished {
			// Stepping back off a finish undoes it; the next forward
			// advance records a fresh finish time.
			p.Finished = false
			p.FinishSeconds = 0
			return
		}
		if p.CurrentStepIndex > 0 {
			p.CurrentStepIndex--
		}
		return
	}
	if p.CurrentStepIndex < last {
		p.CurrentStepIndex++
		return
	}
	if !p.Finished {
		p.Finished = true
		p.FinishSeconds = s.Elapsed(now)
	}
}

func (e *Engine) advanceAmrap(s *models.LiveSession, p *models.ProgressRecord, dir AdvanceDirection) {
	n := len(s.Steps)
	if dir == AdvancePrev {
		p.CurrentStepIndex = (p.CurrentStepIndex - 1 + n) % n
	} else {
		p.CurrentStepIndex = (p.CurrentStepIndex + 1) % n
	}
	// The partial belongs to the step just left; its reps are covered
	// by the cumulative count of the new index.
	p.PartialReps = 0
}

// SubmitPartialReps records reps completed so far within the current,
// not-yet-complete step. Last value wins — re-submission overwrites,
// never adds.
func (e *Engine) SubmitPartialReps(ctx context.Context, classID, userID int64, reps int) (*models.ProgressRecord, error) {
	_, p, err := e.loadForProgress(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if reps < 0 {
		return nil, Errf(CodeScoreRequired, "reps must be zero or positive")
	}
	p.PartialReps = reps
	p.UpdatedAt = e.clock()
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.changed(classID)
	return p, nil
}

// PostIntervalScore writes reps for one step of an interval workout.
// Steps may be scored in any order; re-submitting a step overwrites
// the previous value.
func (e *Engine) PostIntervalScore(ctx context.Context, classID, userID int64, stepIndex, reps int) (*models.ProgressRecord, error) {
	s, p, err := e.loadForProgress(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if !s.WorkoutType.IsInterval() {
		return nil, Errf(CodeNotIntervalWorkout, "workout type %s does not take interval scores", s.WorkoutType)
	}
	if err := validateStepIndex(s, stepIndex); err != nil {
		return nil, err
	}
	if reps < 0 {
		return nil, Errf(CodeScoreRequired, "reps must be zero or positive")
	}
	if p.PerStepReps == nil {
		p.PerStepReps = make(map[int]int)
	}
	p.PerStepReps[stepIndex] = reps
	p.TotalReps = p.IntervalTotal()
	p.TotalRepsOverridden = false
	p.UpdatedAt = e.clock()
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.changed(classID)
	return p, nil
}

// PostEmomMark records the outcome of one EMOM minute, overwriting
// any previous mark for that minute. FinishSeconds is clamped to zero
// when negative; nil means the minute's work was not finished in time.
func (e *Engine) PostEmomMark(ctx context.Context, classID, userID int64, mark models.EmomMark) (*models.ProgressRecord, error) {
	s, p, err := e.loadForProgress(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if s.WorkoutType != models.WorkoutEmom {
		return nil, Errf(CodeNotIntervalWorkout, "workout type %s does not take EMOM marks", s.WorkoutType)
	}
	if mark.MinuteIndex < 0 {
		return nil, Errf(CodeInvalidMinuteIndex, "minute index must be zero or positive")
	}
	if mark.FinishSeconds != nil && *mark.FinishSeconds < 0 {
		zero := 0
		mark.FinishSeconds = &zero
	}
	p.SetEmomMark(mark)
	p.UpdatedAt = e.clock()
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.changed(classID)
	return p, nil
}

// SetScaling stores the participant's declared tier. Anything other
// than exactly SC normalizes to RX. Unlike the other participant
// writes it stays writable after the session ends.
func (e *Engine) SetScaling(ctx context.Context, classID, userID int64, scaling string) (*models.ProgressRecord, error) {
	if _, err := e.loadSession(ctx, classID); err != nil {
		return nil, err
	}
	if err := e.requireBooked(ctx, classID, userID); err != nil {
		return nil, err
	}
	p, err := e.loadOrCreateProgress(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	p.Scaling = models.NormalizeScaling(scaling)
	p.UpdatedAt = e.clock()
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.changed(classID)
	return p, nil
}

// GetMyProgress returns the caller's record, defaulted when nothing
// has been submitted yet.
func (e *Engine) GetMyProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error) {
	if _, err := e.loadSession(ctx, classID); err != nil {
		return nil, err
	}
	if err := e.requireBooked(ctx, classID, userID); err != nil {
		return nil, err
	}
	return e.loadOrCreateProgress(ctx, classID, userID)
}

func validateStepIndex(s *models.LiveSession, stepIndex int) error {
	if stepIndex < 0 {
		return Errf(CodeInvalidStepIndex, "step index %d is negative", stepIndex)
	}
	if stepIndex >= len(s.Steps) {
		return Errf(CodeStepIndexOutOfRange, "step index %d out of range (%d steps)", stepIndex, len(s.Steps))
	}
	return nil
}

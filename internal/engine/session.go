package engine

import (
	"context"
	"errors"
	"time"

	"github.com/meltforce/classpulse/internal/models"
)

// SessionView is a session plus its clock readings at request time.
type SessionView struct {
	models.LiveSession
	ElapsedSeconds   int `json:"elapsed_seconds"`
	RemainingSeconds int `json:"remaining_seconds"`
}

func (e *Engine) view(s *models.LiveSession) *SessionView {
	now := e.clock()
	return &SessionView{
		LiveSession:      *s,
		ElapsedSeconds:   s.Elapsed(now),
		RemainingSeconds: s.Remaining(now),
	}
}

// StartSession resolves the class's assigned workout, snapshots its
// steps, and transitions the session to live. The session row is
// upserted: one per class, never duplicated. Starting an already
// running session restarts it and re-snapshots the steps, so a
// workout edited between start calls takes effect on restart.
func (e *Engine) StartSession(ctx context.Context, coachID, classID int64) (*SessionView, error) {
	class, err := e.requireCoach(ctx, classID, coachID)
	if err != nil {
		return nil, err
	}
	if class.WorkoutID <= 0 {
		return nil, Errf(CodeWorkoutNotAssigned, "class %d has no assigned workout", classID)
	}

	def, err := e.workouts.GetWorkout(ctx, class.WorkoutID)
	if err != nil {
		if isNotFound(err) {
			return nil, Errf(CodeWorkoutNotFoundForClass, "workout %d not found for class %d", class.WorkoutID, classID)
		}
		return nil, err
	}
	steps, err := ResolveSteps(def)
	if err != nil {
		return nil, err
	}

	s, err := e.store.GetSession(ctx, classID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		s = &models.LiveSession{ClassID: classID, Status: models.StatusNotStarted}
	}

	s.Start(e.clock(), def.ID, def.Type, def.TimeCapSeconds, steps)
	if err := e.store.PutSession(ctx, s); err != nil {
		return nil, err
	}
	e.log.Info("session started",
		"class_id", classID, "workout_id", def.ID,
		"workout_type", def.Type, "steps", len(steps),
		"time_cap_seconds", def.TimeCapSeconds)
	e.changed(classID)
	return e.view(s), nil
}

// PauseSession suspends the session clock.
func (e *Engine) PauseSession(ctx context.Context, coachID, classID int64) (*SessionView, error) {
	return e.transition(ctx, coachID, classID, "paused", (*models.LiveSession).Pause)
}

// ResumeSession restarts the clock, folding the pause interval into
// the accumulated pause time.
func (e *Engine) ResumeSession(ctx context.Context, coachID, classID int64) (*SessionView, error) {
	return e.transition(ctx, coachID, classID, "resumed", (*models.LiveSession).Resume)
}

// StopSession ends the session. Ended is terminal.
func (e *Engine) StopSession(ctx context.Context, coachID, classID int64) (*SessionView, error) {
	return e.transition(ctx, coachID, classID, "ended", (*models.LiveSession).Stop)
}

func (e *Engine) transition(ctx context.Context, coachID, classID int64, verb string, apply func(*models.LiveSession, time.Time) error) (*SessionView, error) {
	if _, err := e.requireCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	s, err := e.loadSession(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := apply(s, e.clock()); err != nil {
		return nil, transitionError(err)
	}
	if err := e.store.PutSession(ctx, s); err != nil {
		return nil, err
	}
	e.log.Info("session "+verb, "class_id", classID, "elapsed_seconds", s.Elapsed(e.clock()))
	e.changed(classID)
	return e.view(s), nil
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, models.ErrNotLive):
		return Errf(CodeNotLive, "session is not live")
	case errors.Is(err, models.ErrNotPaused):
		return Errf(CodeNotPaused, "session is not paused")
	case errors.Is(err, models.ErrAlreadyEnded):
		return Errf(CodeAlreadyEnded, "session has already ended")
	}
	return err
}

// GetSession returns the session with live clock readings. This is
// the poll endpoint participants hit during a class.
func (e *Engine) GetSession(ctx context.Context, classID int64) (*SessionView, error) {
	s, err := e.loadSession(ctx, classID)
	if err != nil {
		return nil, err
	}
	return e.view(s), nil
}

// LiveClassSummary is one row of the running-classes listing: the
// session without its step snapshot, plus clock readings.
type LiveClassSummary struct {
	ClassID          int64                `json:"class_id"`
	WorkoutID        int64                `json:"workout_id"`
	WorkoutType      models.WorkoutType   `json:"workout_type"`
	Status           models.SessionStatus `json:"status"`
	TimeCapSeconds   int                  `json:"time_cap_seconds"`
	ElapsedSeconds   int                  `json:"elapsed_seconds"`
	RemainingSeconds int                  `json:"remaining_seconds"`
}

// ListLiveClasses returns every class whose session is currently live
// or paused, ordered by class id. Always non-nil, empty when nothing
// is running.
func (e *Engine) ListLiveClasses(ctx context.Context) ([]LiveClassSummary, error) {
	sessions, err := e.store.ListActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	out := make([]LiveClassSummary, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		out = append(out, LiveClassSummary{
			ClassID:          s.ClassID,
			WorkoutID:        s.WorkoutID,
			WorkoutType:      s.WorkoutType,
			Status:           s.Status,
			TimeCapSeconds:   s.TimeCapSeconds,
			ElapsedSeconds:   s.Elapsed(now),
			RemainingSeconds: s.Remaining(now),
		})
	}
	return out, nil
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meltforce/classpulse/internal/models"
)

// SessionStore persists live sessions, progress records, and coach
// notes. Implementations wrap missing rows in ErrNotFound and
// transient failures in ErrUnavailable.
type SessionStore interface {
	GetSession(ctx context.Context, classID int64) (*models.LiveSession, error)
	PutSession(ctx context.Context, s *models.LiveSession) error
	GetProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error)
	PutProgress(ctx context.Context, p *models.ProgressRecord) error
	ListProgress(ctx context.Context, classID int64) ([]models.ProgressRecord, error)
	GetCoachNote(ctx context.Context, classID int64) (*models.CoachNote, error)
	PutCoachNote(ctx context.Context, n *models.CoachNote) error
	ListEndedSessions(ctx context.Context, since time.Time) ([]models.LiveSession, error)
	ListActiveSessions(ctx context.Context) ([]models.LiveSession, error)
}

// ClassDirectory answers booking questions the engine does not own:
// class existence, the assigned coach, and who is booked.
type ClassDirectory interface {
	GetClass(ctx context.Context, classID int64) (*models.Class, error)
	IsBooked(ctx context.Context, classID, userID int64) (bool, error)
	ListBooked(ctx context.Context, classID int64) ([]int64, error)
}

// WorkoutCatalog reads authored workout definitions. Consumed only
// at session start.
type WorkoutCatalog interface {
	GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutDefinition, error)
}

// Notifier is told after every committed session or progress write so
// push surfaces (the SSE watch hub) can fan out. May be nil.
type Notifier interface {
	SessionChanged(classID int64)
}

// Engine wires the stores to the session, progress, leaderboard, and
// coach-override operations.
type Engine struct {
	store    SessionStore
	classes  ClassDirectory
	workouts WorkoutCatalog
	notify   Notifier
	clock    func() time.Time
	log      *slog.Logger
}

// New creates an Engine. notify may be nil.
func New(store SessionStore, classes ClassDirectory, workouts WorkoutCatalog, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		classes:  classes,
		workouts: workouts,
		clock:    time.Now,
		log:      log,
	}
}

// SetNotifier attaches a change notifier (the SSE hub).
func (e *Engine) SetNotifier(n Notifier) { e.notify = n }

// SetClock overrides the time source. Tests use this to drive the
// pause/elapsed accounting deterministically.
func (e *Engine) SetClock(clock func() time.Time) { e.clock = clock }

func (e *Engine) changed(classID int64) {
	if e.notify != nil {
		e.notify.SessionChanged(classID)
	}
}

// requireBooked fails with NOT_BOOKED unless userID is booked into
// classID. Booking is an external fact the engine queries but does
// not own.
func (e *Engine) requireBooked(ctx context.Context, classID, userID int64) error {
	booked, err := e.classes.IsBooked(ctx, classID, userID)
	if err != nil {
		return err
	}
	if !booked {
		return Errf(CodeNotBooked, "user %d is not booked into class %d", userID, classID)
	}
	return nil
}

// requireCoach fails with NOT_CLASS_COACH unless userID is the
// assigned coach of classID.
func (e *Engine) requireCoach(ctx context.Context, classID, userID int64) (*models.Class, error) {
	class, err := e.classes.GetClass(ctx, classID)
	if err != nil {
		if isNotFound(err) {
			return nil, Errf(CodeClassNotFound, "class %d not found", classID)
		}
		return nil, err
	}
	if class.CoachID != userID {
		return nil, Errf(CodeNotClassCoach, "user %d is not the coach of class %d", userID, classID)
	}
	return class, nil
}

// loadSession fetches the session row, translating a missing row to
// SESSION_NOT_FOUND.
func (e *Engine) loadSession(ctx context.Context, classID int64) (*models.LiveSession, error) {
	s, err := e.store.GetSession(ctx, classID)
	if err != nil {
		if isNotFound(err) {
			return nil, Errf(CodeSessionNotFound, "no session for class %d", classID)
		}
		return nil, err
	}
	return s, nil
}

// loadOrCreateProgress returns the participant's record, creating the
// default lazily on first touch.
func (e *Engine) loadOrCreateProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error) {
	p, err := e.store.GetProgress(ctx, classID, userID)
	if err != nil {
		if isNotFound(err) {
			return models.NewProgressRecord(classID, userID), nil
		}
		return nil, err
	}
	return p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

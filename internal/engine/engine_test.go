package engine_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
	"github.com/meltforce/classpulse/internal/storage/memory"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

const (
	classID = int64(1)
	coachID = int64(100)
)

// fakeClock is a settable time source shared with the engine.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// triRoundDef is a 3x(5-10-15) workout of the given type: 9 steps,
// cumulative reps 5,15,30,35,45,60,65,75,90.
func triRoundDef(id int64, typ models.WorkoutType, timeCap int) *models.WorkoutDefinition {
	rounds := make([]models.Round, 3)
	for i := range rounds {
		rounds[i] = models.Round{
			Number: i + 1,
			Subrounds: []models.Subround{{
				Number: 1,
				Exercises: []models.Exercise{
					{Name: "Pull-ups", Reps: 5},
					{Name: "Push-ups", Reps: 10},
					{Name: "Air Squats", Reps: 15},
				},
			}},
		}
	}
	return &models.WorkoutDefinition{
		ID: id, Name: "Grinder", Type: typ, TimeCapSeconds: timeCap, Rounds: rounds,
	}
}

// newTestEngine seeds class 1 (coach 100, athletes 1..3) running a
// workout of the given type and returns the engine, its store, and a
// clock frozen at t0.
func newTestEngine(t *testing.T, typ models.WorkoutType) (*engine.Engine, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.New()
	store.SeedClass(
		models.Class{ID: classID, CoachID: coachID, WorkoutID: 10},
		[]int64{1, 2, 3},
		triRoundDef(10, typ, 900),
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store, store, store, log)
	clk := &fakeClock{t: t0}
	eng.SetClock(clk.Now)
	return eng, store, clk
}

// startTestSession starts the seeded class's session as the coach.
func startTestSession(t *testing.T, eng *engine.Engine) *engine.SessionView {
	t.Helper()
	view, err := eng.StartSession(context.Background(), coachID, classID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return view
}

// wantCode asserts err carries the expected failure code.
func wantCode(t *testing.T, err error, code engine.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if got := engine.CodeOf(err); got != code {
		t.Fatalf("error code = %s, want %s (err: %v)", got, code, err)
	}
}

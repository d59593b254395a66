// Package memory is an in-memory implementation of the engine store
// interfaces. It backs the -dev server mode and the unit tests, where
// a PostgreSQL pool would be overhead without coverage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
)

// Store holds everything behind one mutex. Copies go in and out so
// callers never share interior state.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]models.LiveSession
	progress map[progressKey]models.ProgressRecord
	notes    map[int64]models.CoachNote
	classes  map[int64]models.Class
	bookings map[int64][]int64
	workouts map[int64]models.WorkoutDefinition
}

type progressKey struct {
	classID int64
	userID  int64
}

var (
	_ engine.SessionStore   = (*Store)(nil)
	_ engine.ClassDirectory = (*Store)(nil)
	_ engine.WorkoutCatalog = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[int64]models.LiveSession),
		progress: make(map[progressKey]models.ProgressRecord),
		notes:    make(map[int64]models.CoachNote),
		classes:  make(map[int64]models.Class),
		bookings: make(map[int64][]int64),
		workouts: make(map[int64]models.WorkoutDefinition),
	}
}

// SeedClass registers a class, its bookings, and optionally its
// workout definition. Dev mode and tests arrange fixtures with this.
func (s *Store) SeedClass(class models.Class, bookedUserIDs []int64, def *models.WorkoutDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[class.ID] = class
	s.bookings[class.ID] = append([]int64(nil), bookedUserIDs...)
	if def != nil {
		s.workouts[def.ID] = *def
	}
}

func (s *Store) GetSession(_ context.Context, classID int64) (*models.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[classID]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", classID, engine.ErrNotFound)
	}
	cp := sess
	cp.Steps = append([]models.Step(nil), sess.Steps...)
	return &cp, nil
}

func (s *Store) PutSession(_ context.Context, sess *models.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Steps = append([]models.Step(nil), sess.Steps...)
	s.sessions[sess.ClassID] = cp
	return nil
}

func (s *Store) ListEndedSessions(_ context.Context, since time.Time) ([]models.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LiveSession
	for _, sess := range s.sessions {
		if sess.Status == models.StatusEnded && sess.EndedAt != nil && !sess.EndedAt.Before(since) {
			cp := sess
			cp.Steps = append([]models.Step(nil), sess.Steps...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.Before(*out[j].EndedAt) })
	return out, nil
}

func (s *Store) ListActiveSessions(_ context.Context) ([]models.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LiveSession
	for _, sess := range s.sessions {
		if sess.Status == models.StatusLive || sess.Status == models.StatusPaused {
			cp := sess
			cp.Steps = append([]models.Step(nil), sess.Steps...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

func (s *Store) GetProgress(_ context.Context, classID, userID int64) (*models.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressKey{classID, userID}]
	if !ok {
		return nil, fmt.Errorf("progress %d/%d: %w", classID, userID, engine.ErrNotFound)
	}
	cp := copyProgress(p)
	return &cp, nil
}

func (s *Store) PutProgress(_ context.Context, p *models.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{p.ClassID, p.UserID}] = copyProgress(*p)
	return nil
}

func (s *Store) ListProgress(_ context.Context, classID int64) ([]models.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProgressRecord
	for key, p := range s.progress {
		if key.classID == classID {
			out = append(out, copyProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) GetCoachNote(_ context.Context, classID int64) (*models.CoachNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[classID]
	if !ok {
		return nil, fmt.Errorf("coach note %d: %w", classID, engine.ErrNotFound)
	}
	cp := n
	return &cp, nil
}

func (s *Store) PutCoachNote(_ context.Context, n *models.CoachNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ClassID] = *n
	return nil
}

func (s *Store) GetClass(_ context.Context, classID int64) (*models.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[classID]
	if !ok {
		return nil, fmt.Errorf("class %d: %w", classID, engine.ErrNotFound)
	}
	cp := c
	return &cp, nil
}

func (s *Store) IsBooked(_ context.Context, classID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range s.bookings[classID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListBooked(_ context.Context, classID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.bookings[classID]...), nil
}

func (s *Store) GetWorkout(_ context.Context, workoutID int64) (*models.WorkoutDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.workouts[workoutID]
	if !ok {
		return nil, fmt.Errorf("workout %d: %w", workoutID, engine.ErrNotFound)
	}
	cp := def
	cp.Rounds = append([]models.Round(nil), def.Rounds...)
	return &cp, nil
}

func copyProgress(p models.ProgressRecord) models.ProgressRecord {
	cp := p
	if p.PerStepReps != nil {
		cp.PerStepReps = make(map[int]int, len(p.PerStepReps))
		for k, v := range p.PerStepReps {
			cp.PerStepReps[k] = v
		}
	}
	cp.EmomMarks = append([]models.EmomMark(nil), p.EmomMarks...)
	return cp
}

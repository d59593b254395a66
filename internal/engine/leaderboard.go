package engine

import (
	"context"
	"sort"

	"github.com/meltforce/classpulse/internal/models"
)

// LeaderboardEntry is one ranked participant. Score is the modality's
// primary number: progress reps for FOR_TIME/AMRAP, total reps for
// INTERVAL/TABATA, minutes finished for EMOM.
type LeaderboardEntry struct {
	Rank            int            `json:"rank"`
	UserID          int64          `json:"user_id"`
	Scaling         models.Scaling `json:"scaling"`
	Finished        bool           `json:"finished"`
	FinishSeconds   int            `json:"finish_seconds,omitempty"`
	Score           int            `json:"score"`
	PartialReps     int            `json:"partial_reps,omitempty"`
	CurrentStep     int            `json:"current_step"`
	MinutesFinished int            `json:"minutes_finished,omitempty"`
}

// Leaderboard is the derived read model over all booked participants.
// It is recomputed from current progress on every call; reads always
// reflect the latest committed write.
type Leaderboard struct {
	ClassID          int64                `json:"class_id"`
	WorkoutType      models.WorkoutType   `json:"workout_type"`
	Status           models.SessionStatus `json:"status"`
	ElapsedSeconds   int                  `json:"elapsed_seconds"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Entries          []LeaderboardEntry   `json:"entries"`
}

// RealtimeLeaderboard ranks every booked participant of the class by
// the session's modality. A class with no session yet answers
// WORKOUT_NOT_FOUND_FOR_CLASS (permanent 404); transient store
// failures surface as DB_CONNECTION_RESET (retryable 503).
func (e *Engine) RealtimeLeaderboard(ctx context.Context, classID int64) (*Leaderboard, error) {
	s, err := e.store.GetSession(ctx, classID)
	if err != nil {
		if isNotFound(err) {
			return nil, Errf(CodeWorkoutNotFoundForClass, "no workout session for class %d", classID)
		}
		return nil, err
	}
	return e.computeLeaderboard(ctx, s)
}

// IntervalLeaderboard is the realtime leaderboard restricted to
// interval-type sessions.
func (e *Engine) IntervalLeaderboard(ctx context.Context, classID int64) (*Leaderboard, error) {
	lb, err := e.RealtimeLeaderboard(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !lb.WorkoutType.IsInterval() {
		return nil, Errf(CodeNotIntervalWorkout, "class %d is running a %s workout", classID, lb.WorkoutType)
	}
	return lb, nil
}

// FinalLeaderboard is the terminal-state read path: it answers only
// once the session has ended, so the result is the settled ranking
// (post coach corrections) rather than a moving one.
func (e *Engine) FinalLeaderboard(ctx context.Context, classID int64) (*Leaderboard, error) {
	lb, err := e.RealtimeLeaderboard(ctx, classID)
	if err != nil {
		return nil, err
	}
	if lb.Status != models.StatusEnded {
		return nil, Errf(CodeNotEnded, "session for class %d has not ended", classID)
	}
	return lb, nil
}

func (e *Engine) computeLeaderboard(ctx context.Context, s *models.LiveSession) (*Leaderboard, error) {
	booked, err := e.classes.ListBooked(ctx, s.ClassID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.ListProgress(ctx, s.ClassID)
	if err != nil {
		return nil, err
	}

	byUser := make(map[int64]*models.ProgressRecord, len(records))
	for i := range records {
		byUser[records[i].UserID] = &records[i]
	}
	// Booked participants without a record rank with defaults; a
	// record for an unbooked user (booking cancelled mid-class) still
	// shows rather than vanishing from the board.
	participants := make([]*models.ProgressRecord, 0, len(booked))
	seen := make(map[int64]bool, len(booked))
	for _, uid := range booked {
		seen[uid] = true
		if p, ok := byUser[uid]; ok {
			participants = append(participants, p)
		} else {
			participants = append(participants, models.NewProgressRecord(s.ClassID, uid))
		}
	}
	for i := range records {
		if !seen[records[i].UserID] {
			participants = append(participants, &records[i])
		}
	}

	now := e.clock()
	lb := &Leaderboard{
		ClassID:          s.ClassID,
		WorkoutType:      s.WorkoutType,
		Status:           s.Status,
		ElapsedSeconds:   s.Elapsed(now),
		RemainingSeconds: s.Remaining(now),
	}
	switch {
	case s.WorkoutType == models.WorkoutForTime:
		lb.Entries = rankForTime(s, participants)
	case s.WorkoutType == models.WorkoutAmrap:
		lb.Entries = rankAmrap(s, participants)
	case s.WorkoutType.IsInterval():
		lb.Entries = rankInterval(participants)
	case s.WorkoutType == models.WorkoutEmom:
		lb.Entries = rankEmom(participants)
	default:
		lb.Entries = rankAmrap(s, participants)
	}
	for i := range lb.Entries {
		lb.Entries[i].Rank = i + 1
	}
	return lb, nil
}

// progressScore is the shared FOR_TIME/AMRAP progress number:
// cumulative reps of the current step plus the in-step partial. A
// coach-overridden TotalReps takes precedence as the final value,
// including an override to zero.
func progressScore(s *models.LiveSession, p *models.ProgressRecord) int {
	if p.TotalRepsOverridden {
		return p.TotalReps
	}
	cum := s.CumReps()
	if len(cum) == 0 {
		return p.PartialReps
	}
	idx := p.CurrentStepIndex
	if idx >= len(cum) {
		idx = len(cum) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return cum[idx] + p.PartialReps
}

// rankForTime: finished athletes first by ascending finish time, then
// everyone still on the floor by descending progress.
func rankForTime(s *models.LiveSession, ps []*models.ProgressRecord) []LeaderboardEntry {
	entries := baseEntries(s, ps)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			if a.FinishSeconds != b.FinishSeconds {
				return a.FinishSeconds < b.FinishSeconds
			}
		} else if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.UserID < b.UserID
	})
	return entries
}

func rankAmrap(s *models.LiveSession, ps []*models.ProgressRecord) []LeaderboardEntry {
	entries := baseEntries(s, ps)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

func rankInterval(ps []*models.ProgressRecord) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(ps))
	for _, p := range ps {
		// The per-step sum is the score unless the coach fixed the
		// total outright.
		score := p.IntervalTotal()
		if p.TotalRepsOverridden {
			score = p.TotalReps
		}
		entries = append(entries, LeaderboardEntry{
			UserID:      p.UserID,
			Scaling:     p.Scaling,
			Score:       score,
			CurrentStep: p.CurrentStepIndex,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// rankEmom orders by minutes finished, breaking ties by the lower
// average finish time across finished minutes, then by user id. The
// average tie-break is a documented clarification: athletes who kept
// more seconds in hand rank ahead on equal minute counts.
func rankEmom(ps []*models.ProgressRecord) []LeaderboardEntry {
	type emomEntry struct {
		LeaderboardEntry
		avg    float64
		hasAvg bool
	}
	entries := make([]emomEntry, 0, len(ps))
	for _, p := range ps {
		avg, ok := p.EmomAvgFinishSeconds()
		entries = append(entries, emomEntry{
			LeaderboardEntry: LeaderboardEntry{
				UserID:          p.UserID,
				Scaling:         p.Scaling,
				Score:           p.EmomFinishedCount(),
				MinutesFinished: p.EmomFinishedCount(),
			},
			avg:    avg,
			hasAvg: ok,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.hasAvg && b.hasAvg && a.avg != b.avg {
			return a.avg < b.avg
		}
		if a.hasAvg != b.hasAvg {
			return a.hasAvg
		}
		return a.UserID < b.UserID
	})
	out := make([]LeaderboardEntry, len(entries))
	for i := range entries {
		out[i] = entries[i].LeaderboardEntry
	}
	return out
}

func baseEntries(s *models.LiveSession, ps []*models.ProgressRecord) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(ps))
	for _, p := range ps {
		entries = append(entries, LeaderboardEntry{
			UserID:        p.UserID,
			Scaling:       p.Scaling,
			Finished:      p.Finished,
			FinishSeconds: p.FinishSeconds,
			Score:         progressScore(s, p),
			PartialReps:   p.PartialReps,
			CurrentStep:   p.CurrentStepIndex,
		})
	}
	return entries
}

package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/meltforce/classpulse/internal/models"
)

// OverrideKind tags what a coach override writes.
type OverrideKind string

const (
	OverrideForTimeFinish OverrideKind = "for_time_finish"
	OverrideForTimeReps   OverrideKind = "for_time_reps"
	OverrideAmrapTotal    OverrideKind = "amrap_total"
	OverrideIntervalScore OverrideKind = "interval_score"
	OverrideIntervalTotal OverrideKind = "interval_total"
	OverrideEmomMark      OverrideKind = "emom_mark"
)

// OverrideCommand is the consolidated coach correction. Every
// override runs through the one handler below: assigned-coach and
// booked-target checks always apply, and RequireEnded is the single
// policy flag deciding whether the session must have terminated.
// The ended-only route family sets it; the general family leaves it
// off, which keeps live-session corrections possible.
type OverrideCommand struct {
	Kind         OverrideKind     `json:"kind"`
	TargetUserID int64            `json:"target_user_id"`
	RequireEnded bool             `json:"-"`
	FinishSecs   int              `json:"finish_seconds,omitempty"`
	TotalReps    int              `json:"total_reps,omitempty"`
	StepIndex    int              `json:"step_index,omitempty"`
	Reps         int              `json:"reps,omitempty"`
	Mark         *models.EmomMark `json:"mark,omitempty"`
}

// CoachOverride corrects or backfills a participant's result on the
// coach's authority. Unlike participant writes it ignores the time
// cap and, unless RequireEnded is set, the lifecycle state.
func (e *Engine) CoachOverride(ctx context.Context, coachID, classID int64, cmd OverrideCommand) (*models.ProgressRecord, error) {
	if _, err := e.requireCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	s, err := e.loadSession(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cmd.RequireEnded && s.Status != models.StatusEnded {
		return nil, Errf(CodeNotEnded, "session for class %d has not ended", classID)
	}
	if err := e.requireBooked(ctx, classID, cmd.TargetUserID); err != nil {
		return nil, err
	}
	p, err := e.loadOrCreateProgress(ctx, classID, cmd.TargetUserID)
	if err != nil {
		return nil, err
	}

	switch cmd.Kind {
	case OverrideForTimeFinish:
		if cmd.FinishSecs < 0 {
			return nil, Errf(CodeScoreRequired, "finish seconds must be zero or positive")
		}
		p.Finished = true
		p.FinishSeconds = cmd.FinishSecs
	case OverrideForTimeReps:
		if cmd.TotalReps < 0 {
			return nil, Errf(CodeScoreRequired, "total reps must be zero or positive")
		}
		p.Finished = false
		p.FinishSeconds = 0
		p.TotalReps = cmd.TotalReps
		p.TotalRepsOverridden = true
	case OverrideAmrapTotal, OverrideIntervalTotal:
		if cmd.TotalReps < 0 {
			return nil, Errf(CodeScoreRequired, "total reps must be zero or positive")
		}
		p.TotalReps = cmd.TotalReps
		p.TotalRepsOverridden = true
	case OverrideIntervalScore:
		if err := validateStepIndex(s, cmd.StepIndex); err != nil {
			return nil, err
		}
		if cmd.Reps < 0 {
			return nil, Errf(CodeScoreRequired, "reps must be zero or positive")
		}
		if p.PerStepReps == nil {
			p.PerStepReps = make(map[int]int)
		}
		p.PerStepReps[cmd.StepIndex] = cmd.Reps
		// A per-step correction re-derives the total, replacing any
		// earlier fixed-total override.
		p.TotalReps = p.IntervalTotal()
		p.TotalRepsOverridden = false
	case OverrideEmomMark:
		if cmd.Mark == nil {
			return nil, Errf(CodeScoreRequired, "emom mark payload is required")
		}
		mark := *cmd.Mark
		if mark.MinuteIndex < 0 {
			return nil, Errf(CodeInvalidMinuteIndex, "minute index must be zero or positive")
		}
		if mark.FinishSeconds != nil && *mark.FinishSeconds < 0 {
			zero := 0
			mark.FinishSeconds = &zero
		}
		p.SetEmomMark(mark)
	default:
		return nil, Errf(CodeScoreRequired, "unknown override kind %q", cmd.Kind)
	}

	p.UpdatedAt = e.clock()
	if err := e.store.PutProgress(ctx, p); err != nil {
		return nil, err
	}
	e.log.Info("coach override",
		"class_id", classID, "coach_id", coachID,
		"target_user_id", cmd.TargetUserID, "kind", cmd.Kind,
		"ended_only", cmd.RequireEnded)
	e.changed(classID)
	return p, nil
}

// GetCoachNote reads the note attached to a class session. Missing
// notes read as empty rather than 404.
func (e *Engine) GetCoachNote(ctx context.Context, coachID, classID int64) (*models.CoachNote, error) {
	if _, err := e.requireCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	n, err := e.store.GetCoachNote(ctx, classID)
	if err != nil {
		if isNotFound(err) {
			return &models.CoachNote{ClassID: classID}, nil
		}
		return nil, err
	}
	return n, nil
}

// SetCoachNote overwrites the note. No version history; the revision
// id changes on every write.
func (e *Engine) SetCoachNote(ctx context.Context, coachID, classID int64, note string) (*models.CoachNote, error) {
	if _, err := e.requireCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	n := &models.CoachNote{
		ClassID:   classID,
		Note:      note,
		Revision:  uuid.NewString(),
		UpdatedAt: e.clock(),
	}
	if err := e.store.PutCoachNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

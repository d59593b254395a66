package models

import "time"

// Scaling is a participant's self-declared difficulty tier.
type Scaling string

const (
	ScalingRX Scaling = "RX" // as prescribed
	ScalingSC Scaling = "SC" // scaled
)

// NormalizeScaling maps any input to RX unless it is exactly SC.
func NormalizeScaling(s string) Scaling {
	if Scaling(s) == ScalingSC {
		return ScalingSC
	}
	return ScalingRX
}

// EmomMark records one minute of an EMOM workout. FinishSeconds is
// nil while the minute's work is unfinished.
type EmomMark struct {
	MinuteIndex        int  `json:"minute_index"`
	Finished           bool `json:"finished"`
	FinishSeconds      *int `json:"finish_seconds,omitempty"`
	ExercisesCompleted int  `json:"exercises_completed"`
	ExercisesTotal     int  `json:"exercises_total"`
}

// ProgressRecord is one booked participant's progress in one class
// session, keyed by (ClassID, UserID). Each participant owns their
// row exclusively; no cross-participant locking is ever needed.
type ProgressRecord struct {
	ClassID          int64       `json:"class_id"`
	UserID           int64       `json:"user_id"`
	CurrentStepIndex int         `json:"current_step_index"`
	Finished         bool        `json:"finished"`
	FinishSeconds    int         `json:"finish_seconds"`
	TotalReps        int         `json:"total_reps"`
	// TotalRepsOverridden marks TotalReps as a coach-entered final
	// value rather than a derived running total. It makes an override
	// to zero distinguishable from the default.
	TotalRepsOverridden bool        `json:"total_reps_overridden,omitempty"`
	PartialReps         int         `json:"partial_reps"`
	PerStepReps         map[int]int `json:"per_step_reps,omitempty"`
	EmomMarks           []EmomMark  `json:"emom_marks,omitempty"`
	Scaling             Scaling     `json:"scaling"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewProgressRecord returns the default record created lazily on a
// participant's first submission (or when the leaderboard needs one).
func NewProgressRecord(classID, userID int64) *ProgressRecord {
	return &ProgressRecord{
		ClassID: classID,
		UserID:  userID,
		Scaling: ScalingRX,
	}
}

// IntervalTotal sums all per-step reps (INTERVAL/TABATA score).
func (p *ProgressRecord) IntervalTotal() int {
	total := 0
	for _, reps := range p.PerStepReps {
		total += reps
	}
	return total
}

// SetEmomMark inserts or overwrites the mark for its minute, keeping
// marks ordered by minute index.
func (p *ProgressRecord) SetEmomMark(mark EmomMark) {
	for i, m := range p.EmomMarks {
		if m.MinuteIndex == mark.MinuteIndex {
			p.EmomMarks[i] = mark
			return
		}
	}
	pos := len(p.EmomMarks)
	for i, m := range p.EmomMarks {
		if m.MinuteIndex > mark.MinuteIndex {
			pos = i
			break
		}
	}
	p.EmomMarks = append(p.EmomMarks, EmomMark{})
	copy(p.EmomMarks[pos+1:], p.EmomMarks[pos:])
	p.EmomMarks[pos] = mark
}

// EmomFinishedCount returns how many minutes are marked finished.
func (p *ProgressRecord) EmomFinishedCount() int {
	n := 0
	for _, m := range p.EmomMarks {
		if m.Finished {
			n++
		}
	}
	return n
}

// EmomAvgFinishSeconds averages FinishSeconds over finished minutes
// that carry one. Returns false when no such minute exists.
func (p *ProgressRecord) EmomAvgFinishSeconds() (float64, bool) {
	sum, n := 0, 0
	for _, m := range p.EmomMarks {
		if m.Finished && m.FinishSeconds != nil {
			sum += *m.FinishSeconds
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

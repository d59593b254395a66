package engine_test

import (
	"context"
	"testing"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
)

// TestOverrideAuthorization verifies only the assigned coach can
// override, and only for booked targets.
func TestOverrideAuthorization(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutForTime)
	ctx := context.Background()
	startTestSession(t, eng)

	_, err := eng.CoachOverride(ctx, 1, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeFinish, TargetUserID: 2, FinishSecs: 100,
	})
	wantCode(t, err, engine.CodeNotClassCoach)

	_, err = eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeFinish, TargetUserID: 55, FinishSecs: 100,
	})
	wantCode(t, err, engine.CodeNotBooked)
}

// TestOverrideEndedOnlyGate verifies the ended-only override family is
// rejected while the session is still live, then accepted after stop.
func TestOverrideEndedOnlyGate(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutAmrap)
	ctx := context.Background()
	startTestSession(t, eng)

	cmd := engine.OverrideCommand{
		Kind: engine.OverrideAmrapTotal, TargetUserID: 2, TotalReps: 150,
		RequireEnded: true,
	}
	_, err := eng.CoachOverride(ctx, coachID, classID, cmd)
	wantCode(t, err, engine.CodeNotEnded)

	if _, err := eng.StopSession(ctx, coachID, classID); err != nil {
		t.Fatal(err)
	}
	p, err := eng.CoachOverride(ctx, coachID, classID, cmd)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalReps != 150 {
		t.Errorf("total = %d, want 150", p.TotalReps)
	}
}

// TestOverrideForTimeFinish verifies the coach can force a finish with
// an explicit time, bypassing the time cap.
func TestOverrideForTimeFinish(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutForTime)
	ctx := context.Background()
	startTestSession(t, eng)

	p, err := eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeFinish, TargetUserID: 1, FinishSecs: 412,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Finished || p.FinishSeconds != 412 {
		t.Errorf("record = %v/%d, want finished at 412", p.Finished, p.FinishSeconds)
	}

	_, err = eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeFinish, TargetUserID: 1, FinishSecs: -1,
	})
	wantCode(t, err, engine.CodeScoreRequired)
}

// TestOverrideForTimeReps verifies the capped-athlete correction: a
// rep total replaces any finish state.
func TestOverrideForTimeReps(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutForTime)
	ctx := context.Background()
	startTestSession(t, eng)

	if _, err := eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeFinish, TargetUserID: 1, FinishSecs: 400,
	}); err != nil {
		t.Fatal(err)
	}
	p, err := eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideForTimeReps, TargetUserID: 1, TotalReps: 72,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Finished || p.FinishSeconds != 0 || p.TotalReps != 72 {
		t.Errorf("record = %+v, want unfinished with 72 reps", p)
	}
}

// TestOverrideIntervalScore verifies the coach can backfill one
// interval step, with the step index validated against the snapshot.
func TestOverrideIntervalScore(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutInterval)
	ctx := context.Background()
	startTestSession(t, eng)

	p, err := eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideIntervalScore, TargetUserID: 2, StepIndex: 3, Reps: 18,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.PerStepReps[3] != 18 || p.TotalReps != 18 {
		t.Errorf("record = %+v, want step 3 = 18", p)
	}

	_, err = eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideIntervalScore, TargetUserID: 2, StepIndex: 99, Reps: 5,
	})
	wantCode(t, err, engine.CodeStepIndexOutOfRange)
}

// TestOverrideEmomMark verifies the coach mark write and the payload
// requirement.
func TestOverrideEmomMark(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutEmom)
	ctx := context.Background()
	startTestSession(t, eng)

	secs := 42
	p, err := eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideEmomMark, TargetUserID: 1,
		Mark: &models.EmomMark{MinuteIndex: 2, Finished: true, FinishSeconds: &secs},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.EmomFinishedCount() != 1 {
		t.Errorf("finished count = %d, want 1", p.EmomFinishedCount())
	}

	_, err = eng.CoachOverride(ctx, coachID, classID, engine.OverrideCommand{
		Kind: engine.OverrideEmomMark, TargetUserID: 1,
	})
	wantCode(t, err, engine.CodeScoreRequired)
}

// TestOverrideUnknownKind verifies an unrecognized kind is rejected.
func TestOverrideUnknownKind(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutForTime)
	startTestSession(t, eng)

	_, err := eng.CoachOverride(context.Background(), coachID, classID, engine.OverrideCommand{
		Kind: "bogus", TargetUserID: 1,
	})
	wantCode(t, err, engine.CodeScoreRequired)
}

// TestCoachNoteRoundTrip verifies notes read empty before any write
// and the revision changes on every save.
func TestCoachNoteRoundTrip(t *testing.T) {
	eng, _, _ := newTestEngine(t, models.WorkoutForTime)
	ctx := context.Background()

	n, err := eng.GetCoachNote(ctx, coachID, classID)
	if err != nil {
		t.Fatal(err)
	}
	if n.Note != "" || n.Revision != "" {
		t.Errorf("unwritten note = %+v, want empty", n)
	}

	first, err := eng.SetCoachNote(ctx, coachID, classID, "watch athlete 2's squat depth")
	if err != nil {
		t.Fatal(err)
	}
	if first.Revision == "" {
		t.Error("revision missing after write")
	}

	second, err := eng.SetCoachNote(ctx, coachID, classID, "updated")
	if err != nil {
		t.Fatal(err)
	}
	if second.Revision == first.Revision {
		t.Error("revision did not change on rewrite")
	}

	got, err := eng.GetCoachNote(ctx, coachID, classID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Note != "updated" || got.Revision != second.Revision {
		t.Errorf("read back = %+v", got)
	}

	// Only the coach reads or writes notes
	_, err = eng.GetCoachNote(ctx, 1, classID)
	wantCode(t, err, engine.CodeNotClassCoach)
}

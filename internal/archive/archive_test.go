package archive

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
	"github.com/meltforce/classpulse/internal/storage/memory"
)

// seedEndedClass starts and stops a one-round FOR_TIME session for
// class 1 with two booked athletes and returns the wired engine/store.
func seedEndedClass(t *testing.T) (*engine.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.SeedClass(
		models.Class{ID: 1, CoachID: 100, WorkoutID: 10},
		[]int64{1, 2},
		&models.WorkoutDefinition{
			ID: 10, Name: "Sprint", Type: models.WorkoutForTime, TimeCapSeconds: 300,
			Rounds: []models.Round{{
				Number: 1,
				Subrounds: []models.Subround{{
					Number:    1,
					Exercises: []models.Exercise{{Name: "Burpees", Reps: 30}},
				}},
			}},
		},
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store, store, store, log)

	ctx := context.Background()
	if _, err := eng.StartSession(ctx, 100, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.AdvanceStep(ctx, 1, 1, engine.AdvanceNext); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.StopSession(ctx, 100, 1); err != nil {
		t.Fatal(err)
	}
	return eng, store
}

// TestExporterRun verifies a full export pass: the ended session and
// its final leaderboard land in the SQLite archive, and re-running is
// idempotent.
func TestExporterRun(t *testing.T) {
	eng, store := seedEndedClass(t)

	arch, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer arch.Close()

	ex := &Exporter{Engine: eng, Store: store, Archive: arch}
	ctx := context.Background()
	since := time.Now().Add(-time.Hour)

	res, err := ex.Run(ctx, since)
	if err != nil {
		t.Fatal(err)
	}
	if res.Archived != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v, want 1 archived", res)
	}
	if res.Batch == "" {
		t.Error("batch id missing")
	}

	n, err := arch.CountSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("archived sessions = %d, want 1", n)
	}

	// Second pass replaces, never duplicates
	if _, err := ex.Run(ctx, since); err != nil {
		t.Fatal(err)
	}
	n, err = arch.CountSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("after re-run: archived sessions = %d, want 1", n)
	}
}

// TestExporterSinceFilter verifies sessions ended before the cutoff
// are left alone.
func TestExporterSinceFilter(t *testing.T) {
	eng, store := seedEndedClass(t)

	arch, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer arch.Close()

	ex := &Exporter{Engine: eng, Store: store, Archive: arch}
	res, err := ex.Run(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if res.Archived != 0 {
		t.Errorf("archived = %d, want 0 (cutoff in the future)", res.Archived)
	}
}

// TestArchiveSessionResults verifies the per-athlete rows carry the
// final ranking.
func TestArchiveSessionResults(t *testing.T) {
	eng, store := seedEndedClass(t)

	arch, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer arch.Close()

	ex := &Exporter{Engine: eng, Store: store, Archive: arch}
	ctx := context.Background()
	if _, err := ex.Run(ctx, time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	rows, err := arch.db.QueryContext(ctx,
		`SELECT user_id, rank FROM archived_results WHERE class_id = 1 ORDER BY rank`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	var got []struct{ user, rank int64 }
	for rows.Next() {
		var r struct{ user, rank int64 }
		if err := rows.Scan(&r.user, &r.rank); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d rows, want 2", len(got))
	}
	// Athlete 1 finished (only one step); athlete 2 never moved
	if got[0].user != 1 || got[0].rank != 1 {
		t.Errorf("rank 1 = %+v, want athlete 1", got[0])
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
	"github.com/meltforce/classpulse/internal/storage/memory"
)

const testOpsKey = "ops-test-key"

// newTestServer seeds class 1 (coach 100, athletes 1..3) with a
// three-round FOR_TIME workout and returns a configured server.
func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	rounds := make([]models.Round, 3)
	for i := range rounds {
		rounds[i] = models.Round{
			Number: i + 1,
			Subrounds: []models.Subround{{
				Number: 1,
				Exercises: []models.Exercise{
					{Name: "Wall Balls", Reps: 20},
					{Name: "Box Jumps", Reps: 15},
				},
			}},
		}
	}
	store.SeedClass(
		models.Class{ID: 1, CoachID: 100, WorkoutID: 10},
		[]int64{1, 2, 3},
		&models.WorkoutDefinition{
			ID: 10, Name: "Engine Builder", Type: models.WorkoutForTime,
			TimeCapSeconds: 720, Rounds: rounds,
		},
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store, store, store, log)
	return New(eng, testOpsKey, log), store
}

func doJSON(t *testing.T, srv *Server, method, path string, userID string, roles string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func wantStatusCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, status, rec.Body.String())
	}
	if code != "" {
		var body struct {
			Code string `json:"code"`
		}
		decodeInto(t, rec, &body)
		if body.Code != code {
			t.Fatalf("code = %q, want %q", body.Code, code)
		}
	}
}

// TestListLiveClassesRoute verifies the running-classes listing is
// empty before start and carries the session afterwards.
func TestListLiveClassesRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/v1/live-classes", "", "", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	var list []engine.LiveClassSummary
	decodeInto(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("listing before start = %d entries, want 0", len(list))
	}

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")

	rec = doJSON(t, srv, "GET", "/api/v1/live-classes", "", "", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	decodeInto(t, rec, &list)
	if len(list) != 1 || list[0].ClassID != 1 || list[0].Status != models.StatusLive {
		t.Fatalf("listing after start = %+v, want class 1 live", list)
	}
}

// TestSessionLifecycleFlow drives a class through start, athlete
// submissions, stop, and final leaderboard over HTTP.
func TestSessionLifecycleFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	var view engine.SessionView
	decodeInto(t, rec, &view)
	if view.Status != models.StatusLive || len(view.Steps) != 6 {
		t.Fatalf("start view = %q with %d steps, want live/6", view.Status, len(view.Steps))
	}

	// Athlete 2 advances twice
	for i := 0; i < 2; i++ {
		rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/advance", "2", "",
			map[string]string{"direction": "next"})
		wantStatusCode(t, rec, http.StatusOK, "")
	}
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/partial", "2", "",
		map[string]int{"reps": 8})
	wantStatusCode(t, rec, http.StatusOK, "")

	// Leaderboard puts athlete 2 on top: cum[2]=55 plus 8 partial
	rec = doJSON(t, srv, "GET", "/api/v1/classes/1/live/leaderboard", "", "", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	var lb engine.Leaderboard
	decodeInto(t, rec, &lb)
	if len(lb.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(lb.Entries))
	}
	if lb.Entries[0].UserID != 2 || lb.Entries[0].Score != 63 {
		t.Errorf("rank 1 = %+v, want athlete 2 with 63", lb.Entries[0])
	}

	// Final leaderboard locked until stop
	rec = doJSON(t, srv, "GET", "/api/v1/classes/1/live/leaderboard/final", "", "", nil)
	wantStatusCode(t, rec, http.StatusConflict, "NOT_ENDED")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/stop", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")

	rec = doJSON(t, srv, "GET", "/api/v1/classes/1/live/leaderboard/final", "", "", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	decodeInto(t, rec, &lb)
	if lb.Status != models.StatusEnded {
		t.Errorf("final status = %q, want ended", lb.Status)
	}
}

// TestAuthLayering verifies the three auth tiers: open reads,
// identity-gated participant writes, role-gated coach routes.
func TestAuthLayering(t *testing.T) {
	srv, _ := newTestServer(t)

	// Public read works without headers (404 since nothing started)
	rec := doJSON(t, srv, "GET", "/api/v1/classes/1/live", "", "", nil)
	wantStatusCode(t, rec, http.StatusNotFound, "SESSION_NOT_FOUND")

	// Participant write without identity
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/advance", "", "",
		map[string]string{"direction": "next"})
	wantStatusCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	// Coach route without coach role
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "2", "athlete", nil)
	wantStatusCode(t, rec, http.StatusForbidden, "ROLE_NOT_ALLOWED")

	// Coach role but not this class's coach
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "7", "coach", nil)
	wantStatusCode(t, rec, http.StatusForbidden, "NOT_CLASS_COACH")
}

// TestClassIDValidation verifies the route parameter checks.
func TestClassIDValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/v1/classes/abc/live", "", "", nil)
	wantStatusCode(t, rec, http.StatusBadRequest, "INVALID_CLASS_ID")

	rec = doJSON(t, srv, "GET", "/api/v1/classes/-4/live", "", "", nil)
	wantStatusCode(t, rec, http.StatusBadRequest, "INVALID_CLASS_ID")
}

// TestConflictStatusMapping verifies lifecycle violations surface as
// 409s with their codes.
func TestConflictStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/resume", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusConflict, "NOT_PAUSED")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/pause", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/pause", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusConflict, "NOT_LIVE")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/stop", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/stop", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusConflict, "ALREADY_ENDED")
}

// TestPartialRepsValidation verifies the reps field is required and
// non-negative.
func TestPartialRepsValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)

	rec := doJSON(t, srv, "POST", "/api/v1/classes/1/live/partial", "1", "",
		map[string]string{})
	wantStatusCode(t, rec, http.StatusBadRequest, "SCORE_REQUIRED")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/partial", "1", "",
		map[string]int{"reps": -2})
	wantStatusCode(t, rec, http.StatusBadRequest, "SCORE_REQUIRED")
}

// TestAdvanceDirectionValidation verifies only next and prev are
// accepted; anything else is a 400 rather than a silent next.
func TestAdvanceDirectionValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)

	for _, dir := range []string{"", "up", "NEXT", "previous"} {
		rec := doJSON(t, srv, "POST", "/api/v1/classes/1/live/advance", "1", "",
			map[string]string{"direction": dir})
		wantStatusCode(t, rec, http.StatusBadRequest, "INVALID_DIRECTION")
	}

	rec := doJSON(t, srv, "GET", "/api/v1/classes/1/live/me", "1", "", nil)
	wantStatusCode(t, rec, http.StatusOK, "")
	var p models.ProgressRecord
	decodeInto(t, rec, &p)
	if p.CurrentStepIndex != 0 {
		t.Errorf("rejected directions moved the record to step %d", p.CurrentStepIndex)
	}
}

// TestOverrideRoutes verifies the general override path works live
// while the ended-only family rejects until stop.
func TestOverrideRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/classes/1/live/start", "100", "coach", nil)

	cmd := map[string]any{"kind": "for_time_finish", "target_user_id": 2, "finish_seconds": 333}

	rec := doJSON(t, srv, "POST", "/api/v1/classes/1/live/override/ended", "100", "coach", cmd)
	wantStatusCode(t, rec, http.StatusConflict, "NOT_ENDED")

	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/override", "100", "coach", cmd)
	wantStatusCode(t, rec, http.StatusOK, "")
	var p models.ProgressRecord
	decodeInto(t, rec, &p)
	if !p.Finished || p.FinishSeconds != 333 {
		t.Errorf("override result = %+v, want finished at 333", p)
	}

	doJSON(t, srv, "POST", "/api/v1/classes/1/live/stop", "100", "coach", nil)
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/override/ended", "100", "coach", cmd)
	wantStatusCode(t, rec, http.StatusOK, "")

	// Missing target
	rec = doJSON(t, srv, "POST", "/api/v1/classes/1/live/override", "100", "coach",
		map[string]any{"kind": "amrap_total", "total_reps": 50})
	wantStatusCode(t, rec, http.StatusBadRequest, "SCORE_REQUIRED")
}

// TestCoachNoteRoutes verifies the note read/write cycle over HTTP.
func TestCoachNoteRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/api/v1/classes/1/live/coach-note", "100", "coach", nil)
	wantStatusCode(t, rec, http.StatusOK, "")

	rec = doJSON(t, srv, "PUT", "/api/v1/classes/1/live/coach-note", "100", "coach",
		map[string]string{"note": "scale box jumps for athlete 3"})
	wantStatusCode(t, rec, http.StatusOK, "")
	var n models.CoachNote
	decodeInto(t, rec, &n)
	if n.Note == "" || n.Revision == "" {
		t.Errorf("saved note = %+v", n)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/classes/1/live/coach-note", "100", "coach", nil)
	decodeInto(t, rec, &n)
	if n.Note != "scale box jumps for athlete 3" {
		t.Errorf("read back note = %q", n.Note)
	}
}

// stubArchiver records the archive call without touching SQLite.
type stubArchiver struct {
	called bool
	since  time.Time
}

func (a *stubArchiver) ArchiveEnded(_ context.Context, since time.Time) (any, error) {
	a.called = true
	a.since = since
	return map[string]int{"archived": 0}, nil
}

// TestArchiveEndpoint verifies the ops route: key required, 503 when
// no archive is configured, and the since parameter is honored.
func TestArchiveEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/ops/archive", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/ops/archive", nil)
	req.Header.Set("X-API-Key", testOpsKey)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no archiver: status = %d, want 503", rec.Code)
	}

	stub := &stubArchiver{}
	srv.SetArchiver(stub)
	req = httptest.NewRequest("POST", "/api/v1/ops/archive?since=2026-03-01", nil)
	req.Header.Set("X-API-Key", testOpsKey)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	if !stub.called {
		t.Fatal("archiver was not invoked")
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !stub.since.Equal(want) {
		t.Errorf("since = %v, want %v", stub.since, want)
	}
}

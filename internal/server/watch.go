package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
)

// watchTick bounds how stale a watch stream can get when no writes
// arrive (the session clock still moves while everyone rests).
const watchTick = 5 * time.Second

// watchHub fans session-change signals out to SSE subscribers, one
// subscriber set per class. It implements engine.Notifier.
type watchHub struct {
	mu   sync.Mutex
	subs map[int64]map[chan struct{}]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[int64]map[chan struct{}]struct{})}
}

// SessionChanged signals every watcher of the class. Slow subscribers
// are skipped; they catch up on the next tick.
func (h *watchHub) SessionChanged(classID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[classID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *watchHub) subscribe(classID int64) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[classID] == nil {
		h.subs[classID] = make(map[chan struct{}]struct{})
	}
	h.subs[classID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *watchHub) unsubscribe(classID int64, ch chan struct{}) {
	h.mu.Lock()
	delete(h.subs[classID], ch)
	if len(h.subs[classID]) == 0 {
		delete(h.subs, classID)
	}
	h.mu.Unlock()
}

// handleWatch streams the realtime leaderboard over SSE: immediately
// on connect, after every committed write to the session, and on a
// coarse tick in between. Polling GET endpoints remain the primary
// read path; this is a push convenience for the gym-floor screens.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorCode(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.subscribe(classID)
	defer s.hub.unsubscribe(classID, ch)

	send := func() bool {
		lb, err := s.engine.RealtimeLeaderboard(r.Context(), classID)
		if err != nil {
			payload, _ := json.Marshal(map[string]string{"code": string(engine.CodeOf(err)), "error": err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			return false
		}
		payload, err := json.Marshal(lb)
		if err != nil {
			return false
		}
		fmt.Fprintf(w, "event: leaderboard\ndata: %s\n\n", payload)
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if !send() {
				return
			}
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}

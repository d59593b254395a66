package server

import (
	"context"
	"net/http"

	"github.com/meltforce/classpulse/internal/engine"
)

func (s *Server) handleRealtimeLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(w, r, s.engine.RealtimeLeaderboard)
}

func (s *Server) handleIntervalLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(w, r, s.engine.IntervalLeaderboard)
}

func (s *Server) handleFinalLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(w, r, s.engine.FinalLeaderboard)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request, compute func(ctx context.Context, classID int64) (*engine.Leaderboard, error)) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	lb, err := compute(r.Context(), classID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

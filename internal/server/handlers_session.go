package server

import (
	"context"
	"net/http"

	"github.com/meltforce/classpulse/internal/engine"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.engine.GetSession(r.Context(), classID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListLiveClasses(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.ListLiveClasses(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.StartSession)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.PauseSession)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.ResumeSession)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.StopSession)
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, coachID, classID int64) (*engine.SessionView, error)) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	view, err := op(r.Context(), id.UserID, classID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

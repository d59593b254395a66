package server

import (
	"net/http"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
)

func (s *Server) handleMyProgress(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	p, err := s.engine.GetMyProgress(r.Context(), classID, id.UserID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var body struct {
		Direction string `json:"direction"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	var dir engine.AdvanceDirection
	switch body.Direction {
	case string(engine.AdvanceNext):
		dir = engine.AdvanceNext
	case string(engine.AdvancePrev):
		dir = engine.AdvancePrev
	default:
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeInvalidDirection),
			`direction must be "next" or "prev"`)
		return
	}
	p, err := s.engine.AdvanceStep(r.Context(), classID, id.UserID, dir)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSubmitPartial(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var body struct {
		Reps *int `json:"reps"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Reps == nil {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeScoreRequired), "reps is required")
		return
	}
	p, err := s.engine.SubmitPartialReps(r.Context(), classID, id.UserID, *body.Reps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePostIntervalScore(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var body struct {
		StepIndex *int `json:"step_index"`
		Reps      *int `json:"reps"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.StepIndex == nil {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeInvalidStepIndex), "step_index is required")
		return
	}
	if body.Reps == nil {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeScoreRequired), "reps is required")
		return
	}
	p, err := s.engine.PostIntervalScore(r.Context(), classID, id.UserID, *body.StepIndex, *body.Reps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePostEmomMark(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var mark models.EmomMark
	if !decodeBody(w, r, &mark) {
		return
	}
	p, err := s.engine.PostEmomMark(r.Context(), classID, id.UserID, mark)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetScaling(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var body struct {
		Scaling string `json:"scaling"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := s.engine.SetScaling(r.Context(), classID, id.UserID, body.Scaling)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

package server

import (
	"net/http"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
)

// handleOverride is the general-purpose coach correction path, usable
// regardless of session status.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	s.override(w, r, false)
}

// handleOverrideEnded is the ended-only family: the intended post-hoc
// correction path, rejected with NOT_ENDED while the session runs.
func (s *Server) handleOverrideEnded(w http.ResponseWriter, r *http.Request) {
	s.override(w, r, true)
}

func (s *Server) override(w http.ResponseWriter, r *http.Request, requireEnded bool) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var cmd engine.OverrideCommand
	if !decodeBody(w, r, &cmd) {
		return
	}
	if cmd.TargetUserID <= 0 {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeScoreRequired), "target_user_id is required")
		return
	}
	cmd.RequireEnded = requireEnded
	p, err := s.engine.CoachOverride(r.Context(), id.UserID, classID, cmd)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetCoachNote(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	note, err := s.engine.GetCoachNote(r.Context(), id.UserID, classID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleSetCoachNote(w http.ResponseWriter, r *http.Request) {
	classID, ok := classIDParam(w, r)
	if !ok {
		return
	}
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	note, err := s.engine.SetCoachNote(r.Context(), id.UserID, classID, body.Note)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "no archive configured")
		return
	}
	// Default: everything ended in the last 30 days.
	since := time.Now().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", raw)
			if err != nil {
				writeErrorCode(w, http.StatusBadRequest, "INVALID_BODY", "since must be RFC3339 or YYYY-MM-DD")
				return
			}
		}
		since = parsed
	}
	result, err := s.archiver.ArchiveEnded(r.Context(), since)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

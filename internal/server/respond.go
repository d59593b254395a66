package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/classpulse/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "error": message})
}

// writeEngineError translates a coded engine failure 1:1 to its
// contractual HTTP status. Uncoded failures become opaque 500s.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	code := engine.CodeOf(err)
	status := code.HTTPStatus()
	msg := err.Error()
	if code == engine.CodeInternal {
		s.log.Error("internal error", "error", err)
		msg = "internal error"
	}
	writeErrorCode(w, status, string(code), msg)
}

// classIDParam parses the {classID} route parameter. A missing value
// is CLASS_ID_REQUIRED, a non-numeric one INVALID_CLASS_ID.
func classIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "classID")
	if raw == "" {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeClassIDRequired), "class id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, http.StatusBadRequest, string(engine.CodeInvalidClassID), "class id must be a positive integer")
		return 0, false
	}
	return id, true
}

// mustIdentity pulls the verified identity; the middleware guarantees
// it on identity-protected routes, this is the belt for direct calls.
func mustIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFromContext(r)
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, string(engine.CodeUnauthorized), "missing user identity")
		return Identity{}, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

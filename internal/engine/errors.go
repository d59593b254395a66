// Package engine implements the live class session engine: the
// session state machine, workout step resolution, per-modality
// progress tracking, leaderboard computation, and the coach override
// gateway.
package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure code. Codes translate 1:1 to
// HTTP status at the transport boundary; the status mapping is part
// of the API contract.
type Code string

const (
	// Precondition errors — client can retry after fixing input.
	CodeInvalidClassID       Code = "INVALID_CLASS_ID"
	CodeClassIDRequired      Code = "CLASS_ID_REQUIRED"
	CodeInvalidWorkoutID     Code = "INVALID_WORKOUT_ID"
	CodeInvalidStepIndex     Code = "INVALID_STEP_INDEX"
	CodeStepIndexOutOfRange  Code = "STEP_INDEX_OUT_OF_RANGE"
	CodeScoreRequired        Code = "SCORE_REQUIRED"
	CodeInvalidMinuteIndex   Code = "INVALID_MINUTE_INDEX"
	CodeInvalidDirection     Code = "INVALID_DIRECTION"

	// State errors — operation invalid in the current lifecycle state.
	CodeSessionNotStarted  Code = "CLASS_SESSION_NOT_STARTED"
	CodeNotLive            Code = "NOT_LIVE"
	CodeNotPaused          Code = "NOT_PAUSED"
	CodeAlreadyEnded       Code = "ALREADY_ENDED"
	CodeTimeUp             Code = "TIME_UP"
	CodeNotEnded           Code = "NOT_ENDED"
	CodeWorkoutNotAssigned Code = "WORKOUT_NOT_ASSIGNED"
	CodeNotIntervalWorkout Code = "NOT_INTERVAL_WORKOUT"

	// Authorization errors.
	CodeNotClassCoach  Code = "NOT_CLASS_COACH"
	CodeNotBooked      Code = "NOT_BOOKED"
	CodeRoleNotAllowed Code = "ROLE_NOT_ALLOWED"
	CodeUnauthorized   Code = "UNAUTHORIZED"

	// Not-found errors.
	CodeSessionNotFound          Code = "SESSION_NOT_FOUND"
	CodeWorkoutNotFoundForClass  Code = "WORKOUT_NOT_FOUND_FOR_CLASS"
	CodeClassNotFound            Code = "CLASS_NOT_FOUND"
	CodeNoSession                Code = "NO_SESSION"

	// Infrastructure errors — transient, retryable.
	CodeDBConnectionReset Code = "DB_CONNECTION_RESET"

	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps a code to its contractual HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidClassID, CodeClassIDRequired, CodeInvalidWorkoutID,
		CodeInvalidStepIndex, CodeStepIndexOutOfRange, CodeScoreRequired,
		CodeInvalidMinuteIndex, CodeInvalidDirection:
		return http.StatusBadRequest
	case CodeSessionNotStarted, CodeNotLive, CodeNotPaused, CodeAlreadyEnded,
		CodeTimeUp, CodeNotEnded, CodeWorkoutNotAssigned, CodeNotIntervalWorkout:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotClassCoach, CodeNotBooked, CodeRoleNotAllowed:
		return http.StatusForbidden
	case CodeSessionNotFound, CodeWorkoutNotFoundForClass, CodeClassNotFound,
		CodeNoSession:
		return http.StatusNotFound
	case CodeDBConnectionReset:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Error is a coded engine failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errf builds a coded error.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or CodeInternal for uncoded
// failures. Store sentinels are translated to their generic codes;
// call sites that know better (class vs workout vs session lookups)
// wrap before the boundary sees them.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, ErrUnavailable) {
		return CodeDBConnectionReset
	}
	return CodeInternal
}

// Sentinels the storage layer wraps so the engine can classify
// failures without importing a driver.
var (
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a transient infrastructure failure
	// (connection reset, pool exhausted). Surfaced as
	// DB_CONNECTION_RESET and safe to retry.
	ErrUnavailable = errors.New("storage unavailable")
)

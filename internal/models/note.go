package models

import "time"

// CoachNote is the assigned coach's free-text annotation on a class
// session. No version history; Revision changes on every write so
// clients can detect concurrent edits.
type CoachNote struct {
	ClassID   int64     `json:"class_id"`
	Note      string    `json:"note"`
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

package storage

import (
	"context"

	"github.com/meltforce/classpulse/internal/models"
)

// GetCoachNote retrieves the note attached to a class session.
func (db *DB) GetCoachNote(ctx context.Context, classID int64) (*models.CoachNote, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT class_id, note, revision, updated_at FROM coach_notes WHERE class_id = $1`,
		classID)
	var n models.CoachNote
	if err := row.Scan(&n.ClassID, &n.Note, &n.Revision, &n.UpdatedAt); err != nil {
		return nil, classify("querying coach note", err)
	}
	return &n, nil
}

// PutCoachNote upserts the note. One row per class, no history.
func (db *DB) PutCoachNote(ctx context.Context, n *models.CoachNote) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO coach_notes (class_id, note, revision, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (class_id) DO UPDATE SET
		   note = EXCLUDED.note,
		   revision = EXCLUDED.revision,
		   updated_at = EXCLUDED.updated_at`,
		n.ClassID, n.Note, n.Revision, n.UpdatedAt)
	return classify("upserting coach note", err)
}

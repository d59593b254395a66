package storage

import (
	"context"

	"github.com/meltforce/classpulse/internal/models"
)

// GetClass reads the slice of the class record the engine needs. The
// booking system owns these tables; the engine only queries them.
func (db *DB) GetClass(ctx context.Context, classID int64) (*models.Class, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, coach_id, COALESCE(workout_id, 0) FROM classes WHERE id = $1`,
		classID)
	var c models.Class
	if err := row.Scan(&c.ID, &c.CoachID, &c.WorkoutID); err != nil {
		return nil, classify("querying class", err)
	}
	return &c, nil
}

// IsBooked reports whether the user holds a booking for the class.
func (db *DB) IsBooked(ctx context.Context, classID, userID int64) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM class_bookings WHERE class_id = $1 AND user_id = $2`,
		classID, userID).Scan(&count)
	if err != nil {
		return false, classify("querying booking", err)
	}
	return count > 0, nil
}

// ListBooked returns the user ids booked into the class.
func (db *DB) ListBooked(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id FROM class_bookings WHERE class_id = $1 ORDER BY user_id ASC`,
		classID)
	if err != nil {
		return nil, classify("querying bookings", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, classify("scanning booking", err)
		}
		userIDs = append(userIDs, uid)
	}
	return userIDs, classify("iterating bookings", rows.Err())
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"glucare/internal/domain"

	"github.com/google/uuid"
)

// AddReading inserts a glucose reading.
func (d *DB) AddReading(ctx context.Context, in domain.NewReading) (*domain.Reading, error) {
	r := domain.Reading{
		ID:         uuid.NewString(),
		UserID:     in.OwnerID,
		Value:      in.Value,
		RecordedAt: in.RecordedAt.UTC(),
		Notes:      in.Notes,
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO glucose_readings(id, user_id, value, recorded_at, notes, created_at) VALUES($1, $2, $3, $4, $5, $6);",
		r.ID, r.UserID, r.Value, r.RecordedAt, nullString(in.Notes), time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReadings returns the user's readings, newest first.
func (d *DB) ListReadings(ctx context.Context, userID int64) ([]domain.Reading, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, value, recorded_at, notes FROM glucose_readings WHERE user_id = $1 ORDER BY recorded_at DESC;",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		var r domain.Reading
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.Value, &r.RecordedAt, &notes); err != nil {
			return nil, err
		}
		r.RecordedAt = r.RecordedAt.UTC()
		if notes.Valid {
			n := notes.String
			r.Notes = &n
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

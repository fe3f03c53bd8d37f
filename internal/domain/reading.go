package domain

import (
	"context"
	"time"
)

// Reading is a single glucose measurement in mg/dL.
type Reading struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
	Notes      *string   `json:"notes"`
}

// NewReading is the write payload for a reading. OwnerID is zero when the
// writer has no session user; stores attribute the row from their own
// session in that case.
type NewReading struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
	Notes      *string   `json:"notes"`
	OwnerID    int64     `json:"userId,omitempty"`
}

// ReadingRepository is the port for reading persistence.
type ReadingRepository interface {
	AddReading(ctx context.Context, in NewReading) (*Reading, error)
	ListReadings(ctx context.Context, userID int64) ([]Reading, error)
}

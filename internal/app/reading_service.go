package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"glucare/internal/domain"
)

var (
	// ErrInvalidReading indicates a write payload that fails validation.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrInvalidUnit indicates an unsupported display unit.
	ErrInvalidUnit = errors.New("unit must be \"mg/dL\" or \"mmol/L\"")
)

// MaxNotesLength bounds the free-text note stored with a reading.
const MaxNotesLength = 500

// ReadingService encapsulates glucose reading use cases. It satisfies the
// dashboard's Store port on the server side.
type ReadingService struct {
	repo domain.ReadingRepository
}

// NewReadingService creates a ReadingService backed by the given repository.
func NewReadingService(repo domain.ReadingRepository) *ReadingService {
	return &ReadingService{repo: repo}
}

// ListReadings returns the owner's readings, newest first.
func (s *ReadingService) ListReadings(ctx context.Context, ownerID int64) ([]domain.Reading, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: missing owner", ErrInvalidReading)
	}
	return s.repo.ListReadings(ctx, ownerID)
}

// InsertReading validates and stores a reading. Values are mg/dL.
func (s *ReadingService) InsertReading(ctx context.Context, in domain.NewReading) (*domain.Reading, error) {
	if err := validateReading(in); err != nil {
		return nil, err
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if notes == "" {
			in.Notes = nil
		} else {
			in.Notes = &notes
		}
	}
	in.RecordedAt = in.RecordedAt.UTC()
	return s.repo.AddReading(ctx, in)
}

// ListInUnit returns the owner's readings with values converted to unit.
func (s *ReadingService) ListInUnit(ctx context.Context, ownerID int64, unit string) ([]domain.Reading, error) {
	if !domain.ValidUnit(unit) {
		return nil, ErrInvalidUnit
	}
	items, err := s.ListReadings(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if unit == domain.UnitMgDL {
		return items, nil
	}
	out := make([]domain.Reading, len(items))
	for i, r := range items {
		r.Value = domain.ConvertGlucose(r.Value, domain.UnitMgDL, unit)
		out[i] = r
	}
	return out, nil
}

func validateReading(in domain.NewReading) error {
	switch {
	case in.OwnerID <= 0:
		return fmt.Errorf("%w: missing owner", ErrInvalidReading)
	case math.IsNaN(in.Value) || math.IsInf(in.Value, 0) || in.Value <= 0:
		return fmt.Errorf("%w: value must be > 0", ErrInvalidReading)
	case in.RecordedAt.IsZero():
		return fmt.Errorf("%w: recordedAt is required", ErrInvalidReading)
	case in.Notes != nil && len(*in.Notes) > MaxNotesLength:
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalidReading, MaxNotesLength)
	}
	return nil
}

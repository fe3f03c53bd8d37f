package app

import (
	"context"
	"time"

	"glucare/internal/dashboard"
	"glucare/internal/domain"
)

// MaxChartDays caps the chart window.
const MaxChartDays = 366

// ChartsService encapsulates chart data retrieval use cases.
type ChartsService struct {
	readings domain.ReadingRepository
	now      func() time.Time
}

// NewChartsService creates a ChartsService backed by the given repository.
func NewChartsService(readings domain.ReadingRepository) *ChartsService {
	return &ChartsService{readings: readings, now: time.Now}
}

// Series returns the owner's readings from the last days days in
// chronological order. days <= 0 means every reading.
func (s *ChartsService) Series(ctx context.Context, userID int64, days int) ([]domain.Reading, error) {
	items, err := s.readings.ListReadings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if days > MaxChartDays {
		days = MaxChartDays
	}
	if days > 0 {
		cutoff := s.now().AddDate(0, 0, -days)
		kept := items[:0:0]
		for _, r := range items {
			if !r.RecordedAt.Before(cutoff) {
				kept = append(kept, r)
			}
		}
		items = kept
	}
	return dashboard.Chronological(items), nil
}

// GetLayout returns the plot geometry for the owner's readings.
func (s *ChartsService) GetLayout(ctx context.Context, userID int64, days int, f dashboard.Formatter) (dashboard.Layout, error) {
	series, err := s.Series(ctx, userID, days)
	if err != nil {
		return dashboard.Layout{}, err
	}
	return dashboard.ComputeLayout(series, f), nil
}

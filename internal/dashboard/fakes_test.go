package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"glucare/internal/domain"
)

type fakeStore struct {
	listFn   func(ctx context.Context, ownerID int64) ([]domain.Reading, error)
	insertFn func(ctx context.Context, in domain.NewReading) (*domain.Reading, error)

	lists   atomic.Int32
	inserts atomic.Int32
}

func (f *fakeStore) ListReadings(ctx context.Context, ownerID int64) ([]domain.Reading, error) {
	f.lists.Add(1)
	if f.listFn != nil {
		return f.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeStore) InsertReading(ctx context.Context, in domain.NewReading) (*domain.Reading, error) {
	f.inserts.Add(1)
	if f.insertFn != nil {
		return f.insertFn(ctx, in)
	}
	return &domain.Reading{ID: "r-1", UserID: in.OwnerID, Value: in.Value, RecordedAt: in.RecordedAt, Notes: in.Notes}, nil
}

type listResult struct {
	items []domain.Reading
	err   error
}

type pendingList struct {
	ownerID int64
	reply   chan listResult
}

// gatedStore parks every ListReadings call until the test replies to it.
type gatedStore struct {
	calls chan pendingList
}

func newGatedStore() *gatedStore {
	return &gatedStore{calls: make(chan pendingList)}
}

func (g *gatedStore) ListReadings(ctx context.Context, ownerID int64) ([]domain.Reading, error) {
	p := pendingList{ownerID: ownerID, reply: make(chan listResult, 1)}
	select {
	case g.calls <- p:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-p.reply:
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedStore) InsertReading(context.Context, domain.NewReading) (*domain.Reading, error) {
	return nil, nil
}

var day = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func reading(id string, value float64, offsetDays int) domain.Reading {
	return domain.Reading{ID: id, UserID: 1, Value: value, RecordedAt: day.AddDate(0, 0, offsetDays)}
}

var testUser = &domain.User{ID: 1, Email: "ana@example.com", Name: "Ana"}

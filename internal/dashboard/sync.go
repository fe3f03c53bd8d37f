package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"glucare/internal/domain"
	"glucare/internal/logger"
	"glucare/internal/metrics"
)

// Snapshot is a consistent copy of the sync state.
type Snapshot struct {
	Items   []domain.Reading
	Loading bool
	Err     error
	// Version increases on every commit. Derived state (chart layout,
	// hover) tagged with an older version is stale.
	Version uint64
}

// Sync loads the current user's readings from a Store. Each fetch takes a
// token when it starts; its result is committed only if that token is still
// the latest one issued and the sync is still mounted.
type Sync struct {
	store   Store
	log     logger.Logger
	metrics *metrics.Manager

	mu      sync.Mutex
	token   uint64
	closed  bool
	user    *domain.User
	items   []domain.Reading
	loading bool
	err     error
	version uint64
}

// NewSync creates a Sync over store. A nil store refuses every fetch with
// ErrConfigurationMissing without attempting it.
func NewSync(store Store, log logger.Logger, m *metrics.Manager) *Sync {
	if log == nil {
		log = logger.Nop()
	}
	return &Sync{
		store:   store,
		log:     log,
		metrics: m,
		items:   []domain.Reading{},
		loading: true,
	}
}

// SetUser fetches when the user identity becomes available or changes. It
// is a no-op for a nil user or the identity already loaded. Reports whether
// a fetch result was committed.
func (s *Sync) SetUser(ctx context.Context, user *domain.User) bool {
	if user == nil {
		return false
	}
	s.mu.Lock()
	if s.closed || (s.user != nil && s.user.ID == user.ID) {
		s.mu.Unlock()
		return false
	}
	u := *user
	s.user = &u
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// User returns the identity the sync is loading for, if any.
func (s *Sync) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Refresh re-runs the fetch for the current user. Any fetch still in flight
// is superseded. Reports whether this fetch's result was committed.
func (s *Sync) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || s.user == nil {
		s.mu.Unlock()
		return false
	}
	s.token++
	token := s.token
	ownerID := s.user.ID

	if s.store == nil {
		s.commitLocked(nil, ErrConfigurationMissing)
		s.mu.Unlock()
		s.metrics.RecordFetch(metrics.FetchFailed, 0)
		return true
	}

	s.loading = true
	s.err = nil
	s.mu.Unlock()

	items, err := s.store.ListReadings(ctx, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || token != s.token {
		s.log.Debug(ctx, "discarding stale fetch",
			logger.Any("token", token), logger.Any("latest", s.token))
		s.metrics.RecordFetch(metrics.FetchDiscarded, 0)
		return false
	}
	if err != nil {
		s.log.Warn(ctx, "fetch readings failed", logger.Int64("user_id", ownerID), logger.Error(err))
		s.commitLocked(nil, fmt.Errorf("%w: %v", ErrFetchFailed, err))
		s.metrics.RecordFetch(metrics.FetchFailed, 0)
		return true
	}
	s.commitLocked(items, nil)
	s.metrics.RecordFetch(metrics.FetchCommitted, len(items))
	return true
}

func (s *Sync) commitLocked(items []domain.Reading, err error) {
	if err != nil || items == nil {
		s.items = []domain.Reading{}
	} else {
		s.items = slices.Clone(items)
	}
	s.err = err
	s.loading = false
	s.version++
}

// Teardown marks the sync as unmounted. In-flight fetches are dropped when
// they complete and the collection is discarded.
func (s *Sync) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.token++
	s.user = nil
	s.items = []domain.Reading{}
	s.err = nil
	s.loading = false
	s.version++
}

// Snapshot returns a copy of the current state.
func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Items:   slices.Clone(s.items),
		Loading: s.loading,
		Err:     s.err,
		Version: s.version,
	}
}

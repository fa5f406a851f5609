package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// InMemoryRunStore implements RunStore for testing and for runs started with
// history disabled.
type InMemoryRunStore struct {
	mu     sync.RWMutex
	runs   map[int64]Run
	nextID int64
	now    func() time.Time
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs: make(map[int64]Run),
		now:  time.Now,
	}
}

// StartRun records a run.
func (s *InMemoryRunStore) StartRun(ctx context.Context, run Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	run.ID = s.nextID
	run.EndedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.Params = slices.Clone(run.Params)
	s.runs[run.ID] = run
	return run.ID, nil
}

// FinishRun stamps the end of a run.
func (s *InMemoryRunStore) FinishRun(ctx context.Context, id int64, ticks uint64, retired int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	ended := s.now()
	run.EndedAt = &ended
	run.Ticks = ticks
	run.Retired = retired
	s.runs[id] = run
	return nil
}

// GetRun returns a copy of a run.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	run.Params = slices.Clone(run.Params)
	return &run, nil
}

// ListRuns returns runs newest first, without parameters.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		r.Params = nil
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

var (
	_ RunStore = (*InMemoryRunStore)(nil)
	_ RunStore = (*SQLiteRunStore)(nil)
)

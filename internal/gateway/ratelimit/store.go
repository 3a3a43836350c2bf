// Package ratelimit implements fixed-window request budgets per client
// address, with a stricter budget for authentication operations.
package ratelimit

import (
	"context"
	"time"

	"github.com/educationelly/educationelly-graphql/pkg/cmap"
)

// Window is the state of one counter after an increment.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store holds the counters. Incr adds one hit to key and starts a new
// window of the given length when none is open or the open one elapsed.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (Window, error)
}

// MemoryStore keeps counters in a sharded in-process map.
type MemoryStore struct {
	counters *cmap.Map[string, Window]
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: cmap.New[string, Window](),
		now:      time.Now,
	}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (Window, error) {
	now := s.now()
	return s.counters.Update(key, func(w Window, ok bool) Window {
		if !ok || !now.Before(w.ResetAt) {
			return Window{Count: 1, ResetAt: now.Add(window)}
		}
		w.Count++
		return w
	}), nil
}

// Sweep drops elapsed windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	return s.counters.DeleteFunc(func(_ string, w Window) bool {
		return !now.Before(w.ResetAt)
	})
}

// Len returns the number of tracked counters.
func (s *MemoryStore) Len() int {
	return s.counters.Count()
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

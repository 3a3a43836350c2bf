// Package loader implements per-request batched loading.
//
// Keys requested with Load are queued until the first returned thunk is
// forced (or Dispatch is called). The queued keys are then fetched with a
// single batch call, duplicate keys collapsed, and every waiting thunk
// resolves from that call. A Loader caches results for its lifetime, so
// it must be created per request and never shared between requests.
package loader

import (
	"context"
	"fmt"
	"sync"
)

// BatchFunc fetches values for keys. The result must be positionally
// aligned with keys; use OrderByKey to align storage results. Missing
// values are the zero value of V.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Thunk resolves a deferred Load.
type Thunk[V any] func() (V, error)

// Option configures a Loader.
type Option func(*options)

type options struct {
	observe func(size int)
}

// WithBatchObserver registers fn to be called with the size of every
// dispatched batch.
func WithBatchObserver(fn func(size int)) Option {
	return func(o *options) { o.observe = fn }
}

type result[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Loader batches and caches loads of V by K.
type Loader[K comparable, V any] struct {
	batchFn BatchFunc[K, V]
	opts    options

	mu      sync.Mutex
	cache   map[K]*result[V]
	pending []K
}

// New creates a Loader around batchFn.
func New[K comparable, V any](batchFn BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	l := &Loader[K, V]{
		batchFn: batchFn,
		cache:   make(map[K]*result[V]),
	}
	for _, opt := range opts {
		opt(&l.opts)
	}
	return l
}

// Load queues key and returns a thunk for its value. Loading the same key
// twice returns the same result.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	r, ok := l.cache[key]
	if !ok {
		r = &result[V]{done: make(chan struct{})}
		l.cache[key] = r
		l.pending = append(l.pending, key)
	}
	l.mu.Unlock()

	return func() (V, error) {
		l.Dispatch(ctx)
		select {
		case <-r.done:
			return r.val, r.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

// LoadMany loads every key in one batch and returns the values in key
// order. The first error encountered is returned.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	thunks := make([]Thunk[V], len(keys))
	for i, k := range keys {
		thunks[i] = l.Load(ctx, k)
	}
	out := make([]V, len(keys))
	for i, th := range thunks {
		v, err := th()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dispatch flushes the queued keys as one batch call. It is a no-op when
// nothing is queued. Callers forcing a key that another goroutine is
// already fetching wait for that batch instead.
func (l *Loader[K, V]) Dispatch(ctx context.Context) {
	l.mu.Lock()
	keys := l.pending
	l.pending = nil
	results := make([]*result[V], len(keys))
	for i, k := range keys {
		results[i] = l.cache[k]
	}
	l.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	if l.opts.observe != nil {
		l.opts.observe(len(keys))
	}

	vals, err := l.call(ctx, keys)
	if err == nil && len(vals) != len(keys) {
		err = fmt.Errorf("loader: batch returned %d values for %d keys", len(vals), len(keys))
	}
	for i, r := range results {
		if err != nil {
			r.err = err
		} else {
			r.val = vals[i]
		}
		close(r.done)
	}
}

func (l *Loader[K, V]) call(ctx context.Context, keys []K) (vals []V, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("loader: batch function panicked: %v", p)
		}
	}()
	return l.batchFn(ctx, keys)
}

// Clear drops key from the cache so the next Load fetches it again.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.cache[key]; ok {
		select {
		case <-r.done:
			delete(l.cache, key)
		default:
			// still queued or in flight
		}
	}
}

// Prime stores val for key unless key is already cached.
func (l *Loader[K, V]) Prime(key K, val V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return
	}
	r := &result[V]{done: make(chan struct{}), val: val}
	close(r.done)
	l.cache[key] = r
}

// OrderByKey aligns items with keys. keyOf extracts an item's key; keys
// with no matching item map to the zero value of V.
func OrderByKey[K comparable, V any](keys []K, items []V, keyOf func(V) K) []V {
	byKey := make(map[K]V, len(items))
	for _, it := range items {
		byKey[keyOf(it)] = it
	}
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

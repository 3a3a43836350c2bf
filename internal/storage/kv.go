package storage

import "context"

// KV is the minimal key-value engine the document drivers build on.
//
// Implementations must be safe for concurrent use. Get returns
// ErrKeyNotFound for a missing key. Scan visits keys in ascending order and
// stops when fn returns false.
type KV interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error
}

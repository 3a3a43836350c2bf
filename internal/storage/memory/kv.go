package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/pkg/cmap"
)

// KV is a storage.KV over a sharded map.
type KV struct {
	items *cmap.Map[string, []byte]
}

// NewKV creates an empty in-memory KV engine.
func NewKV() *KV {
	return &KV{items: cmap.New[string, []byte]()}
}

// Get returns a copy of the value stored under key.
func (kv *KV) Get(_ context.Context, key []byte) ([]byte, error) {
	v, ok := kv.items.Get(string(key))
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of value under key.
func (kv *KV) Set(_ context.Context, key, value []byte) error {
	kv.items.Set(string(key), bytes.Clone(value))
	return nil
}

// Delete removes key.
func (kv *KV) Delete(_ context.Context, key []byte) error {
	kv.items.Delete(string(key))
	return nil
}

// Scan visits keys with the given prefix in ascending order.
func (kv *KV) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	p := string(prefix)
	type item struct {
		key   string
		value []byte
	}
	var matched []item
	kv.items.Range(func(k string, v []byte) bool {
		if strings.HasPrefix(k, p) {
			matched = append(matched, item{k, v})
		}
		return true
	})
	slices.SortFunc(matched, func(a, b item) int { return strings.Compare(a.key, b.key) })

	for _, it := range matched {
		if !fn([]byte(it.key), bytes.Clone(it.value)) {
			break
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (kv *KV) Len() int {
	return kv.items.Count()
}

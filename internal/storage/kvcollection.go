package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

// KVCollection stores documents as JSON values in a KV engine.
//
// Reads go straight to the engine. Writes are serialized per collection so
// uniqueness checks and read-modify-write updates are atomic.
type KVCollection[T Document] struct {
	kv     KV
	schema Schema
	newDoc func() T
	now    func() time.Time

	mu sync.Mutex
}

// NewKVCollection creates a collection over kv. newDoc must return a fresh,
// non-nil document for decoding.
func NewKVCollection[T Document](kv KV, schema Schema, newDoc func() T) *KVCollection[T] {
	return &KVCollection[T]{
		kv:     kv,
		schema: schema,
		newDoc: newDoc,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *KVCollection[T]) key(id primitive.ObjectID) []byte {
	return []byte(c.schema.Name + "/" + id.Hex())
}

func (c *KVCollection[T]) prefix() []byte {
	return []byte(c.schema.Name + "/")
}

func (c *KVCollection[T]) decode(raw []byte) (T, error) {
	doc := c.newDoc()
	if err := json.Unmarshal(raw, doc); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: decode document: %w", c.schema.Name, err)
	}
	return doc, nil
}

func (c *KVCollection[T]) get(ctx context.Context, id primitive.ObjectID) ([]byte, error) {
	raw, err := c.kv.Get(ctx, c.key(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return raw, err
}

// scan collects the raw documents accepted by keep, in key order.
func (c *KVCollection[T]) scan(ctx context.Context, keep func(raw []byte) bool) ([][]byte, error) {
	var out [][]byte
	err := c.kv.Scan(ctx, c.prefix(), func(_, value []byte) bool {
		if keep(value) {
			out = append(out, value)
		}
		return ctx.Err() == nil
	})
	if err != nil {
		return nil, err
	}
	return out, ctx.Err()
}

// FindByID returns the document with the given ID, or nil.
func (c *KVCollection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	oid, err := ParseID(id)
	if err != nil {
		return zero, err
	}
	raw, err := c.get(ctx, oid)
	if err != nil || raw == nil {
		return zero, err
	}
	return c.decode(raw)
}

// FindByIDs returns the existing documents among ids.
func (c *KVCollection[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		oid, ok := domain.ParseObjectID(id)
		if !ok {
			continue
		}
		raw, err := c.get(ctx, oid)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			continue
		}
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Find returns the documents matching q.
func (c *KVCollection[T]) Find(ctx context.Context, q Query) ([]T, error) {
	raws, err := c.scan(ctx, func(raw []byte) bool {
		return MatchJSON(raw, q.Filter) && SearchJSON(raw, q.SearchField, q.Search)
	})
	if err != nil {
		return nil, err
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = DefaultSortField
	}
	slices.SortStableFunc(raws, func(a, b []byte) int {
		if q.SortDesc {
			return CompareJSON(b, a, sortBy)
		}
		return CompareJSON(a, b, sortBy)
	})

	start, end := Page(len(raws), q.Skip, q.Limit)
	out := make([]T, 0, end-start)
	for _, raw := range raws[start:end] {
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// FindOne returns the first document matching filter, or nil.
func (c *KVCollection[T]) FindOne(ctx context.Context, filter Filter) (T, error) {
	var zero T
	raw, err := c.findOneRaw(ctx, filter)
	if err != nil || raw == nil {
		return zero, err
	}
	return c.decode(raw)
}

func (c *KVCollection[T]) findOneRaw(ctx context.Context, filter Filter) ([]byte, error) {
	if id, ok := filter[IDField]; ok && len(filter) == 1 {
		oid, err := ParseID(fmt.Sprint(id))
		if err != nil {
			return nil, err
		}
		return c.get(ctx, oid)
	}

	var found []byte
	err := c.kv.Scan(ctx, c.prefix(), func(_, value []byte) bool {
		if MatchJSON(value, filter) {
			found = value
			return false
		}
		return true
	})
	return found, err
}

// Count returns the number of documents matching filter.
func (c *KVCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	err := c.kv.Scan(ctx, c.prefix(), func(_, value []byte) bool {
		if MatchJSON(value, filter) {
			n++
		}
		return true
	})
	return n, err
}

// Create validates and inserts doc, assigning an ID and timestamps.
func (c *KVCollection[T]) Create(ctx context.Context, doc T) (T, error) {
	var zero T
	if vs := doc.Validate(); len(vs) > 0 {
		return zero, &ValidationFailure{Violations: vs}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if doc.DocID().IsZero() {
		doc.SetDocID(domain.NewObjectID())
	}
	now := c.now()
	doc.Stamp(now, now)

	raw, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("%s: encode document: %w", c.schema.Name, err)
	}
	if err := c.checkUnique(ctx, raw, doc.DocID()); err != nil {
		return zero, err
	}
	if err := c.kv.Set(ctx, c.key(doc.DocID()), raw); err != nil {
		return zero, err
	}
	return doc, nil
}

// FindByIDAndUpdate overlays set on the stored document, re-validates it
// and writes it back. Nil values in set are ignored.
func (c *KVCollection[T]) FindByIDAndUpdate(ctx context.Context, id string, set map[string]any) (T, error) {
	var zero T
	oid, err := ParseID(id)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.get(ctx, oid)
	if err != nil || raw == nil {
		return zero, err
	}

	merged, err := MergeJSON(raw, set)
	if err != nil {
		return zero, fmt.Errorf("%s: apply update: %w", c.schema.Name, err)
	}
	doc, err := c.decode(merged)
	if err != nil {
		return zero, err
	}
	if vs := doc.Validate(); len(vs) > 0 {
		return zero, &ValidationFailure{Violations: vs}
	}
	doc.SetDocID(oid)
	doc.Stamp(time.Time{}, c.now())

	out, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("%s: encode document: %w", c.schema.Name, err)
	}
	if err := c.checkUnique(ctx, out, oid); err != nil {
		return zero, err
	}
	if err := c.kv.Set(ctx, c.key(oid), out); err != nil {
		return zero, err
	}
	return doc, nil
}

// FindOneAndDelete removes and returns the first document matching filter.
func (c *KVCollection[T]) FindOneAndDelete(ctx context.Context, filter Filter) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.findOneRaw(ctx, filter)
	if err != nil || raw == nil {
		return zero, err
	}
	doc, err := c.decode(raw)
	if err != nil {
		return zero, err
	}
	if err := c.kv.Delete(ctx, c.key(doc.DocID())); err != nil {
		return zero, err
	}
	return doc, nil
}

// checkUnique reports a UniquenessFailure when another document shares a
// unique field value with raw. Callers hold c.mu.
func (c *KVCollection[T]) checkUnique(ctx context.Context, raw []byte, self primitive.ObjectID) error {
	if len(c.schema.Unique) == 0 {
		return nil
	}
	selfID := self.Hex()

	var conflict string
	err := c.kv.Scan(ctx, c.prefix(), func(_, value []byte) bool {
		if gjson.GetBytes(value, IDField).String() == selfID {
			return true
		}
		for _, field := range c.schema.Unique {
			want := gjson.GetBytes(raw, field)
			if want.Exists() && gjson.GetBytes(value, field).String() == want.String() {
				conflict = field
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if conflict != "" {
		return &UniquenessFailure{Field: conflict}
	}
	return nil
}

// MergeJSON overlays set onto a JSON object. Nil values are skipped.
func MergeJSON(raw []byte, set map[string]any) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range set {
		if v == nil {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

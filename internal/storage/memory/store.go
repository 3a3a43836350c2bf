package memory

import (
	"context"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
)

// Store is an in-memory storage.Store.
type Store struct {
	kv       *KV
	students *storage.KVCollection[*domain.Student]
	users    *storage.KVCollection[*domain.User]
}

// New creates an empty in-memory store.
func New() *Store {
	kv := NewKV()
	return &Store{
		kv:       kv,
		students: storage.NewKVCollection(kv, storage.StudentsSchema, domain.NewStudent),
		users:    storage.NewKVCollection(kv, storage.UsersSchema, func() *domain.User { return &domain.User{} }),
	}
}

// Students returns the student collection.
func (s *Store) Students() storage.Collection[*domain.Student] { return s.students }

// Users returns the user collection.
func (s *Store) Users() storage.Collection[*domain.User] { return s.users }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)

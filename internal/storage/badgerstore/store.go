package badgerstore

import (
	"context"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Store is a storage.Store persisted in Badger.
type Store struct {
	engine   *Engine
	students *storage.KVCollection[*domain.Student]
	users    *storage.KVCollection[*domain.User]
}

// New opens the Badger engine and builds the collections.
func New(cfg Config, log logger.Logger) (*Store, error) {
	engine, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Store{
		engine:   engine,
		students: storage.NewKVCollection(engine, storage.StudentsSchema, domain.NewStudent),
		users:    storage.NewKVCollection(engine, storage.UsersSchema, func() *domain.User { return &domain.User{} }),
	}, nil
}

// Engine exposes the underlying engine (metrics registration).
func (s *Store) Engine() *Engine { return s.engine }

// Students returns the student collection.
func (s *Store) Students() storage.Collection[*domain.Student] { return s.students }

// Users returns the user collection.
func (s *Store) Users() storage.Collection[*domain.User] { return s.users }

// Ping reports whether the database is open.
func (s *Store) Ping(ctx context.Context) error { return s.engine.Ping(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.engine.Close() }

var _ storage.Store = (*Store)(nil)

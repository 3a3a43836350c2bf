// Package mongostore provides the MongoDB storage driver.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Config holds the connection and pool settings.
type Config struct {
	URI      string
	Database string

	MinPoolSize            uint64
	MaxPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration

	// ConnectRetries bounds the startup ping attempts.
	ConnectRetries uint64
}

// DefaultConfig returns the default pool settings for uri.
func DefaultConfig(uri string) Config {
	return Config{
		URI:                    uri,
		Database:               "educationelly",
		MinPoolSize:            5,
		MaxPoolSize:            50,
		MaxConnIdleTime:        30 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          45 * time.Second,
		ConnectRetries:         5,
	}
}

// Store is a storage.Store backed by MongoDB.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	students *Collection[*domain.Student]
	users    *Collection[*domain.User]
	closed   atomic.Bool
	logger   logger.Logger
}

// Connect opens the client and pings the primary, retrying with
// exponential backoff, then ensures indexes.
func Connect(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries), ctx)
	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx, readpref.Primary())
	}, policy, func(err error, wait time.Duration) {
		log.Warn("mongo ping failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		db:       db,
		students: NewCollection(db.Collection(storage.StudentsSchema.Name), domain.NewStudent),
		users:    NewCollection(db.Collection(storage.UsersSchema.Name), func() *domain.User { return &domain.User{} }),
		logger:   log,
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("mongo connected",
		"database", cfg.Database,
		"min_pool_size", cfg.MinPoolSize,
		"max_pool_size", cfg.MaxPoolSize)
	return s, nil
}

// EnsureIndexes creates the query and uniqueness indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: users indexes: %w", err)
	}

	_, err = s.students.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "school", Value: 1}}},
		{Keys: bson.D{{Key: "gradeLevel", Value: 1}}},
		{Keys: bson.D{{Key: "ellStatus", Value: 1}}},
		{Keys: bson.D{{Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "school", Value: 1}, {Key: "gradeLevel", Value: 1}}},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "ellStatus", Value: 1}}},
		{Keys: bson.D{{Key: "school", Value: 1}, {Key: "active", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: students indexes: %w", err)
	}
	return nil
}

// Students returns the student collection.
func (s *Store) Students() storage.Collection[*domain.Student] { return s.students }

// Users returns the user collection.
func (s *Store) Users() storage.Collection[*domain.User] { return s.users }

// Ping checks the primary. Lost connectivity is reported as
// storage.ErrClosed; any other failure is returned as-is.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	err := s.client.Ping(ctx, readpref.Primary())
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %v", storage.ErrClosed, err)
	}
	return err
}

// Close disconnects the client.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ storage.Store = (*Store)(nil)

package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

// Document is a record that can be stored in a Collection. Implementations
// are pointer types.
type Document interface {
	DocID() primitive.ObjectID
	SetDocID(primitive.ObjectID)
	Stamp(created, updated time.Time)
	Validate() []domain.FieldViolation
}

// IDField is the filter key that matches the record identifier.
const IDField = "id"

// Filter is a conjunction of equality matches keyed by JSON field name.
// Values are strings, bools or integers.
type Filter map[string]any

// Query selects, orders and pages documents.
type Query struct {
	Filter Filter
	// Search matches documents whose SearchField contains every word of
	// Search, case-insensitively.
	Search      string
	SearchField string
	// SortBy is a JSON field name; empty means "createdAt".
	SortBy   string
	SortDesc bool
	Skip     int64
	Limit    int64
}

// Collection is the persistence contract the services depend on.
//
// Lookups of a missing record return the zero T (nil) and no error.
// Writes report the sealed storage failures.
type Collection[T Document] interface {
	FindByID(ctx context.Context, id string) (T, error)
	// FindByIDs returns the documents that exist, in no particular order.
	// Malformed IDs are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	FindOne(ctx context.Context, filter Filter) (T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Create(ctx context.Context, doc T) (T, error)
	// FindByIDAndUpdate applies set, re-validates and returns the updated
	// document, or nil if there is no such record.
	FindByIDAndUpdate(ctx context.Context, id string, set map[string]any) (T, error)
	FindOneAndDelete(ctx context.Context, filter Filter) (T, error)
}

// Store groups the application's collections.
type Store interface {
	Students() Collection[*domain.Student]
	Users() Collection[*domain.User]
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Schema describes a collection to the KV-backed drivers.
type Schema struct {
	Name string
	// Unique lists JSON fields with a uniqueness constraint.
	Unique []string
}

// Collection schemas.
var (
	StudentsSchema = Schema{Name: "students"}
	UsersSchema    = Schema{Name: "users", Unique: []string{"email"}}
)

// ParseID converts a hex identifier, reporting a CastFailure when it is
// malformed.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, ok := domain.ParseObjectID(id)
	if !ok {
		return primitive.NilObjectID, &CastFailure{Value: id}
	}
	return oid, nil
}

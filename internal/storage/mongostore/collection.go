package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
)

// Collection is a storage.Collection over a MongoDB collection.
type Collection[T storage.Document] struct {
	coll   *mongo.Collection
	newDoc func() T
	now    func() time.Time
}

// NewCollection wraps coll. newDoc must return a fresh, non-nil document.
func NewCollection[T storage.Document](coll *mongo.Collection, newDoc func() T) *Collection[T] {
	return &Collection[T]{
		coll:   coll,
		newDoc: newDoc,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *Collection[T]) decodeOne(res *mongo.SingleResult) (T, error) {
	var zero T
	doc := c.newDoc()
	if err := res.Decode(doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, nil
		}
		return zero, err
	}
	return doc, nil
}

func (c *Collection[T]) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	var out []T
	for cur.Next(ctx) {
		doc := c.newDoc()
		if err := cur.Decode(doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

// FindByID returns the document with the given ID, or nil.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	oid, err := storage.ParseID(id)
	if err != nil {
		return zero, err
	}
	return c.decodeOne(c.coll.FindOne(ctx, bson.M{"_id": oid}))
}

// FindByIDs returns the existing documents among ids. Malformed IDs are
// skipped.
func (c *Collection[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := domain.ParseObjectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := c.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	return c.decodeAll(ctx, cur)
}

// Find returns the documents matching q.
func (c *Collection[T]) Find(ctx context.Context, q storage.Query) ([]T, error) {
	filter, err := toBSON(q.Filter)
	if err != nil {
		return nil, err
	}
	if terms := searchTerms(q.SearchField, q.Search); len(terms) > 0 {
		filter["$and"] = terms
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = storage.DefaultSortField
	}
	if sortBy == storage.IDField {
		sortBy = "_id"
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortBy, Value: dir}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(ctx, cur)
}

// FindOne returns the first document matching filter, or nil.
func (c *Collection[T]) FindOne(ctx context.Context, filter storage.Filter) (T, error) {
	var zero T
	f, err := toBSON(filter)
	if err != nil {
		return zero, err
	}
	return c.decodeOne(c.coll.FindOne(ctx, f))
}

// Count returns the number of documents matching filter.
func (c *Collection[T]) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	f, err := toBSON(filter)
	if err != nil {
		return 0, err
	}
	return c.coll.CountDocuments(ctx, f)
}

// Create validates and inserts doc, assigning an ID and timestamps.
func (c *Collection[T]) Create(ctx context.Context, doc T) (T, error) {
	var zero T
	if vs := doc.Validate(); len(vs) > 0 {
		return zero, &storage.ValidationFailure{Violations: vs}
	}
	if doc.DocID().IsZero() {
		doc.SetDocID(domain.NewObjectID())
	}
	now := c.now()
	doc.Stamp(now, now)

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return zero, mapWriteError(err)
	}
	return doc, nil
}

// FindByIDAndUpdate validates the merged document, then applies set with
// $set and returns the updated document. Nil values in set are ignored.
func (c *Collection[T]) FindByIDAndUpdate(ctx context.Context, id string, set map[string]any) (T, error) {
	var zero T
	oid, err := storage.ParseID(id)
	if err != nil {
		return zero, err
	}

	current, err := c.decodeOne(c.coll.FindOne(ctx, bson.M{"_id": oid}))
	if err != nil || current.DocID().IsZero() {
		return zero, err
	}
	if err := c.applyAndValidate(current, set); err != nil {
		return zero, err
	}

	update := bson.M{}
	for k, v := range set {
		if v != nil {
			update[k] = v
		}
	}
	update["updatedAt"] = c.now()

	res := c.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	doc, err := c.decodeOne(res)
	if err != nil {
		return zero, mapWriteError(err)
	}
	return doc, nil
}

// applyAndValidate overlays set on a copy of current through a BSON round
// trip and runs the document validators.
func (c *Collection[T]) applyAndValidate(current T, set map[string]any) error {
	raw, err := bson.Marshal(current)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range set {
		if v != nil {
			m[k] = v
		}
	}
	merged, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	candidate := c.newDoc()
	if err := bson.Unmarshal(merged, candidate); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	if vs := candidate.Validate(); len(vs) > 0 {
		return &storage.ValidationFailure{Violations: vs}
	}
	return nil
}

// FindOneAndDelete removes and returns the first document matching filter.
func (c *Collection[T]) FindOneAndDelete(ctx context.Context, filter storage.Filter) (T, error) {
	var zero T
	f, err := toBSON(filter)
	if err != nil {
		return zero, err
	}
	return c.decodeOne(c.coll.FindOneAndDelete(ctx, f))
}

// toBSON converts a storage filter, translating the ID field.
func toBSON(filter storage.Filter) (bson.M, error) {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if k == storage.IDField {
			oid, err := storage.ParseID(fmt.Sprint(v))
			if err != nil {
				return nil, err
			}
			out["_id"] = oid
			continue
		}
		out[k] = v
	}
	return out, nil
}

// searchTerms builds one case-insensitive regex clause per word. All words
// must match.
func searchTerms(field, search string) bson.A {
	if field == "" {
		return nil
	}
	words := strings.Fields(search)
	if len(words) == 0 {
		return nil
	}
	terms := make(bson.A, 0, len(words))
	for _, w := range words {
		terms = append(terms, bson.M{field: bson.M{
			"$regex":   regexp.QuoteMeta(w),
			"$options": "i",
		}})
	}
	return terms
}

var dupKeyIndex = regexp.MustCompile(`index: (\S+) dup key`)

// duplicateField extracts the field name from a duplicate key message,
// e.g. "index: email_1 dup key" yields "email".
func duplicateField(msg string) string {
	m := dupKeyIndex.FindStringSubmatch(msg)
	if m == nil {
		return "field"
	}
	name := m[1]
	if i := strings.Index(name, "_"); i > 0 {
		name = name[:i]
	}
	return name
}

func mapWriteError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return &storage.UniquenessFailure{Field: duplicateField(err.Error())}
}

var (
	_ storage.Collection[*domain.Student] = (*Collection[*domain.Student])(nil)
	_ storage.Collection[*domain.User]    = (*Collection[*domain.User])(nil)
)

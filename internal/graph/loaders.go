package graph

import (
	"context"
	"strings"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/gateway/loader"
)

// Loaders are the batch loaders of one request. They are never shared
// between requests.
type Loaders struct {
	Students *loader.Loader[string, *domain.Student]
	Users    *loader.Loader[string, *domain.User]
}

type loadersKey struct{}

// loaderKey is the cache key for an object id. Records are keyed by
// ID.Hex(), which is lowercase, so client ids are folded to match.
func loaderKey(id string) string { return strings.ToLower(id) }

// NewLoaders creates a fresh set of loaders.
func (r *Resolver) NewLoaders() *Loaders {
	observe := loader.WithBatchObserver(r.metrics.BatchDispatched)
	return &Loaders{
		Students: loader.New(func(ctx context.Context, ids []string) ([]*domain.Student, error) {
			found, err := r.students.GetMany(ctx, ids)
			if err != nil {
				return nil, err
			}
			return loader.OrderByKey(ids, found, func(s *domain.Student) string { return s.ID.Hex() }), nil
		}, observe),
		Users: loader.New(func(ctx context.Context, ids []string) ([]*domain.User, error) {
			found, err := r.users.GetMany(ctx, ids)
			if err != nil {
				return nil, err
			}
			return loader.OrderByKey(ids, found, func(u *domain.User) string { return u.ID.Hex() }), nil
		}, observe),
	}
}

// WithLoaders attaches a fresh set of loaders to ctx. The HTTP handler
// calls it once per request.
func (r *Resolver) WithLoaders(ctx context.Context) context.Context {
	return context.WithValue(ctx, loadersKey{}, r.NewLoaders())
}

// loaders returns the request loaders, creating an unshared set when ctx
// carries none.
func (r *Resolver) loaders(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey{}).(*Loaders); ok {
		return l
	}
	return r.NewLoaders()
}

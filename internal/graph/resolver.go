package graph

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"
	"golang.org/x/time/rate"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
)

// DefaultSlowResolver is the duration after which a resolver is logged.
const DefaultSlowResolver = 500 * time.Millisecond

// DefaultFieldCosts are the admission costs of the expensive fields.
var DefaultFieldCosts = map[string]int{
	"Query.searchStudents": 5,
	"Mutation.signUp":      10,
	"Mutation.signIn":      10,
}

// Config configures a Resolver.
type Config struct {
	Students *service.StudentService
	Users    *service.UserService
	Metrics  *metric.Registry
	// SlowResolver is the warning threshold; zero uses DefaultSlowResolver.
	SlowResolver time.Duration
}

// Resolver holds the services behind the schema.
type Resolver struct {
	students *service.StudentService
	users    *service.UserService
	metrics  *metric.Registry
	logger   logger.Logger

	slowAfter time.Duration
	slowLog   *rate.Sometimes
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	slow := cfg.SlowResolver
	if slow <= 0 {
		slow = DefaultSlowResolver
	}
	return &Resolver{
		students:  cfg.Students,
		users:     cfg.Users,
		metrics:   cfg.Metrics,
		logger:    log,
		slowAfter: slow,
		slowLog:   &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

type resolveFn func(ctx context.Context, p graphql.ResolveParams) (any, error)

// resolve adapts fn to graphql-go: errors are normalized by
// service.HandleError, thunks are wrapped the same way, and slow calls are
// logged at most once per interval.
func (r *Resolver) resolve(fn resolveFn) graphql.FieldResolveFn {
	handled := service.WithErrorHandling(fn)
	return func(p graphql.ResolveParams) (any, error) {
		start := time.Now()
		v, err := handled(p.Context, p)
		if d := time.Since(start); d > r.slowAfter {
			r.slowLog.Do(func() {
				logger.L(p.Context).Warn("slow resolver",
					"field", p.Info.ParentType.Name()+"."+p.Info.FieldName,
					"duration_ms", d.Milliseconds())
			})
		}
		if err != nil {
			return nil, err
		}
		if th, ok := v.(func() (any, error)); ok {
			return func() (any, error) {
				out, err := th()
				if err != nil {
					return nil, service.HandleError(err)
				}
				return out, nil
			}, nil
		}
		return v, nil
	}
}

// requireUser returns the caller or ErrNotAuthenticated.
func requireUser(ctx context.Context) (*domain.Identity, error) {
	me := session.IdentityFromContext(ctx)
	if me == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return me, nil
}

// guarded wraps fn with the requireUser check.
func guarded(fn resolveFn) resolveFn {
	return func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		if _, err := requireUser(ctx); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

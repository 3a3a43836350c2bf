package main

import (
	"context"
	"fmt"
	"maps"

	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/admission"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/ratelimit"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/graph"
	"github.com/educationelly/educationelly-graphql/internal/infra/buildinfo"
	"github.com/educationelly/educationelly-graphql/internal/server/config"
	"github.com/educationelly/educationelly-graphql/internal/server/httpserver"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/storage/badgerstore"
	"github.com/educationelly/educationelly-graphql/internal/storage/memory"
	"github.com/educationelly/educationelly-graphql/internal/storage/mongostore"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/tracer"
)

const redisConnectRetries = 5

type closer struct {
	name string
	fn   func(context.Context) error
}

// gateway is the assembled process.
type gateway struct {
	server  *httpserver.Server
	store   storage.Store
	metrics *metric.Registry
	// closers are registered with the shutdown handler in order, so they
	// run last-in first-out.
	closers []closer
}

func (g *gateway) onClose(name string, fn func(context.Context) error) {
	g.closers = append(g.closers, closer{name: name, fn: fn})
}

// build wires every component from cfg. On error, components opened so
// far are closed.
func build(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (_ *gateway, err error) {
	g := &gateway{}
	defer func() {
		if err != nil {
			for i := len(g.closers) - 1; i >= 0; i-- {
				_ = g.closers[i].fn(context.Background())
			}
		}
	}()

	stopTracing, err := tracer.Init(ctx, tracerConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	g.onClose("tracing", stopTracing)

	g.metrics = metric.NewRegistry()

	g.store, err = openStore(ctx, cfg, g.metrics, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	g.onClose("storage", func(context.Context) error { return g.store.Close() })

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.JWTExpiry,
	}, log)
	if err != nil {
		return nil, err
	}

	resolver := graph.NewResolver(graph.Config{
		Students:     service.NewStudentService(g.store.Students(), log),
		Users:        service.NewUserService(g.store.Users(), tokens, log),
		Metrics:      g.metrics,
		SlowResolver: cfg.Server.SlowResolver,
	}, log)
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	gql := httpserver.NewGraphQLHandler(httpserver.GraphQLConfig{
		Schema:    schema,
		Admission: admission.New(schema, admissionConfig(cfg)),
		Formatter: format.New(format.Config{Production: cfg.Production()}, log),
		Metrics:   g.metrics,
		Prepare:   resolver.WithLoaders,
	})

	cookie := session.CookieConfigFor(cfg.Production())
	cookie.Domain = cfg.Auth.CookieDomain
	cookie.MaxAge = cfg.Auth.JWTExpiry

	limiter, err := newLimiter(ctx, g, cfg, log)
	if err != nil {
		return nil, err
	}

	handler := httpserver.NewRouter(httpserver.RouterConfig{
		GraphQL:            gql,
		Identity:           session.NewMiddleware(tokens, cookie, g.metrics.CredentialRejected),
		Limiter:            limiter,
		Store:              g.store,
		Metrics:            g.metrics,
		Logger:             log,
		CORSAllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		BodyLimit:          cfg.Server.BodyLimit,
		ServiceName:        cfg.Telemetry.Tracing.ServiceName,
		Version:            buildinfo.Get().Version,
		MetricsEnabled:     cfg.Telemetry.MetricsEnabled,
	})
	g.server = httpserver.New(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, handler)
	return g, nil
}

func openStore(ctx context.Context, cfg *config.ServerConfig, reg *metric.Registry, log logger.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		m := cfg.Storage.Mongo
		return mongostore.Connect(ctx, mongostore.Config{
			URI:                    m.URI,
			Database:               m.Database,
			MinPoolSize:            m.MinPoolSize,
			MaxPoolSize:            m.MaxPoolSize,
			MaxConnIdleTime:        m.MaxConnIdleTime,
			ServerSelectionTimeout: m.ServerSelectionTimeout,
			SocketTimeout:          m.SocketTimeout,
			ConnectRetries:         m.ConnectRetries,
		}, log)
	case config.DriverBadger:
		b := cfg.Storage.Badger
		bc := badgerstore.DefaultConfig(b.DataDir)
		bc.InMemory = b.InMemory
		bc.SyncWrites = b.SyncWrites
		if b.GCInterval > 0 {
			bc.GCInterval = b.GCInterval
		}
		s, err := badgerstore.New(bc, log)
		if err != nil {
			return nil, err
		}
		s.Engine().RegisterMetrics(reg.Registerer())
		return s, nil
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newLimiter(ctx context.Context, g *gateway, cfg *config.ServerConfig, log logger.Logger) (*ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		log.Warn("rate limiting disabled")
		return nil, nil
	}

	var store ratelimit.Store
	switch rl.Store {
	case config.RateLimitRedis:
		client, err := ratelimit.ConnectRedis(ctx, rl.RedisURL, redisConnectRetries, log)
		if err != nil {
			return nil, err
		}
		g.onClose("redis", func(context.Context) error { return client.Close() })
		store = ratelimit.NewRedisStore(client, rl.RedisPrefix)
	default:
		mem := ratelimit.NewMemoryStore()
		sweep := rl.SweepInterval
		if sweep <= 0 {
			sweep = config.DefaultSweepInterval
		}
		sweepCtx, stop := context.WithCancel(context.Background())
		go mem.Run(sweepCtx, sweep)
		g.onClose("ratelimit-sweep", func(context.Context) error { stop(); return nil })
		store = mem
	}

	return ratelimit.New(store, ratelimit.Config{
		Policies: []ratelimit.Policy{
			ratelimit.GeneralPolicy(int64(rl.GeneralLimit), rl.Window),
			ratelimit.AuthPolicy(int64(rl.AuthLimit), rl.Window),
		},
		TrustProxy: cfg.Server.TrustProxy,
		OnReject:   g.metrics.RateLimitRejected,
	}, log), nil
}

func admissionConfig(cfg *config.ServerConfig) admission.Config {
	ac := admission.DefaultConfig()
	ac.MaxDepth = cfg.Admission.MaxDepth
	ac.MaxComplexity = cfg.Admission.MaxComplexity
	ac.DefaultListSize = cfg.Admission.DefaultListSize
	ac.FieldCosts = maps.Clone(graph.DefaultFieldCosts)
	maps.Copy(ac.FieldCosts, cfg.Admission.FieldCosts)
	return ac
}

func tracerConfig(cfg *config.ServerConfig) tracer.Config {
	t := cfg.Telemetry.Tracing
	return tracer.Config{
		ServiceName: t.ServiceName,
		Version:     buildinfo.Get().Version,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		Headers:     tracer.ParseHeaders(t.Headers),
		Timeout:     t.Timeout,
		Sampler:     t.Sampler,
		SamplerArg:  t.SamplerArg,
		Required:    t.Required,
	}
}

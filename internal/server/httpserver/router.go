package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/ratelimit"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/tracer"
)

// Route paths.
const (
	PathGraphQL = "/graphql"
	PathHealth  = "/health"
	PathMetrics = "/metrics"
	PathRoot    = "/"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	GraphQL  http.Handler
	Identity *session.Middleware
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	Store   Pinger
	Metrics *metric.Registry
	Logger  logger.Logger

	// CORSAllowedOrigins lists the allowed origins; credentials are
	// allowed, so "*" is never sent back literally.
	CORSAllowedOrigins []string
	BodyLimit          int64
	ServiceName        string
	Version            string
	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool
}

// NewRouter builds the router.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		RequestID(cfg.Logger),
		Recover(),
		AccessLog(),
		Metrics(cfg.Metrics, PathHealth, PathMetrics),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		format.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	r.Get(PathRoot, BannerHandler(cfg.Version))
	r.Get(PathHealth, HealthHandler(cfg.Store, 0))
	if cfg.MetricsEnabled {
		r.Handle(PathMetrics, cfg.Metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", session.HeaderName, RequestIDHeader},
		ExposedHeaders:   []string{"Server-Timing", RequestIDHeader, "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "RateLimit-Policy", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	pipeline := []Middleware{
		c.Handler,
		BodyLimit(cfg.BodyLimit),
		cfg.Identity.Handler,
	}
	if cfg.Limiter != nil {
		pipeline = append(pipeline, cfg.Limiter.Middleware)
	}
	gql := Chain(cfg.GraphQL, pipeline...)
	r.Handle(PathGraphQL, gql)

	return tracer.Middleware(cfg.ServiceName)(r)
}

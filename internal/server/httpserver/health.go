package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the /health body.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler pings the store. A closed or unreachable store is
// DEGRADED; any other failure is ERROR.
func HealthHandler(p Pinger, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		err := p.Ping(ctx)
		switch {
		case err == nil:
			format.WriteJSON(w, http.StatusOK, HealthStatus{Status: "OK", Database: "connected"})
		case errors.Is(err, storage.ErrClosed):
			logger.L(r.Context()).Warn("health check degraded", "error", err)
			format.WriteJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "DEGRADED", Database: "disconnected"})
		default:
			logger.L(r.Context()).Error("health check failed", "error", err)
			format.WriteJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "ERROR", Database: "error"})
		}
	}
}

// Banner is the / body.
type Banner struct {
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
	GraphQL string `json:"graphql"`
	Health  string `json:"health"`
}

// BannerHandler describes the service endpoints.
func BannerHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format.WriteJSON(w, http.StatusOK, Banner{
			Message: "EducationELLy GraphQL API",
			Version: version,
			GraphQL: "/graphql",
			Health:  "/health",
		})
	}
}

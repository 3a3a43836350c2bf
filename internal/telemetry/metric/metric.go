package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes the gateway metrics.
const Namespace = "elly"

// DurationBuckets are the request latency buckets in seconds.
var DurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Gateway metrics
	AdmissionRejections *prometheus.CounterVec
	RateLimited         *prometheus.CounterVec
	AuthRejections      prometheus.Counter
	LoaderBatchSize     prometheus.Histogram
	MaskedErrors        prometheus.Counter
	Operations          *prometheus.CounterVec
}

// NewRegistry creates the metrics and registers them, together with the
// Go and process collectors, on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: DurationBuckets,
		}, []string{"method", "route", "status"}),
		AdmissionRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphql_admission_rejections_total",
			Help: "Operations rejected by admission control, by reason.",
		}, []string{"reason"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphql_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by window.",
		}, []string{"window"}),
		AuthRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphql_credential_rejections_total",
			Help: "Requests rejected for a present but invalid credential.",
		}),
		LoaderBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphql_loader_batch_size",
			Help:    "Keys per batch loader dispatch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		MaskedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphql_masked_errors_total",
			Help: "Errors replaced by a generic error in production.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphql_operations_total",
			Help: "Executed GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
		r.RequestsTotal,
		r.RequestDuration,
		r.AdmissionRejections,
		r.RateLimited,
		r.AuthRejections,
		r.LoaderBatchSize,
		r.MaskedErrors,
		r.Operations,
	)
	return r
}

// Registerer exposes the registry for extra collectors (e.g. storage).
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Gatherer exposes the registry for tests and the HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Handler returns the /metrics handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	code := strconv.Itoa(status)
	r.RequestsTotal.WithLabelValues(method, route, code).Inc()
	r.RequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// AdmissionRejected counts an admission rejection.
func (r *Registry) AdmissionRejected(reason string) {
	if r == nil {
		return
	}
	r.AdmissionRejections.WithLabelValues(reason).Inc()
}

// RateLimitRejected counts a rate-limit rejection.
func (r *Registry) RateLimitRejected(window string) {
	if r == nil {
		return
	}
	r.RateLimited.WithLabelValues(window).Inc()
}

// CredentialRejected counts a rejected credential.
func (r *Registry) CredentialRejected() {
	if r == nil {
		return
	}
	r.AuthRejections.Inc()
}

// BatchDispatched records a loader batch size.
func (r *Registry) BatchDispatched(size int) {
	if r == nil {
		return
	}
	r.LoaderBatchSize.Observe(float64(size))
}

// ErrorMasked counts a masked error.
func (r *Registry) ErrorMasked() {
	if r == nil {
		return
	}
	r.MaskedErrors.Inc()
}

// OperationExecuted counts an executed operation.
func (r *Registry) OperationExecuted(opType string, failed bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	r.Operations.WithLabelValues(opType, outcome).Inc()
}

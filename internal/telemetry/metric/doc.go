// Package metric provides the Prometheus metrics for the gateway.
//
// Metrics include:
//
//   - HTTP request counts and latency histograms per route
//   - Admission and rate-limit rejections
//   - Credential rejections
//   - Batch loader sizes
//   - Masked error counts
//
// Metrics are exposed at /metrics in Prometheus text format. Every method
// is safe on a nil *Registry, which records nothing.
package metric

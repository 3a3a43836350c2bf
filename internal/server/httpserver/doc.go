// Package httpserver provides the HTTP server of the gateway.
//
// The router is built on chi. GraphQL requests pass, in order, through
// request ID, panic recovery, metrics, CORS, the body limit, identity
// resolution and rate limiting before the GraphQL handler parses, admits,
// validates and executes them. /health, /metrics and / bypass that
// pipeline.
package httpserver

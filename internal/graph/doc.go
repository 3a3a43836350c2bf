// Package graph defines the GraphQL schema and its resolvers.
//
// Resolvers are thin: they read arguments, enforce the per-operation
// authorization guard and call the services. Every resolver error passes
// through service.HandleError, so only typed errors leave this package.
//
// Record lookups by ID go through per-request batch loaders attached with
// Resolver.WithLoaders. Loader lookups return thunks, which the executor
// forces after all sibling fields have queued their keys.
package graph

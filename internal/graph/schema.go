package graph

import (
	"github.com/graphql-go/graphql"
)

// NewSchema builds the schema served by the gateway.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    r.queryType(),
		Mutation: r.mutationType(),
	})
}

package admission

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

func testSchema(t *testing.T) graphql.Schema {
	t.Helper()

	limitArg := graphql.FieldConfigArgument{"limit": &graphql.ArgumentConfig{Type: graphql.Int}}
	var student *graphql.Object
	student = graphql.NewObject(graphql.ObjectConfig{
		Name: "Student",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":         &graphql.Field{Type: graphql.ID},
				"fullName":   &graphql.Field{Type: graphql.String},
				"buddy":      &graphql.Field{Type: student},
				"classmates": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(student)), Args: limitArg},
			}
		}),
	})
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"students": &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(student)), Args: limitArg},
			"student": &graphql.Field{Type: student, Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.ID},
			}},
		},
	})
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	require.NoError(t, err)
	return schema
}

func parse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: src})
	require.NoError(t, err)
	return doc
}

func nested(buddies int) string {
	q := "{ student(id: \"1\") { "
	for i := 0; i < buddies; i++ {
		q += "buddy { "
	}
	q += "id"
	for i := 0; i < buddies; i++ {
		q += " }"
	}
	return q + " } }"
}

func TestCheck_Depth(t *testing.T) {
	c := New(testSchema(t), DefaultConfig())

	tests := []struct {
		name    string
		query   string
		depth   int
		reject  bool
		message string
	}{
		{name: "flat", query: "{ students { id } }", depth: 1},
		{name: "at limit", query: nested(6), depth: 7},
		{name: "over limit", query: nested(7), depth: 8, reject: true,
			message: "'anonymous' exceeds maximum operation depth of 7"},
		{name: "introspection ignored", query: "{ __schema { types { fields { type { name } } } } }", depth: 0},
		{name: "fragments expanded",
			query: `query Deep { student(id: "1") { ...F } } fragment F on Student { buddy { buddy { id } } }`,
			depth: 3},
		{name: "inline fragments expanded",
			query: `{ student(id: "1") { ... on Student { buddy { id } } } }`,
			depth: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Check(parse(t, tt.query), "", nil)
			assert.Equal(t, tt.depth, res.Depth)
			if !tt.reject {
				assert.NoError(t, err)
				return
			}
			de, ok := domain.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeQueryTooComplex, de.Code)
			assert.Equal(t, tt.message, de.Message)
			assert.Equal(t, tt.depth, de.Extensions()["depth"])
			assert.Equal(t, 7, de.Extensions()["maxDepth"])
			assert.Equal(t, ReasonDepth, Reason(err))
		})
	}
}

func TestCheck_Complexity(t *testing.T) {
	c := New(testSchema(t), DefaultConfig())

	tests := []struct {
		name       string
		query      string
		vars       map[string]any
		complexity int
		reject     bool
	}{
		{name: "default list size", query: "{ students { id fullName } }", complexity: 21},
		{name: "limit literal", query: "{ students(limit: 5) { classmates { id } } }", complexity: 1 + 5*(1+10)},
		{name: "over budget", query: "{ students(limit: 100) { classmates { id } } }", complexity: 1 + 100*11, reject: true},
		{name: "limit variable",
			query:      "query Q($n: Int) { students(limit: $n) { id fullName classmates { id } } }",
			vars:       map[string]any{"n": float64(200)},
			complexity: 1 + 200*(2+1+10), reject: true},
		{name: "object field not multiplied", query: `{ student(id: "1") { buddy { id } } }`, complexity: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Check(parse(t, tt.query), "", tt.vars)
			assert.Equal(t, tt.complexity, res.Complexity)
			if !tt.reject {
				assert.NoError(t, err)
				return
			}
			de, ok := domain.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeQueryTooComplex, de.Code)
			assert.Contains(t, de.Message, "Query is too complex:")
			assert.Contains(t, de.Message, "Maximum allowed: 1000")
			assert.Equal(t, tt.complexity, de.Extensions()["complexity"])
			assert.Equal(t, 1000, de.Extensions()["maxComplexity"])
			assert.Equal(t, ReasonComplexity, Reason(err))
		})
	}
}

func TestCheck_FieldCosts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldCosts = map[string]int{"Query.students": 50, "Student.fullName": 3}
	c := New(testSchema(t), cfg)

	res, err := c.Check(parse(t, "{ students(limit: 2) { fullName } }"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 50+2*3, res.Complexity)
}

func TestCheck_OperationSelection(t *testing.T) {
	c := New(testSchema(t), DefaultConfig())
	doc := parse(t, "query A { students { id } } query B { "+nested(7)[2:])

	res, err := c.Check(doc, "A", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", res.Operation)

	_, err = c.Check(doc, "B", nil)
	assert.Contains(t, err.Error(), "'B' exceeds maximum operation depth")

	// Ambiguous documents are left to validation.
	_, err = c.Check(doc, "", nil)
	assert.NoError(t, err)
}

func TestCheck_FragmentCycle(t *testing.T) {
	c := New(testSchema(t), DefaultConfig())
	doc := parse(t, `{ student(id: "1") { ...A } }
		fragment A on Student { buddy { ...B } }
		fragment B on Student { ...A }`)

	res, err := c.Check(doc, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Depth)
}

func TestReason(t *testing.T) {
	assert.Empty(t, Reason(nil))
	assert.Empty(t, Reason(domain.ErrRateLimited))
}

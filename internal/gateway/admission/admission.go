// Package admission rejects GraphQL operations whose selection tree is too
// deep or too expensive, before validation and execution.
package admission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

// Default budgets.
const (
	DefaultMaxDepth      = 7
	DefaultMaxComplexity = 1000
	// DefaultListSize is the multiplier for list fields without a limit
	// argument.
	DefaultListSize = 10
)

// Rejection reasons reported by Reason.
const (
	ReasonDepth      = "depth"
	ReasonComplexity = "complexity"
)

// Config holds the admission budgets.
type Config struct {
	MaxDepth        int
	MaxComplexity   int
	DefaultListSize int
	// FieldCosts overrides the cost of a field, keyed by "Type.field".
	FieldCosts map[string]int
	// ListSizeArgs are the argument names read as a list size estimate.
	ListSizeArgs []string
}

// DefaultConfig returns the default budgets.
func DefaultConfig() Config {
	return Config{
		MaxDepth:        DefaultMaxDepth,
		MaxComplexity:   DefaultMaxComplexity,
		DefaultListSize: DefaultListSize,
		ListSizeArgs:    []string{"limit", "first"},
	}
}

// Result is the measured shape of an admitted operation.
type Result struct {
	Operation  string
	Depth      int
	Complexity int
}

// Controller measures operations against a schema.
type Controller struct {
	schema graphql.Schema
	cfg    Config
}

// New creates a Controller. Zero budgets fall back to the defaults.
func New(schema graphql.Schema, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxComplexity <= 0 {
		cfg.MaxComplexity = def.MaxComplexity
	}
	if cfg.DefaultListSize <= 0 {
		cfg.DefaultListSize = def.DefaultListSize
	}
	if len(cfg.ListSizeArgs) == 0 {
		cfg.ListSizeArgs = def.ListSizeArgs
	}
	return &Controller{schema: schema, cfg: cfg}
}

// Check measures the operation selected by operationName (or the only
// operation in doc) and returns a QUERY_TOO_COMPLEX error when it exceeds
// either budget. Documents without a matching operation are admitted;
// validation reports them.
func (c *Controller) Check(doc *ast.Document, operationName string, variables map[string]any) (Result, error) {
	w := newWalker(c, doc, variables)

	for _, op := range w.operations(operationName) {
		name := "anonymous"
		if op.Name != nil && op.Name.Value != "" {
			name = op.Name.Value
		}
		res := Result{Operation: name}

		res.Depth = max(w.depth(op.SelectionSet, 0, map[string]bool{}), 0)
		if res.Depth > c.cfg.MaxDepth {
			return res, domain.NewStructuralError(domain.CodeQueryTooComplex,
				fmt.Sprintf("'%s' exceeds maximum operation depth of %d", name, c.cfg.MaxDepth)).
				WithField("depth", res.Depth).
				WithField("maxDepth", c.cfg.MaxDepth)
		}

		res.Complexity = w.cost(op.SelectionSet, c.rootType(op), map[string]bool{})
		if res.Complexity > c.cfg.MaxComplexity {
			return res, domain.NewStructuralError(domain.CodeQueryTooComplex,
				fmt.Sprintf("Query is too complex: %d. Maximum allowed: %d", res.Complexity, c.cfg.MaxComplexity)).
				WithField("complexity", res.Complexity).
				WithField("maxComplexity", c.cfg.MaxComplexity)
		}
		return res, nil
	}
	return Result{}, nil
}

// Reason returns ReasonDepth or ReasonComplexity for an admission error,
// or "" for any other error.
func Reason(err error) string {
	de, ok := domain.AsDomainError(err)
	if !ok || de.Code != domain.CodeQueryTooComplex {
		return ""
	}
	if _, ok := de.Fields["maxDepth"]; ok {
		return ReasonDepth
	}
	return ReasonComplexity
}

func (c *Controller) rootType(op *ast.OperationDefinition) graphql.Type {
	var root *graphql.Object
	switch op.Operation {
	case ast.OperationTypeMutation:
		root = c.schema.MutationType()
	case ast.OperationTypeSubscription:
		root = c.schema.SubscriptionType()
	default:
		root = c.schema.QueryType()
	}
	if root == nil {
		return nil
	}
	return root
}

type walker struct {
	c         *Controller
	ops       []*ast.OperationDefinition
	fragments map[string]*ast.FragmentDefinition
	variables map[string]any
}

func newWalker(c *Controller, doc *ast.Document, variables map[string]any) *walker {
	w := &walker{c: c, fragments: map[string]*ast.FragmentDefinition{}, variables: variables}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			w.ops = append(w.ops, d)
		case *ast.FragmentDefinition:
			if d.Name != nil {
				w.fragments[d.Name.Value] = d
			}
		}
	}
	return w
}

func (w *walker) operations(name string) []*ast.OperationDefinition {
	if name == "" {
		if len(w.ops) == 1 {
			return w.ops
		}
		return nil
	}
	for _, op := range w.ops {
		if op.Name != nil && op.Name.Value == name {
			return []*ast.OperationDefinition{op}
		}
	}
	return nil
}

// depth returns the deepest field level below set. Top-level fields are
// at level 0. Fragments are expanded; seen guards fragment cycles.
func (w *walker) depth(set *ast.SelectionSet, level int, seen map[string]bool) int {
	if set == nil {
		return level - 1
	}
	deepest := level - 1
	for _, sel := range set.Selections {
		var d int
		switch s := sel.(type) {
		case *ast.Field:
			if isIntrospection(s) {
				continue
			}
			d = level
			if s.SelectionSet != nil {
				d = w.depth(s.SelectionSet, level+1, seen)
			}
		case *ast.InlineFragment:
			d = w.depth(s.SelectionSet, level, seen)
		case *ast.FragmentSpread:
			frag := w.fragment(s, seen)
			if frag == nil {
				continue
			}
			d = w.depth(frag.SelectionSet, level, withSeen(seen, frag.Name.Value))
		}
		deepest = max(deepest, d)
	}
	return deepest
}

// cost sums field costs below set. parent is the type owning the fields.
func (w *walker) cost(set *ast.SelectionSet, parent graphql.Type, seen map[string]bool) int {
	if set == nil {
		return 0
	}
	total := 0
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			if isIntrospection(s) {
				continue
			}
			total += w.fieldCost(s, parent, seen)
		case *ast.InlineFragment:
			t := parent
			if s.TypeCondition != nil && s.TypeCondition.Name != nil {
				if named := w.c.schema.Type(s.TypeCondition.Name.Value); named != nil {
					t = named
				}
			}
			total += w.cost(s.SelectionSet, t, seen)
		case *ast.FragmentSpread:
			frag := w.fragment(s, seen)
			if frag == nil {
				continue
			}
			t := parent
			if frag.TypeCondition != nil && frag.TypeCondition.Name != nil {
				if named := w.c.schema.Type(frag.TypeCondition.Name.Value); named != nil {
					t = named
				}
			}
			total += w.cost(frag.SelectionSet, t, withSeen(seen, frag.Name.Value))
		}
	}
	return total
}

func (w *walker) fieldCost(f *ast.Field, parent graphql.Type, seen map[string]bool) int {
	own := 1
	var fieldType graphql.Type
	if def := fieldDef(parent, f.Name.Value); def != nil {
		fieldType = def.Type
	}
	if parent != nil {
		if c, ok := w.c.cfg.FieldCosts[parent.Name()+"."+f.Name.Value]; ok {
			own = c
		}
	}
	if f.SelectionSet == nil {
		return own
	}

	child := w.cost(f.SelectionSet, namedType(fieldType), seen)
	if isList(fieldType) {
		child *= w.listSize(f)
	}
	return own + child
}

func (w *walker) listSize(f *ast.Field) int {
	for _, arg := range f.Arguments {
		if arg.Name == nil || !w.isSizeArg(arg.Name.Value) {
			continue
		}
		if n, ok := w.intValue(arg.Value); ok && n > 0 {
			return n
		}
	}
	return w.c.cfg.DefaultListSize
}

func (w *walker) isSizeArg(name string) bool {
	for _, a := range w.c.cfg.ListSizeArgs {
		if a == name {
			return true
		}
	}
	return false
}

func (w *walker) intValue(v ast.Value) (int, bool) {
	switch val := v.(type) {
	case *ast.IntValue:
		n, err := strconv.Atoi(val.Value)
		return n, err == nil
	case *ast.Variable:
		if val.Name == nil {
			return 0, false
		}
		switch n := w.variables[val.Name.Value].(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			return int(n), true
		}
	}
	return 0, false
}

func (w *walker) fragment(s *ast.FragmentSpread, seen map[string]bool) *ast.FragmentDefinition {
	if s.Name == nil || seen[s.Name.Value] {
		return nil
	}
	return w.fragments[s.Name.Value]
}

func withSeen(seen map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(seen)+1)
	for k := range seen {
		next[k] = true
	}
	next[name] = true
	return next
}

func isIntrospection(f *ast.Field) bool {
	return f.Name != nil && strings.HasPrefix(f.Name.Value, "__")
}

type fielded interface {
	Fields() graphql.FieldDefinitionMap
}

func fieldDef(t graphql.Type, name string) *graphql.FieldDefinition {
	if t == nil {
		return nil
	}
	if o, ok := t.(fielded); ok {
		return o.Fields()[name]
	}
	return nil
}

func isList(t graphql.Type) bool {
	for t != nil {
		switch v := t.(type) {
		case *graphql.NonNull:
			t = v.OfType
		case *graphql.List:
			return true
		default:
			return false
		}
	}
	return false
}

func namedType(t graphql.Type) graphql.Type {
	for t != nil {
		switch v := t.(type) {
		case *graphql.NonNull:
			t = v.OfType
		case *graphql.List:
			t = v.OfType
		default:
			return t
		}
	}
	return nil
}

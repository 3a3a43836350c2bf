package graph

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/storage"
)

func (r *Resolver) queryType() *graphql.Object {
	listArgs := graphql.FieldConfigArgument{
		"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
		"offset":     &graphql.ArgumentConfig{Type: graphql.Int},
		"school":     &graphql.ArgumentConfig{Type: graphql.String},
		"gradeLevel": &graphql.ArgumentConfig{Type: graphql.String},
		"ellStatus":  &graphql.ArgumentConfig{Type: graphql.String},
		"active":     &graphql.ArgumentConfig{Type: graphql.Boolean},
	}
	countArgs := graphql.FieldConfigArgument{
		"school":     &graphql.ArgumentConfig{Type: graphql.String},
		"gradeLevel": &graphql.ArgumentConfig{Type: graphql.String},
		"ellStatus":  &graphql.ArgumentConfig{Type: graphql.String},
		"active":     &graphql.ArgumentConfig{Type: graphql.Boolean},
	}
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.resolve(r.me),
			},
			"user": &graphql.Field{
				Type:    userType,
				Args:    idArg,
				Resolve: r.resolve(guarded(r.user)),
			},
			"students": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(studentType))),
				Args:    listArgs,
				Resolve: r.resolve(guarded(r.studentList)),
			},
			"student": &graphql.Field{
				Type:    studentType,
				Args:    idArg,
				Resolve: r.resolve(guarded(r.student)),
			},
			"searchStudents": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(studentType))),
				Args: graphql.FieldConfigArgument{
					"term":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.resolve(guarded(r.searchStudents)),
			},
			"studentCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Args:    countArgs,
				Resolve: r.resolve(guarded(r.studentCount)),
			},
		},
	})
}

// me is open to anonymous callers and resolves to null for them.
func (r *Resolver) me(ctx context.Context, _ graphql.ResolveParams) (any, error) {
	me := session.IdentityFromContext(ctx)
	if me == nil || !domain.IsObjectIDHex(me.ID) {
		return nil, nil
	}
	th := r.loaders(ctx).Users.Load(ctx, loaderKey(me.ID))
	return func() (any, error) {
		u, err := th()
		if err != nil || u == nil {
			return nil, err
		}
		return u, nil
	}, nil
}

func (r *Resolver) user(ctx context.Context, p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	if !domain.IsObjectIDHex(id) {
		return nil, domain.ErrInvalidID
	}
	th := r.loaders(ctx).Users.Load(ctx, loaderKey(id))
	return func() (any, error) {
		u, err := th()
		if err != nil || u == nil {
			return nil, err
		}
		return u, nil
	}, nil
}

func (r *Resolver) student(ctx context.Context, p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	if !domain.IsObjectIDHex(id) {
		return nil, domain.ErrInvalidStudentID
	}
	th := r.loaders(ctx).Students.Load(ctx, loaderKey(id))
	return func() (any, error) {
		s, err := th()
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, domain.ErrStudentNotFound
		}
		return s, nil
	}, nil
}

func (r *Resolver) studentList(ctx context.Context, p graphql.ResolveParams) (any, error) {
	req := service.ListStudentsRequest{
		School:     stringArg(p.Args, "school"),
		GradeLevel: stringArg(p.Args, "gradeLevel"),
		ELLStatus:  stringArg(p.Args, "ellStatus"),
		Active:     boolArg(p.Args, "active"),
		Limit:      intArg(p.Args, "limit"),
		Offset:     intArg(p.Args, "offset"),
	}
	students, err := r.students.List(ctx, req)
	if err != nil {
		return nil, err
	}
	r.prime(ctx, students)
	return students, nil
}

func (r *Resolver) searchStudents(ctx context.Context, p graphql.ResolveParams) (any, error) {
	students, err := r.students.Search(ctx, stringArg(p.Args, "term"), intArg(p.Args, "limit"))
	if err != nil {
		return nil, err
	}
	r.prime(ctx, students)
	return students, nil
}

func (r *Resolver) studentCount(ctx context.Context, p graphql.ResolveParams) (any, error) {
	filter := storage.Filter{}
	for _, k := range []string{"school", "gradeLevel", "ellStatus"} {
		if v := stringArg(p.Args, k); v != "" {
			filter[k] = v
		}
	}
	if a := boolArg(p.Args, "active"); a != nil {
		filter["active"] = *a
	}
	n, err := r.students.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return int(n), nil
}

// prime seeds the student loader with records a list already fetched.
func (r *Resolver) prime(ctx context.Context, students []*domain.Student) {
	l := r.loaders(ctx).Students
	for _, s := range students {
		l.Prime(s.ID.Hex(), s)
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	n, _ := args[key].(int)
	return n
}

func boolArg(args map[string]any, key string) *bool {
	if b, ok := args[key].(bool); ok {
		return &b
	}
	return nil
}

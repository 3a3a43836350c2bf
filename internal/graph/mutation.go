package graph

import (
	"context"
	"strings"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
)

// ErrInvalidDateOfBirth rejects a dateOfBirth that is not a date.
var ErrInvalidDateOfBirth = domain.NewValidationError("Please provide a valid date of birth")

func (r *Resolver) mutationType() *graphql.Object {
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
	nonNullString := graphql.NewNonNull(graphql.String)

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"signUp": &graphql.Field{
				Type: graphql.NewNonNull(tokenType),
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: nonNullString},
					"password": &graphql.ArgumentConfig{Type: nonNullString},
				},
				Resolve: r.resolve(r.signUp),
			},
			"signIn": &graphql.Field{
				Type: graphql.NewNonNull(tokenType),
				Args: graphql.FieldConfigArgument{
					"login":    &graphql.ArgumentConfig{Type: nonNullString},
					"password": &graphql.ArgumentConfig{Type: nonNullString},
				},
				Resolve: r.resolve(r.signIn),
			},
			"signOut": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Resolve: r.resolve(r.signOut),
			},
			"createStudent": &graphql.Field{
				Type: graphql.NewNonNull(studentType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(studentInputType)},
				},
				Resolve: r.resolve(guarded(r.createStudent)),
			},
			"updateStudent": &graphql.Field{
				Type: graphql.NewNonNull(studentType),
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(studentInputType)},
				},
				Resolve: r.resolve(guarded(r.updateStudent)),
			},
			"deleteStudent": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    idArg,
				Resolve: r.resolve(guarded(r.deleteStudent)),
			},
			"toggleStudentActive": &graphql.Field{
				Type:    graphql.NewNonNull(studentType),
				Args:    idArg,
				Resolve: r.resolve(guarded(r.toggleStudentActive)),
			},
		},
	})
}

func (r *Resolver) signUp(ctx context.Context, p graphql.ResolveParams) (any, error) {
	res, err := r.users.SignUp(ctx, stringArg(p.Args, "email"), stringArg(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	session.FromContext(ctx).SetCredential(res.Token)
	return token{Token: res.Token}, nil
}

func (r *Resolver) signIn(ctx context.Context, p graphql.ResolveParams) (any, error) {
	res, err := r.users.SignIn(ctx, stringArg(p.Args, "login"), stringArg(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	session.FromContext(ctx).SetCredential(res.Token)
	return token{Token: res.Token}, nil
}

// signOut clears the credential cookie and needs no identity. A request
// carrying a rejected credential is answered 401 by the session
// middleware and never reaches it.
func (r *Resolver) signOut(ctx context.Context, _ graphql.ResolveParams) (any, error) {
	session.FromContext(ctx).ClearCredential()
	return true, nil
}

func (r *Resolver) createStudent(ctx context.Context, p graphql.ResolveParams) (any, error) {
	in, err := studentInput(p.Args["input"])
	if err != nil {
		return nil, err
	}
	return r.students.Create(ctx, in)
}

func (r *Resolver) updateStudent(ctx context.Context, p graphql.ResolveParams) (any, error) {
	id := stringArg(p.Args, "id")
	if !domain.IsObjectIDHex(id) {
		return nil, domain.ErrInvalidStudentID
	}
	in, err := studentInput(p.Args["input"])
	if err != nil {
		return nil, err
	}
	st, err := r.students.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	r.loaders(ctx).Students.Clear(loaderKey(id))
	return st, nil
}

func (r *Resolver) deleteStudent(ctx context.Context, p graphql.ResolveParams) (any, error) {
	id := stringArg(p.Args, "id")
	ok, err := r.students.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	r.loaders(ctx).Students.Clear(loaderKey(id))
	return ok, nil
}

func (r *Resolver) toggleStudentActive(ctx context.Context, p graphql.ResolveParams) (any, error) {
	id := stringArg(p.Args, "id")
	st, err := r.students.ToggleActive(ctx, id)
	if err != nil {
		return nil, err
	}
	r.loaders(ctx).Students.Clear(loaderKey(id))
	return st, nil
}

// studentInput converts the StudentInput argument. Absent and null fields
// stay nil.
func studentInput(raw any) (service.StudentInput, error) {
	m, _ := raw.(map[string]any)
	str := func(key string) *string {
		if v, ok := m[key].(string); ok {
			return &v
		}
		return nil
	}

	in := service.StudentInput{
		FullName:       str("fullName"),
		School:         str("school"),
		StudentID:      str("studentId"),
		Teacher:        str("teacher"),
		Gender:         str("gender"),
		Race:           str("race"),
		GradeLevel:     str("gradeLevel"),
		NativeLanguage: str("nativeLanguage"),
		CityOfBirth:    str("cityOfBirth"),
		CountryOfBirth: str("countryOfBirth"),
		ELLStatus:      str("ellStatus"),
		CompositeLevel: str("compositeLevel"),
		Active:         boolArg(m, "active"),
		Designation:    str("designation"),
	}
	if raw := str("dateOfBirth"); raw != nil && strings.TrimSpace(*raw) != "" {
		dob, err := parseDate(strings.TrimSpace(*raw))
		if err != nil {
			return service.StudentInput{}, ErrInvalidDateOfBirth
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

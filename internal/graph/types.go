package graph

import (
	"time"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

func idField(get func(any) (primitive.ObjectID, bool)) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(graphql.ID),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if id, ok := get(p.Source); ok {
				return id.Hex(), nil
			}
			return nil, nil
		},
	}
}

func timeField(get func(any) *time.Time, nonNull bool) *graphql.Field {
	var t graphql.Output = graphql.DateTime
	if nonNull {
		t = graphql.NewNonNull(graphql.DateTime)
	}
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if v := get(p.Source); v != nil && !v.IsZero() {
				return *v, nil
			}
			return nil, nil
		},
	}
}

func studentOf(src any) (*domain.Student, bool) {
	s, ok := src.(*domain.Student)
	return s, ok && s != nil
}

func userOf(src any) (*domain.User, bool) {
	u, ok := src.(*domain.User)
	return u, ok && u != nil
}

var (
	userIDField = idField(func(src any) (primitive.ObjectID, bool) {
		u, ok := userOf(src)
		if !ok {
			return primitive.NilObjectID, false
		}
		return u.ID, true
	})
	userCreatedField = timeField(func(src any) *time.Time {
		if u, ok := userOf(src); ok {
			return &u.CreatedAt
		}
		return nil
	}, false)
	userUpdatedField = timeField(func(src any) *time.Time {
		if u, ok := userOf(src); ok {
			return &u.UpdatedAt
		}
		return nil
	}, false)

	studentIDField = idField(func(src any) (primitive.ObjectID, bool) {
		s, ok := studentOf(src)
		if !ok {
			return primitive.NilObjectID, false
		}
		return s.ID, true
	})
	studentBirthField = timeField(func(src any) *time.Time {
		if s, ok := studentOf(src); ok {
			return s.DateOfBirth
		}
		return nil
	}, false)
	studentCreatedField = timeField(func(src any) *time.Time {
		if s, ok := studentOf(src); ok {
			return &s.CreatedAt
		}
		return nil
	}, false)
	studentUpdatedField = timeField(func(src any) *time.Time {
		if s, ok := studentOf(src); ok {
			return &s.UpdatedAt
		}
		return nil
	}, false)
)

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":        userIDField,
		"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"createdAt": userCreatedField,
		"updatedAt": userUpdatedField,
	},
})

var tokenType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Token",
	Fields: graphql.Fields{
		"token": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

// token is the source value of the Token type.
type token struct {
	Token string `json:"token"`
}

var studentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Student",
	Fields: graphql.Fields{
		"id":             studentIDField,
		"fullName":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"school":         &graphql.Field{Type: graphql.String},
		"studentId":      &graphql.Field{Type: graphql.String},
		"teacher":        &graphql.Field{Type: graphql.String},
		"dateOfBirth":    studentBirthField,
		"gender":         &graphql.Field{Type: graphql.String},
		"race":           &graphql.Field{Type: graphql.String},
		"gradeLevel":     &graphql.Field{Type: graphql.String},
		"nativeLanguage": &graphql.Field{Type: graphql.String},
		"cityOfBirth":    &graphql.Field{Type: graphql.String},
		"countryOfBirth": &graphql.Field{Type: graphql.String},
		"ellStatus":      &graphql.Field{Type: graphql.String},
		"compositeLevel": &graphql.Field{Type: graphql.String},
		"active":         &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"designation":    &graphql.Field{Type: graphql.String},
		"createdAt":      studentCreatedField,
		"updatedAt":      studentUpdatedField,
	},
})

var studentInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "StudentInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"fullName":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"school":         &graphql.InputObjectFieldConfig{Type: graphql.String},
		"studentId":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"teacher":        &graphql.InputObjectFieldConfig{Type: graphql.String},
		"dateOfBirth":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"gender":         &graphql.InputObjectFieldConfig{Type: graphql.String},
		"race":           &graphql.InputObjectFieldConfig{Type: graphql.String},
		"gradeLevel":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"nativeLanguage": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"cityOfBirth":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"countryOfBirth": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"ellStatus":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"compositeLevel": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"active":         &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"designation":    &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

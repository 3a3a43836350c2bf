package storage

import (
	"errors"
	"fmt"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
)

// Failure is implemented by every storage failure. The set is sealed:
// only this package's types satisfy it.
type Failure interface {
	error
	storageFailure()
}

// ValidationFailure reports field-level violations found when a document
// was written.
type ValidationFailure struct {
	Violations []domain.FieldViolation
}

func (f *ValidationFailure) Error() string {
	return "validation failed: " + domain.JoinViolations(f.Violations)
}

func (*ValidationFailure) storageFailure() {}

// CastFailure reports an identifier that is not a well-formed record ID.
type CastFailure struct {
	Value string
}

func (f *CastFailure) Error() string {
	return fmt.Sprintf("cast to ObjectId failed for value %q", f.Value)
}

func (*CastFailure) storageFailure() {}

// UniquenessFailure reports a write that collided with a unique field.
type UniquenessFailure struct {
	Field string
}

func (f *UniquenessFailure) Error() string {
	return fmt.Sprintf("duplicate key on field %q", f.Field)
}

func (*UniquenessFailure) storageFailure() {}

// AsFailure unwraps err into a storage Failure.
func AsFailure(err error) (Failure, bool) {
	var (
		vf *ValidationFailure
		cf *CastFailure
		uf *UniquenessFailure
	)
	switch {
	case errors.As(err, &vf):
		return vf, true
	case errors.As(err, &cf):
		return cf, true
	case errors.As(err, &uf):
		return uf, true
	}
	return nil, false
}

// Infrastructure errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("storage closed")
)

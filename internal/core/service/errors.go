package service

import (
	"context"
	"fmt"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
)

// Classify maps a storage failure to its typed error. Any other error is
// returned unchanged.
func Classify(err error) error {
	f, ok := storage.AsFailure(err)
	if !ok {
		return err
	}
	switch f := f.(type) {
	case *storage.ValidationFailure:
		return domain.NewValidationError(domain.JoinViolations(f.Violations)).WithCause(err)
	case *storage.CastFailure:
		return domain.ErrInvalidID.WithCause(err)
	case *storage.UniquenessFailure:
		return domain.NewDuplicateError(
			fmt.Sprintf("A record with this %s already exists", f.Field)).WithCause(err)
	}
	return err
}

// HandleError normalizes an error leaving a resolver: typed errors pass
// through, storage failures are classified, and anything else becomes a
// ServiceError wrapping the cause.
func HandleError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	classified := Classify(err)
	if _, ok := domain.AsDomainError(classified); ok {
		return classified
	}
	return domain.NewServiceError(err.Error(), err)
}

// WithErrorHandling wraps fn so every error it returns goes through
// HandleError.
func WithErrorHandling[P, R any](fn func(context.Context, P) (R, error)) func(context.Context, P) (R, error) {
	return func(ctx context.Context, p P) (R, error) {
		r, err := fn(ctx, p)
		if err != nil {
			var zero R
			return zero, HandleError(err)
		}
		return r, nil
	}
}

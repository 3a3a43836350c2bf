// Package domain defines the core domain models for EducationELLy.
package domain

import (
	"errors"
	"maps"
)

// Kind names the taxonomy bucket an error belongs to.
type Kind string

// Error kinds.
const (
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFoundError"
	KindAuthentication Kind = "AuthenticationError"
	KindForbidden      Kind = "ForbiddenError"
	KindDuplicate      Kind = "DuplicateError"
	KindService        Kind = "ServiceError"
	// KindStructural covers errors raised by the gateway itself
	// (admission control, rate limiting). They never pass through the
	// resolver error handler.
	KindStructural Kind = "StructuralError"
)

// Machine-readable codes carried in the GraphQL error extensions.
const (
	CodeBadUserInput     = "BAD_USER_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
	CodeQueryTooComplex  = "QUERY_TOO_COMPLEX"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalServer   = "INTERNAL_SERVER_ERROR"
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// DomainError is a typed error with a kind, a code and a client-facing
// message. Error() returns only the message so it can be surfaced verbatim
// in a GraphQL response.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	// Fields are extra extension entries (e.g. depth, maxDepth).
	Fields map[string]any
	Cause  error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code and message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Extensions returns the GraphQL extensions map: the code plus any extra
// fields.
func (e *DomainError) Extensions() map[string]any {
	ext := make(map[string]any, len(e.Fields)+1)
	maps.Copy(ext, e.Fields)
	ext["code"] = e.Code
	return ext
}

// WithField returns a copy of the error with an extra extension entry.
func (e *DomainError) WithField(key string, value any) *DomainError {
	fields := make(map[string]any, len(e.Fields)+1)
	maps.Copy(fields, e.Fields)
	fields[key] = value
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Fields:  fields,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
		Cause:   cause,
	}
}

func newError(kind Kind, code, message, fallback string) *DomainError {
	if message == "" {
		message = fallback
	}
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError reports bad user input.
func NewValidationError(message string) *DomainError {
	return newError(KindValidation, CodeBadUserInput, message, "Invalid input")
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(message string) *DomainError {
	return newError(KindNotFound, CodeNotFound, message, "Resource not found")
}

// NewAuthenticationError reports a missing or unusable credential.
func NewAuthenticationError(message string) *DomainError {
	return newError(KindAuthentication, CodeUnauthenticated, message, "Authentication required")
}

// NewForbiddenError reports a caller that may not perform the operation.
func NewForbiddenError(message string) *DomainError {
	return newError(KindForbidden, CodeForbidden, message, "Access denied")
}

// NewDuplicateError reports a uniqueness violation.
func NewDuplicateError(message string) *DomainError {
	return newError(KindDuplicate, CodeBadUserInput, message, "Resource already exists")
}

// NewServiceError wraps an unexpected failure.
func NewServiceError(message string, cause error) *DomainError {
	e := newError(KindService, CodeInternal, message, "Internal error")
	e.Cause = cause
	return e
}

// NewStructuralError builds a gateway-level error with the given code.
func NewStructuralError(code, message string) *DomainError {
	return &DomainError{Kind: KindStructural, Code: code, Message: message}
}

// AsDomainError unwraps err into a *DomainError.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	de, ok := AsDomainError(err)
	if !ok {
		return false
	}
	return code == "" || de.Code == code
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == kind
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	if de, ok := AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

// Session and authorization errors.
var (
	ErrSessionExpired     = NewAuthenticationError("Your session has expired. Please sign in again.")
	ErrInvalidCredentials = NewAuthenticationError("You have entered invalid login credentials")
	ErrNotAuthenticated   = NewForbiddenError("You are not authenticated as a user")
)

// Record errors.
var (
	ErrStudentNotFound  = NewNotFoundError("Student not found")
	ErrInvalidStudentID = NewValidationError("Invalid student ID format")
	ErrUserNotFound     = NewNotFoundError("User not found")
	ErrInvalidID        = NewValidationError("Invalid ID format")
)

// Gateway errors.
var (
	ErrRateLimited     = NewStructuralError(CodeRateLimited, "Too many requests, please try again later.")
	ErrAuthRateLimited = NewStructuralError(CodeRateLimited, "Too many authentication attempts, please try again later.")
	ErrInternalServer  = NewStructuralError(CodeInternalServer, "Internal server error")
)

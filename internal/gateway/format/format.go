// Package format shapes GraphQL error output.
//
// In production only allow-listed codes and messages reach the client;
// everything else is replaced by a generic internal error, logged, and
// recorded on the active trace span. Outside production errors pass
// verbatim but always carry a code.
package format

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/location"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// MaskedMessage replaces every error hidden in production.
const MaskedMessage = "Internal server error"

// DefaultAllowedCodes are the codes surfaced in production.
var DefaultAllowedCodes = []string{
	domain.CodeBadUserInput,
	domain.CodeUnauthenticated,
	domain.CodeForbidden,
	domain.CodeNotFound,
	domain.CodeQueryTooComplex,
	domain.CodeRateLimited,
}

// DefaultAllowedMessages are the messages surfaced in production
// regardless of code.
var DefaultAllowedMessages = []string{
	domain.ErrStudentNotFound.Message,
	domain.ErrInvalidStudentID.Message,
	domain.ErrNotAuthenticated.Message,
	domain.ErrSessionExpired.Message,
	domain.ErrInvalidCredentials.Message,
}

// Config configures a Formatter.
type Config struct {
	Production      bool
	AllowedCodes    []string
	AllowedMessages []string
}

// Formatter applies the masking policy.
type Formatter struct {
	production bool
	codes      map[string]struct{}
	messages   map[string]struct{}
	logger     logger.Logger
}

// New creates a Formatter. Empty allow-lists use the defaults.
func New(cfg Config, log logger.Logger) *Formatter {
	if cfg.AllowedCodes == nil {
		cfg.AllowedCodes = DefaultAllowedCodes
	}
	if cfg.AllowedMessages == nil {
		cfg.AllowedMessages = DefaultAllowedMessages
	}
	if log == nil {
		log = logger.Nop()
	}
	f := &Formatter{
		production: cfg.Production,
		codes:      make(map[string]struct{}, len(cfg.AllowedCodes)),
		messages:   make(map[string]struct{}, len(cfg.AllowedMessages)),
		logger:     log,
	}
	for _, c := range cfg.AllowedCodes {
		f.codes[c] = struct{}{}
	}
	for _, m := range cfg.AllowedMessages {
		f.messages[m] = struct{}{}
	}
	return f
}

// Production reports whether masking is enabled.
func (f *Formatter) Production() bool { return f.production }

// Allowed reports whether an error with this code or message may be
// shown to a production client.
func (f *Formatter) Allowed(code, message string) bool {
	if _, ok := f.codes[code]; ok {
		return true
	}
	_, ok := f.messages[message]
	return ok
}

// Format applies the policy to errs. defaultCode is assigned to errors
// that carry none, e.g. domain.CodeParseFailed for parser errors.
func (f *Formatter) Format(ctx context.Context, errs []gqlerrors.FormattedError, defaultCode string) []gqlerrors.FormattedError {
	if len(errs) == 0 {
		return errs
	}
	out := make([]gqlerrors.FormattedError, len(errs))
	for i, e := range errs {
		out[i] = f.FormatOne(ctx, e, defaultCode)
	}
	return out
}

// FormatOne applies the policy to a single error.
func (f *Formatter) FormatOne(ctx context.Context, e gqlerrors.FormattedError, defaultCode string) gqlerrors.FormattedError {
	e = withCode(e, defaultCode)
	code, _ := e.Extensions["code"].(string)

	if !f.production || f.Allowed(code, e.Message) {
		return e
	}

	cause := e.OriginalError()
	if cause == nil {
		cause = errors.New(e.Message)
	}
	logger.L(ctx).Error("masked error", "error", cause, "code", code, "path", e.Path)
	span := trace.SpanFromContext(ctx)
	span.RecordError(cause)
	span.SetStatus(codes.Error, code)

	return gqlerrors.FormattedError{
		Message:    MaskedMessage,
		Extensions: map[string]any{"code": domain.CodeInternalServer},
	}
}

// withCode copies the extensions and fills in the code, preferring the
// original error's typed code over defaultCode.
func withCode(e gqlerrors.FormattedError, defaultCode string) gqlerrors.FormattedError {
	if code, ok := e.Extensions["code"].(string); ok && code != "" {
		return e
	}
	code := defaultCode
	if de, ok := domainCause(e.OriginalError()); ok {
		code = de.Code
	}
	if code == "" {
		code = domain.CodeInternalServer
	}
	ext := make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext["code"] = code
	e.Extensions = ext
	return e
}

// domainCause finds the typed error under graphql-go's wrappers. Thunk
// errors arrive as *gqlerrors.Error around a FormattedError, neither of
// which implements Unwrap.
func domainCause(err error) (*domain.DomainError, bool) {
	for i := 0; err != nil && i < 16; i++ {
		switch e := err.(type) {
		case *domain.DomainError:
			return e, true
		case *gqlerrors.Error:
			err = e.OriginalError
		case gqlerrors.FormattedError:
			err = e.OriginalError()
		case *gqlerrors.FormattedError:
			err = e.OriginalError()
		default:
			if de, ok := domain.AsDomainError(err); ok {
				return de, true
			}
			err = errors.Unwrap(err)
		}
	}
	return nil, false
}

// FromDomainError builds a client error from a typed error.
func FromDomainError(de *domain.DomainError) gqlerrors.FormattedError {
	return gqlerrors.FormattedError{Message: de.Message, Extensions: de.Extensions()}
}

// Error is the wire form of a GraphQL error. gqlerrors.FormattedError
// flattens extensions into the top level when marshalled, so responses are
// encoded through this type instead.
type Error struct {
	Message    string                    `json:"message"`
	Locations  []location.SourceLocation `json:"locations,omitempty"`
	Path       []any                     `json:"path,omitempty"`
	Extensions map[string]any            `json:"extensions,omitempty"`
}

// Wire converts formatted errors to their wire form.
func Wire(errs []gqlerrors.FormattedError) []Error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]Error, len(errs))
	for i, e := range errs {
		out[i] = Error{Message: e.Message, Locations: e.Locations, Path: e.Path, Extensions: e.Extensions}
	}
	return out
}

// Response is the GraphQL response envelope.
type Response struct {
	Data       any            `json:"data,omitempty"`
	Errors     []Error        `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a single-error GraphQL envelope. It is used by the
// middleware that rejects a request before execution.
func WriteError(w http.ResponseWriter, status int, de *domain.DomainError) {
	WriteJSON(w, status, Response{Errors: Wire([]gqlerrors.FormattedError{FromDomainError(de)})})
}

// Package session resolves the caller identity for each request and lets
// resolvers set or clear the credential cookie.
//
// The credential is read from the auth_token cookie, then from the
// x-token header. A present credential that fails verification ends the
// request with 401; an absent one leaves the caller anonymous.
// Authorization is left to each operation.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Credential transport names.
const (
	CookieName = "auth_token"
	HeaderName = "x-token"
)

// DefaultMaxAge is the credential cookie lifetime.
const DefaultMaxAge = 24 * time.Hour

// Verifier checks a credential and returns the identity it carries.
type Verifier interface {
	Verify(token string) (*domain.Identity, error)
}

// CookieConfig controls the credential cookie attributes.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
	Domain   string
}

// CookieConfigFor returns the cookie attributes for the environment:
// Secure and SameSite=Strict in production, SameSite=Lax otherwise.
func CookieConfigFor(production bool) CookieConfig {
	cfg := CookieConfig{SameSite: http.SameSiteLaxMode, MaxAge: DefaultMaxAge}
	if production {
		cfg.Secure = true
		cfg.SameSite = http.SameSiteStrictMode
	}
	return cfg
}

// Session is the per-request view of the caller.
type Session struct {
	identity *domain.Identity
	w        http.ResponseWriter
	cookie   CookieConfig
}

// New creates a Session writing cookies to w.
func New(w http.ResponseWriter, identity *domain.Identity, cookie CookieConfig) *Session {
	return &Session{identity: identity, w: w, cookie: cookie}
}

// Identity returns the caller, or nil when anonymous.
func (s *Session) Identity() *domain.Identity {
	if s == nil {
		return nil
	}
	return s.identity
}

// SetCredential sets the credential cookie on the response. The identity
// of the current request is unchanged.
func (s *Session) SetCredential(token string) {
	if s == nil || s.w == nil {
		return
	}
	http.SetCookie(s.w, s.newCookie(token, int(s.cookie.MaxAge.Seconds())))
}

// ClearCredential expires the credential cookie.
func (s *Session) ClearCredential() {
	if s == nil || s.w == nil {
		return
	}
	http.SetCookie(s.w, s.newCookie("", -1))
}

func (s *Session) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: s.cookie.SameSite,
	}
}

type ctxKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request session, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// IdentityFromContext returns the caller identity, or nil when anonymous.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	return FromContext(ctx).Identity()
}

// Credential returns the raw credential: the cookie when set, else the
// header.
func Credential(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(HeaderName)
}

// Middleware resolves identities.
type Middleware struct {
	verifier Verifier
	cookie   CookieConfig
	onReject func()
}

// NewMiddleware creates the identity middleware. onReject, when set, is
// called for every rejected credential.
func NewMiddleware(v Verifier, cookie CookieConfig, onReject func()) *Middleware {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = DefaultMaxAge
	}
	return &Middleware{verifier: v, cookie: cookie, onReject: onReject}
}

// Handler wraps next with identity resolution.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var identity *domain.Identity
		if token := Credential(r); token != "" {
			id, err := m.verifier.Verify(token)
			if err != nil {
				if m.onReject != nil {
					m.onReject()
				}
				logger.L(ctx).Info("credential rejected", "error", err)
				de, ok := domain.AsDomainError(err)
				if !ok {
					de = domain.ErrSessionExpired
				}
				format.WriteError(w, http.StatusUnauthorized, de)
				return
			}
			identity = id
			ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("user_id", id.ID))
		}

		ctx = WithSession(ctx, New(w, identity, m.cookie))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

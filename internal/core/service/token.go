package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// ErrMissingSecret is returned by NewTokenService when no signing secret
// is configured. The server refuses to start in that case.
var ErrMissingSecret = errors.New("token: signing secret is not configured")

// TokenConfig holds configuration for TokenService.
type TokenConfig struct {
	// Secret is the HMAC signing key. Required.
	Secret string

	// TTL is the token lifetime (default: 24h).
	TTL time.Duration
}

// Claims is the session token payload.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// NewTokenService creates a TokenService. It fails when the secret is empty.
func NewTokenService(cfg TokenConfig, log logger.Logger) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: log,
	}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for the given user.
func (s *TokenService) Issue(id, email string) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    id,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature, algorithm and expiry of token and returns
// the identity it carries. Every failure maps to domain.ErrSessionExpired;
// the log line records the actual reason.
func (s *TokenService) Verify(token string) (*domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		s.logger.Debug("session token rejected", "reason", reason, "error", err)
		return nil, domain.ErrSessionExpired.WithCause(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.ID == "" {
		s.logger.Debug("session token rejected", "reason", "missing subject")
		return nil, domain.ErrSessionExpired
	}
	return claims.identity(), nil
}

// Decode reads the claims without verifying the signature. It returns nil
// for tokens that cannot be parsed.
func (s *TokenService) Decode(token string) *domain.Identity {
	return DecodeToken(token)
}

// DecodeToken is Decode without a service, for tools that hold no secret.
func DecodeToken(token string) *domain.Identity {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims.identity()
}

// IsExpired reports whether token is undecodable, carries no expiry, or
// has expired.
func (s *TokenService) IsExpired(token string) bool {
	id := s.Decode(token)
	if id == nil || id.ExpiresAt.IsZero() {
		return true
	}
	return id.IsExpired(s.now())
}

func (c *Claims) identity() *domain.Identity {
	id := &domain.Identity{ID: c.ID, Email: c.Email}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

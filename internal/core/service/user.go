package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// AuthResult is returned by SignUp and SignIn.
type AuthResult struct {
	User  *domain.User
	Token string
}

// UserService handles accounts and credentials.
type UserService struct {
	users  storage.Collection[*domain.User]
	tokens *TokenService
	logger logger.Logger

	// dummyHash keeps sign-in timing uniform for unknown emails.
	dummyHash []byte
}

// NewUserService creates a new UserService.
func NewUserService(users storage.Collection[*domain.User], tokens *TokenService, log logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), domain.PasswordHashCost)
	return &UserService{users: users, tokens: tokens, logger: log, dummyHash: hash}
}

// Get returns the user with the given ID, or nil when none exists.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// GetMany returns the existing users among ids in one storage call.
func (s *UserService) GetMany(ctx context.Context, ids []string) ([]*domain.User, error) {
	return s.users.FindByIDs(ctx, ids)
}

// Current returns the user behind the caller identity, or nil for an
// anonymous caller.
func (s *UserService) Current(ctx context.Context, me *domain.Identity) (*domain.User, error) {
	if me == nil {
		return nil, nil
	}
	return s.users.FindByID(ctx, me.ID)
}

// SignUp creates an account and issues a session token for it.
func (s *UserService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	u, violations, err := domain.NewUser(email, password)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &storage.ValidationFailure{Violations: violations}
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(created.ID.Hex(), created.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", "user_id", created.ID.Hex())
	return &AuthResult{User: created, Token: token}, nil
}

// SignIn checks the credentials and issues a session token.
func (s *UserService) SignIn(ctx context.Context, login, password string) (*AuthResult, error) {
	u, err := s.users.FindOne(ctx, storage.Filter{"email": strings.ToLower(strings.TrimSpace(login))})
	if err != nil {
		return nil, err
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if !u.CheckPassword(password) {
		s.logger.Info("sign-in rejected", "user_id", u.ID.Hex())
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token}, nil
}

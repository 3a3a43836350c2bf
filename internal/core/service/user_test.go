package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage/memory"
)

func newUserService(t *testing.T) (*UserService, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t)
	return NewUserService(memory.New().Users(), tokens, nil), tokens
}

func TestUserService_SignUpAndSignIn(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	res, err := svc.SignUp(ctx, " Ana@School.org ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "ana@school.org", res.User.Email)
	assert.NotEqual(t, "password1", res.User.Password)

	id, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.Hex(), id.ID)

	t.Run("sign in", func(t *testing.T) {
		got, err := svc.SignIn(ctx, "ANA@school.org", "password1")
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, got.User.ID)
		assert.NotEmpty(t, got.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "ana@school.org", "nope-nope")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "who@school.org", "password1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "ana@school.org", "password2")
		err = HandleError(err)
		assert.Equal(t, "A record with this email already exists", err.Error())
		assert.True(t, domain.IsKind(err, domain.KindDuplicate))
	})
}

func TestUserService_SignUpValidation(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.SignUp(context.Background(), "bad", "short")
	err = HandleError(err)
	assert.Equal(t, domain.CodeBadUserInput, domain.GetErrorCode(err))
	assert.Equal(t,
		"You provided an invalid email address. Your password must be between 7 and 42 characters long",
		err.Error())
}

func TestUserService_Current(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	u, err := svc.Current(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, u)

	res, err := svc.SignUp(ctx, "me@school.org", "password1")
	require.NoError(t, err)

	u, err = svc.Current(ctx, &domain.Identity{ID: res.User.ID.Hex()})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "me@school.org", u.Email)

	got, err := svc.Get(ctx, res.User.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	many, err := svc.GetMany(ctx, []string{res.User.ID.Hex(), "bad"})
	require.NoError(t, err)
	assert.Len(t, many, 1)
}

package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("hashes password and lowercases email", func(t *testing.T) {
		u, vs, err := NewUser(" Teacher@School.org ", "secret123")
		require.NoError(t, err)
		require.Empty(t, vs)

		assert.Equal(t, "teacher@school.org", u.Email)
		assert.NotEqual(t, "secret123", u.Password)
		assert.True(t, u.CheckPassword("secret123"))
		assert.False(t, u.CheckPassword("wrong-password"))
		assert.Empty(t, u.Validate())
	})

	t.Run("password bounds", func(t *testing.T) {
		for _, pw := range []string{"short", strings.Repeat("p", 43)} {
			u, vs, err := NewUser("a@b.co", pw)
			require.NoError(t, err)
			assert.Nil(t, u)
			require.Len(t, vs, 1)
			assert.Equal(t, "password", vs[0].Field)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		_, vs, err := NewUser("not an email", "secret123")
		require.NoError(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "You provided an invalid email address", vs[0].Message)
	})

	t.Run("missing email and password", func(t *testing.T) {
		_, vs, err := NewUser("", "")
		require.NoError(t, err)
		assert.Len(t, vs, 2)
	})
}

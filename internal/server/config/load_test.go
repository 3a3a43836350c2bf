package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educationelly/educationelly-graphql/internal/infra/confloader"
)

func lookupFrom(env map[string]string) confloader.Option {
	return confloader.WithLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"3600", time.Hour},
		{"90m", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseExpiry(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "xd", "0d", "-5m", "soon"} {
		_, err := ParseExpiry(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	cfg, err := Load("", confloader.WithEnvPrefix("ELLY_LOADTEST1_"), lookupFrom(map[string]string{
		"NODE_ENV":    "Production",
		"JWT_SECRET":  "s3cret",
		"JWT_EXPIRY":  "2d",
		"MONGODB_URI": "mongodb://db:27017",
		"REDIS_URL":   "redis://cache:6379/0",
		"PORT":        "4000",
		"CLIENT_URL":  "https://a.example,https://b.example",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 48*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.Mongo.URI)
	assert.Equal(t, RateLimitRedis, cfg.RateLimit.Store)
	assert.Equal(t, "redis://cache:6379/0", cfg.RateLimit.RedisURL)
	assert.Equal(t, "0.0.0.0:4000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, DefaultMaxDepth, cfg.Admission.MaxDepth)
}

func TestLoad_FileAndPrefixedEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: test
auth:
  jwt_secret: file-secret
storage:
  driver: memory
admission:
  max_depth: 5
  field_costs:
    Query.searchStudents: 10
log:
  level: debug
`), 0o644))
	t.Setenv("ELLY_LOADTEST2_ADMISSION__MAX_COMPLEXITY", "500")

	cfg, err := Load(path, confloader.WithEnvPrefix("ELLY_LOADTEST2_"), lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Environment)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Admission.MaxDepth)
	assert.Equal(t, 500, cfg.Admission.MaxComplexity)
	assert.Equal(t, map[string]int{"Query.searchStudents": 10}, cfg.Admission.FieldCosts)

	level, err := LogLevel(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load("", confloader.WithEnvPrefix("ELLY_LOADTEST3_"), lookupFrom(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_BadAlias(t *testing.T) {
	_, err := Load("", confloader.WithEnvPrefix("ELLY_LOADTEST4_"), lookupFrom(map[string]string{
		"JWT_SECRET": "x",
		"PORT":       "http",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

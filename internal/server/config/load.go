package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/educationelly/educationelly-graphql/internal/infra/confloader"
)

// EnvAliases are the legacy environment variables understood alongside
// the ELLY_* form.
func EnvAliases() []confloader.Alias {
	set := func(key string) func(string) (map[string]any, error) {
		return func(v string) (map[string]any, error) {
			return map[string]any{key: v}, nil
		}
	}
	return []confloader.Alias{
		{Env: "NODE_ENV", Set: set("environment")},
		{Env: "JWT_SECRET", Set: set("auth.jwt_secret")},
		{Env: "JWT_EXPIRY", Set: func(v string) (map[string]any, error) {
			d, err := ParseExpiry(v)
			if err != nil {
				return nil, err
			}
			return map[string]any{"auth.jwt_expiry": d}, nil
		}},
		{Env: "MONGODB_URI", Set: set("storage.mongo.uri")},
		{Env: "REDIS_URL", Set: func(v string) (map[string]any, error) {
			return map[string]any{"rate_limit.redis_url": v, "rate_limit.store": RateLimitRedis}, nil
		}},
		{Env: "PORT", Set: func(v string) (map[string]any, error) {
			if _, err := strconv.ParseUint(v, 10, 16); err != nil {
				return nil, fmt.Errorf("invalid port %q", v)
			}
			return map[string]any{"server.addr": net.JoinHostPort("0.0.0.0", v)}, nil
		}},
		{Env: "CLIENT_URL", Set: func(v string) (map[string]any, error) {
			return map[string]any{"server.cors.allowed_origins": strings.Split(v, ",")}, nil
		}},
	}
}

// ParseExpiry accepts Go durations ("24h"), day counts ("1d", "7d") and
// plain seconds ("86400").
func ParseExpiry(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", v)
	}
	return d, nil
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then verifies it.
func Load(path string, opts ...confloader.Option) (*ServerConfig, error) {
	cfg := Default()

	all := []confloader.Option{confloader.WithAliases(EnvAliases()...)}
	if path != "" {
		all = append(all, confloader.WithConfigFile(path))
	}
	all = append(all, opts...)

	if err := confloader.NewLoader(all...).Load(cfg); err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LogLevel reads only log.level from path, for hot reload.
func LogLevel(path string) (string, error) {
	l := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithLookup(func(string) (string, bool) { return "", false }))
	if err := l.LoadFile(path); err != nil {
		return "", err
	}
	return l.GetString("log.level"), nil
}

package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Auth.JWTSecret != "" {
		sanitized.Auth.JWTSecret = maskSecret(sanitized.Auth.JWTSecret)
	}
	sanitized.Storage.Mongo.URI = maskURL(sanitized.Storage.Mongo.URI)
	sanitized.RateLimit.RedisURL = maskURL(sanitized.RateLimit.RedisURL)
	if sanitized.Telemetry.Tracing.Headers != "" {
		sanitized.Telemetry.Tracing.Headers = "****"
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

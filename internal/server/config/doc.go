// Package config defines the gateway configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation run before startup
//   - sanitize.go: secret masking for logs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// ELLY_* environment variables and a few legacy variable names.
package config

package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
)

// ErrMissingSecret is returned when no JWT secret is configured.
var ErrMissingSecret = errors.New("auth.jwt_secret is required (set JWT_SECRET)")

// Verify validates the configuration. All problems are joined into one
// error.
func Verify(cfg *ServerConfig) error {
	var errs []error
	if !slices.Contains([]string{EnvDevelopment, EnvProduction, EnvTest}, cfg.Environment) {
		errs = append(errs, fmt.Errorf("environment %q must be development, production or test", cfg.Environment))
	}
	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifyAuth(&cfg.Auth)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyRateLimit(&cfg.RateLimit)...)
	errs = append(errs, verifyAdmission(&cfg.Admission)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	return errors.Join(errs...)
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr: %w", err))
	}
	if cfg.BodyLimit <= 0 {
		errs = append(errs, errors.New("server.body_limit must be positive"))
	}
	return errs
}

func verifyAuth(cfg *AuthSection) []error {
	var errs []error
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		errs = append(errs, ErrMissingSecret)
	}
	if cfg.JWTExpiry <= 0 {
		errs = append(errs, errors.New("auth.jwt_expiry must be positive"))
	}
	return errs
}

func verifyStorage(cfg *StorageSection) []error {
	switch cfg.Driver {
	case DriverMongo:
		var errs []error
		if cfg.Mongo.URI == "" {
			errs = append(errs, errors.New("storage.mongo.uri is required (set MONGODB_URI)"))
		}
		if cfg.Mongo.Database == "" {
			errs = append(errs, errors.New("storage.mongo.database is required"))
		}
		if cfg.Mongo.MaxPoolSize > 0 && cfg.Mongo.MinPoolSize > cfg.Mongo.MaxPoolSize {
			errs = append(errs, errors.New("storage.mongo.min_pool_size exceeds max_pool_size"))
		}
		return errs
	case DriverBadger:
		if !cfg.Badger.InMemory && cfg.Badger.DataDir == "" {
			return []error{errors.New("storage.badger.data_dir is required")}
		}
		return nil
	case DriverMemory:
		return nil
	default:
		return []error{fmt.Errorf("storage.driver %q must be mongo, badger or memory", cfg.Driver)}
	}
}

func verifyRateLimit(cfg *RateLimitSection) []error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error
	if cfg.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if cfg.GeneralLimit <= 0 || cfg.AuthLimit <= 0 {
		errs = append(errs, errors.New("rate_limit limits must be positive"))
	}
	switch cfg.Store {
	case RateLimitMemory:
	case RateLimitRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("rate_limit.redis_url is required for the redis store (set REDIS_URL)"))
		}
	default:
		errs = append(errs, fmt.Errorf("rate_limit.store %q must be memory or redis", cfg.Store))
	}
	return errs
}

func verifyAdmission(cfg *AdmissionSection) []error {
	var errs []error
	if cfg.MaxDepth <= 0 {
		errs = append(errs, errors.New("admission.max_depth must be positive"))
	}
	if cfg.MaxComplexity <= 0 {
		errs = append(errs, errors.New("admission.max_complexity must be positive"))
	}
	if cfg.DefaultListSize <= 0 {
		errs = append(errs, errors.New("admission.default_list_size must be positive"))
	}
	for field, cost := range cfg.FieldCosts {
		if !strings.Contains(field, ".") || cost < 0 {
			errs = append(errs, fmt.Errorf("admission.field_costs: %q must be Type.field with a non-negative cost", field))
		}
	}
	return errs
}

func verifyLog(cfg *LogSection) []error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return []error{fmt.Errorf("log.level %q is not a valid level", cfg.Level)}
	}
	return nil
}

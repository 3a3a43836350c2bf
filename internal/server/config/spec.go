package config

import "time"

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Rate-limit counter stores.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// ServerConfig is the root configuration for elly-server.
type ServerConfig struct {
	// Environment is development, production or test. Production turns on
	// error masking and strict cookies.
	Environment string `koanf:"environment"`

	Server    ServerSection    `koanf:"server"`
	Auth      AuthSection      `koanf:"auth"`
	Storage   StorageSection   `koanf:"storage"`
	RateLimit RateLimitSection `koanf:"rate_limit"`
	Admission AdmissionSection `koanf:"admission"`
	Telemetry TelemetrySection `koanf:"telemetry"`
	Log       LogSection       `koanf:"log"`
}

// Production reports whether the production environment is selected.
func (c *ServerConfig) Production() bool {
	return c.Environment == EnvProduction
}

// ServerSection configures the HTTP listener.
type ServerSection struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// BodyLimit caps request bodies in bytes.
	BodyLimit int64 `koanf:"body_limit"`
	// TrustProxy makes X-Forwarded-For and X-Real-IP authoritative.
	TrustProxy bool       `koanf:"trust_proxy"`
	CORS       CORSConfig `koanf:"cors"`
	// SlowResolver is the resolver duration logged as slow.
	SlowResolver time.Duration `koanf:"slow_resolver"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// AuthSection configures credentials.
type AuthSection struct {
	JWTSecret    string        `koanf:"jwt_secret"`
	JWTExpiry    time.Duration `koanf:"jwt_expiry"`
	CookieDomain string        `koanf:"cookie_domain"`
}

// StorageSection selects and configures the document store.
type StorageSection struct {
	Driver string       `koanf:"driver"`
	Mongo  MongoConfig  `koanf:"mongo"`
	Badger BadgerConfig `koanf:"badger"`
}

// MongoConfig configures the MongoDB driver.
type MongoConfig struct {
	URI                    string        `koanf:"uri"`
	Database               string        `koanf:"database"`
	MinPoolSize            uint64        `koanf:"min_pool_size"`
	MaxPoolSize            uint64        `koanf:"max_pool_size"`
	MaxConnIdleTime        time.Duration `koanf:"max_conn_idle_time"`
	ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
	SocketTimeout          time.Duration `koanf:"socket_timeout"`
	ConnectRetries         uint64        `koanf:"connect_retries"`
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	DataDir    string        `koanf:"data_dir"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// RateLimitSection configures the request limiter.
type RateLimitSection struct {
	Enabled       bool          `koanf:"enabled"`
	Store         string        `koanf:"store"`
	RedisURL      string        `koanf:"redis_url"`
	RedisPrefix   string        `koanf:"redis_prefix"`
	Window        time.Duration `koanf:"window"`
	GeneralLimit  int           `koanf:"general_limit"`
	AuthLimit     int           `koanf:"auth_limit"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// AdmissionSection configures depth and complexity limits.
type AdmissionSection struct {
	MaxDepth        int            `koanf:"max_depth"`
	MaxComplexity   int            `koanf:"max_complexity"`
	DefaultListSize int            `koanf:"default_list_size"`
	FieldCosts      map[string]int `koanf:"field_costs"`
}

// TelemetrySection configures metrics and tracing.
type TelemetrySection struct {
	MetricsEnabled bool          `koanf:"metrics_enabled"`
	Tracing        TracingConfig `koanf:"tracing"`
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	ServiceName string        `koanf:"service_name"`
	Endpoint    string        `koanf:"endpoint"`
	Insecure    bool          `koanf:"insecure"`
	Headers     string        `koanf:"headers"`
	Timeout     time.Duration `koanf:"timeout"`
	Sampler     string        `koanf:"sampler"`
	SamplerArg  string        `koanf:"sampler_arg"`
	Required    bool          `koanf:"required"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

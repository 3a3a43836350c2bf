package config

import "time"

// Default configuration values.
const (
	DefaultAddr            = "127.0.0.1:8000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultBodyLimit       = 100 << 10
	DefaultSlowResolver    = 500 * time.Millisecond

	DefaultJWTExpiry = 24 * time.Hour

	DefaultMongoURI      = "mongodb://127.0.0.1:27017"
	DefaultMongoDatabase = "educationelly"
	DefaultBadgerDir     = "./data"

	DefaultRateWindow    = 15 * time.Minute
	DefaultGeneralLimit  = 100
	DefaultAuthLimit     = 5
	DefaultSweepInterval = time.Minute
	DefaultRedisPrefix   = "elly:rl:"

	DefaultMaxDepth       = 7
	DefaultMaxComplexity  = 1000
	DefaultListSize       = 10
	DefaultTracingTimeout = 5 * time.Second
	DefaultTracingSampler = "parentbased"
	DefaultServiceName    = "educationelly-graphql"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultCORSOrigins are the front-end origins allowed by default.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Environment: EnvDevelopment,
		Server: ServerSection{
			Addr:            DefaultAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			BodyLimit:       DefaultBodyLimit,
			CORS:            CORSConfig{AllowedOrigins: append([]string(nil), DefaultCORSOrigins...)},
			SlowResolver:    DefaultSlowResolver,
		},
		Auth: AuthSection{
			JWTExpiry: DefaultJWTExpiry,
		},
		Storage: StorageSection{
			Driver: DriverMongo,
			Mongo: MongoConfig{
				URI:                    DefaultMongoURI,
				Database:               DefaultMongoDatabase,
				MinPoolSize:            5,
				MaxPoolSize:            50,
				MaxConnIdleTime:        30 * time.Second,
				ServerSelectionTimeout: 5 * time.Second,
				SocketTimeout:          45 * time.Second,
				ConnectRetries:         5,
			},
			Badger: BadgerConfig{
				DataDir:    DefaultBadgerDir,
				GCInterval: 10 * time.Minute,
			},
		},
		RateLimit: RateLimitSection{
			Enabled:       true,
			Store:         RateLimitMemory,
			RedisPrefix:   DefaultRedisPrefix,
			Window:        DefaultRateWindow,
			GeneralLimit:  DefaultGeneralLimit,
			AuthLimit:     DefaultAuthLimit,
			SweepInterval: DefaultSweepInterval,
		},
		Admission: AdmissionSection{
			MaxDepth:        DefaultMaxDepth,
			MaxComplexity:   DefaultMaxComplexity,
			DefaultListSize: DefaultListSize,
		},
		Telemetry: TelemetrySection{
			MetricsEnabled: true,
			Tracing: TracingConfig{
				ServiceName: DefaultServiceName,
				Timeout:     DefaultTracingTimeout,
				Sampler:     DefaultTracingSampler,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

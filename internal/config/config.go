// Package config loads the service configuration from environment variables,
// applies defaults and validates every setting on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Engine    EngineConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining applies.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize bounds request bodies in bytes (default: 32MB).
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"33554432"`
}

// DatabaseConfig holds database connection settings.
// An empty URL disables saved plans and run history.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate creates the tables on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// EngineConfig holds plan application settings.
type EngineConfig struct {
	// MaxConcurrent is the maximum number of parallel applies.
	MaxConcurrent int `env:"ENGINE_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long an apply waits for a free slot.
	MaxWaitTime time.Duration `env:"ENGINE_MAX_WAIT_TIME" default:"5s"`

	// ApplyTimeout bounds a single apply.
	ApplyTimeout time.Duration `env:"ENGINE_APPLY_TIMEOUT" default:"30s"`

	MaxRows    int `env:"ENGINE_MAX_ROWS" default:"200000"`
	MaxColumns int `env:"ENGINE_MAX_COLUMNS" default:"500"`

	// PlansDir holds YAML/JSON plans registered at startup. Empty skips loading.
	PlansDir string `env:"PLANS_DIR" default:"plans"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ApplyLimit is requests per minute for apply endpoints.
	ApplyLimit int `env:"RATE_LIMIT_APPLY" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects plan writes with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json.
	Format string `env:"LOG_FORMAT" default:"text"`

	// SeqURL sends logs to a Seq server as well when set.
	SeqURL string `env:"LOG_SEQ_URL"`
}

// RetentionConfig controls run history purging.
type RetentionConfig struct {
	RunMaxAge     time.Duration `env:"RETENTION_RUN_MAX_AGE" default:"720h"`
	CheckInterval time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

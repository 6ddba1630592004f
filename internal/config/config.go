// Package config provides centralized configuration management for the
// release API server and the sync job. Values come from environment
// variables with defaults; the sync job may also read a YAML file first.
// Every setting is validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds the API server configuration.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// APIConfig holds settings of the release endpoints.
type APIConfig struct {
	// Key is the shared secret expected as a bearer token on mutating routes (required)
	Key string `env:"API_KEY" required:"true"`

	// EditableColumns restricts which fields PATCH may change; empty allows all
	EditableColumns []string `env:"EDITABLE_COLUMNS"`

	// MaxBodySize caps request bodies in bytes (default: 32MB)
	MaxBodySize int64 `env:"API_MAX_BODY_SIZE" default:"33554432"`

	// MaxConcurrentIngests bounds parallel batch ingests (default: 2)
	MaxConcurrentIngests int `env:"INGEST_MAX_CONCURRENT" default:"2"`

	// IngestWait is how long an ingest waits for a slot (default: 10s)
	IngestWait time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// IngestLimit is requests per minute for the ingest endpoint (default: 30)
	IngestLimit int `env:"RATE_LIMIT_INGEST" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// CORSAllowedOrigins lists origins allowed by CORS (default: *)
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" yaml:"level" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" yaml:"format" default:"text"`
}

// AuditConfig holds the optional Postgres audit trail settings.
type AuditConfig struct {
	// DatabaseURL enables the Postgres audit trail when set.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MemoryEntries is the in-memory audit ring size without a database (default: 500)
	MemoryEntries int `env:"AUDIT_MEMORY_ENTRIES" default:"500"`
}

// Enabled reports whether the Postgres audit trail is configured.
func (c *AuditConfig) Enabled() bool {
	return c.DatabaseURL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

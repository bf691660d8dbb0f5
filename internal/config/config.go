// Package config provides centralized configuration management for tablegen.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Generator GeneratorConfig
	Synth     SynthConfig
	Artifact  ArtifactConfig
	History   HistoryConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5000"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout must cover a full training run (default: 0, no limit)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 60s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"60s"`

	// RequestTimeout bounds every request, including synthesis (default: 30m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30m"`
}

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one uploaded file in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxFiles is the maximum number of files per request (default: 20)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	// MaxTextSize caps raw text posted to /api/recover (default: 10MB)
	MaxTextSize int64 `env:"UPLOAD_MAX_TEXT_SIZE" default:"10485760"`
}

// GeneratorConfig configures the local text generator.
type GeneratorConfig struct {
	// Command is the generator executable and leading arguments (default: "ollama run")
	Command string `env:"GENERATOR_COMMAND" default:"ollama run"`

	// Model is passed after Command (default: llama2)
	Model string `env:"GENERATOR_MODEL" envAlt:"OLLAMA_MODEL" default:"llama2"`

	// Timeout bounds a single completion (default: 5m)
	Timeout time.Duration `env:"GENERATOR_TIMEOUT" default:"5m"`

	// Format is the encoding of the generated document: xlsx, csv or parquet (default: xlsx)
	Format string `env:"GENERATOR_FORMAT" default:"xlsx"`
}

// SynthConfig configures the synthesizer process and pipeline limits.
type SynthConfig struct {
	// Command is the synthesizer executable and leading arguments; empty disables synthesis
	Command string `env:"SYNTH_COMMAND"`

	// WorkDir holds training data, models and samples (default: ./data/models)
	WorkDir string `env:"SYNTH_WORK_DIR" default:"./data/models"`

	// Epochs is the training epoch count (default: 200)
	Epochs int `env:"SYNTH_EPOCHS" default:"200"`

	// DefaultRows is sampled when a request gives no row count (default: 1000)
	DefaultRows int `env:"SYNTH_DEFAULT_ROWS" default:"1000"`

	// MaxRows caps the requested row count (default: 1000000)
	MaxRows int `env:"SYNTH_MAX_ROWS" default:"1000000"`

	// MaxTextLen is the multi-table truncation default (default: 200)
	MaxTextLen int `env:"SYNTH_MAX_TEXT_LEN" default:"200"`

	// MinTextLen is the smallest truncation a request may ask for (default: 50)
	MinTextLen int `env:"SYNTH_MIN_TEXT_LEN" default:"50"`

	// MaxConcurrent is the number of generation/synthesis runs in flight (default: 4)
	MaxConcurrent int `env:"SYNTH_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"SYNTH_MAX_WAIT_TIME" default:"30s"`
}

// ArtifactConfig selects where generated files are written.
type ArtifactConfig struct {
	// Backend is disk or s3 (default: disk)
	Backend string `env:"ARTIFACT_BACKEND" default:"disk"`

	// Dir is the root directory of the disk backend (default: ./data/artifacts)
	Dir string `env:"ARTIFACT_DIR" default:"./data/artifacts"`

	// S3Bucket is required for the s3 backend
	S3Bucket string `env:"ARTIFACT_S3_BUCKET"`

	// S3Region defaults to us-east-1
	S3Region string `env:"ARTIFACT_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// S3Endpoint overrides the endpoint for S3-compatible stores
	S3Endpoint string `env:"ARTIFACT_S3_ENDPOINT"`

	// S3Prefix is prepended to every object key
	S3Prefix string `env:"ARTIFACT_S3_PREFIX"`
}

// HistoryConfig selects the run history backend.
type HistoryConfig struct {
	// Backend is memory, sqlite or postgres (default: memory)
	Backend string `env:"HISTORY_BACKEND" default:"memory"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite backend (default: ./data/history.db)
	SQLitePath string `env:"HISTORY_SQLITE_PATH" default:"./data/history.db"`

	// MemoryCapacity is the number of runs kept by the memory backend (default: 500)
	MemoryCapacity int `env:"HISTORY_MEMORY_CAPACITY" default:"500"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectRetries is the number of ping retries at startup (default: 5)
	ConnectRetries int `env:"DB_CONNECT_RETRIES" default:"5"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// RunLimit is requests per minute for generate and synthesize (default: 10)
	RunLimit int `env:"RATE_LIMIT_RUNS" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// GeneratorArgs splits Command into the executable and its arguments.
func (c *GeneratorConfig) GeneratorArgs() []string {
	return splitCommand(c.Command)
}

// SynthArgs splits Command into the executable and its arguments.
// Nil means synthesis is disabled.
func (c *SynthConfig) SynthArgs() []string {
	return splitCommand(c.Command)
}

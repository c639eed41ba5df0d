// Package config loads and validates the service configuration.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Application identity reported on GET /.
const (
	AppName        = "mxindex"
	AppVersion     = "1.0.0"
	AppDescription = "Matrix homeserver index API"
)

// Default configuration values.
const (
	DefaultServerAddress   = ":8080"
	DefaultRedisURL        = "redis://localhost:6379"
	DefaultMaxConcurrent   = 5
	DefaultMaxDepth        = 3
	DefaultBatchSize       = 100
	DefaultProbeTimeout    = 10 * time.Second
	DefaultRateLimit       = 60
	DefaultMaxOpenConns    = 10
	DefaultSeedServer      = "matrix.org"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// ErrDatabaseURLRequired is returned when DATABASE_URL is not set.
var ErrDatabaseURLRequired = errors.New("database url is required")

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Discovery DiscoveryConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds Postgres configuration.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig holds cache configuration.
type RedisConfig struct {
	URL string
}

// DiscoveryConfig holds federation discovery configuration.
type DiscoveryConfig struct {
	MaxConcurrent int
	MaxDepth      int
	BatchSize     int
	SeedServers   []string
	ProbeTimeout  time.Duration
	Schedule      string
}

// RateLimitConfig holds rate limiting configuration. A PerMinute of 0
// disables the limiter.
type RateLimitConfig struct {
	PerMinute int
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level       string
	Encoding    string
	Development bool
}

// SetDefaults registers default values with viper. Called once from the root
// command before config is read.
func SetDefaults() {
	viper.SetDefault("server.address", DefaultServerAddress)
	viper.SetDefault("server.read_timeout", defaultReadTimeout)
	viper.SetDefault("server.write_timeout", defaultWriteTimeout)
	viper.SetDefault("server.idle_timeout", defaultIdleTimeout)
	viper.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	viper.SetDefault("database.max_open_conns", DefaultMaxOpenConns)

	viper.SetDefault("redis.url", DefaultRedisURL)

	viper.SetDefault("discovery.max_concurrent", DefaultMaxConcurrent)
	viper.SetDefault("discovery.max_depth", DefaultMaxDepth)
	viper.SetDefault("discovery.batch_size", DefaultBatchSize)
	viper.SetDefault("discovery.seed_servers", DefaultSeedServer)
	viper.SetDefault("discovery.probe_timeout", DefaultProbeTimeout)
	viper.SetDefault("discovery.schedule", "")

	viper.SetDefault("rate_limit.per_minute", DefaultRateLimit)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("logger.development", false)
}

// BindEnv maps the published environment variables to config keys.
func BindEnv() error {
	binds := map[string][]string{
		"server.address":           {"SERVER_ADDRESS"},
		"database.url":             {"DATABASE_URL"},
		"redis.url":                {"REDIS_URL"},
		"discovery.max_concurrent": {"FEDERATION_DISCOVERY_CONCURRENT"},
		"discovery.max_depth":      {"FEDERATION_DISCOVERY_DEPTH"},
		"discovery.batch_size":     {"FEDERATION_DISCOVERY_BATCH"},
		"discovery.seed_servers":   {"FEDERATION_SEED_SERVERS"},
		"discovery.schedule":       {"FEDERATION_DISCOVERY_SCHEDULE"},
		"rate_limit.per_minute":    {"RATE_LIMIT_PER_MINUTE"},
		"logger.level":             {"LOG_LEVEL"},
		"logger.encoding":          {"LOG_FORMAT"},
	}
	for key, envs := range binds {
		args := append([]string{key}, envs...)
		if err := viper.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// Load builds the typed configuration from viper.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:         viper.GetString("server.address"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			IdleTimeout:     viper.GetDuration("server.idle_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Discovery: DiscoveryConfig{
			MaxConcurrent: viper.GetInt("discovery.max_concurrent"),
			MaxDepth:      viper.GetInt("discovery.max_depth"),
			BatchSize:     viper.GetInt("discovery.batch_size"),
			SeedServers:   ParseSeedServers(viper.GetString("discovery.seed_servers")),
			ProbeTimeout:  viper.GetDuration("discovery.probe_timeout"),
			Schedule:      viper.GetString("discovery.schedule"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: viper.GetInt("rate_limit.per_minute"),
		},
		Logger: LoggerConfig{
			Level:       viper.GetString("logger.level"),
			Encoding:    viper.GetString("logger.encoding"),
			Development: viper.GetBool("logger.development"),
		},
	}

	if cfg.Database.URL == "" {
		return nil, ErrDatabaseURLRequired
	}
	cfg.Discovery.normalize()

	return cfg, nil
}

// normalize falls back to defaults for out-of-range discovery parameters.
func (c *DiscoveryConfig) normalize() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if len(c.SeedServers) == 0 {
		c.SeedServers = []string{DefaultSeedServer}
	}
}

// ParseSeedServers splits a comma-separated seed list, dropping empty entries.
func ParseSeedServers(s string) []string {
	parts := strings.Split(s, ",")
	servers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			servers = append(servers, p)
		}
	}
	return servers
}

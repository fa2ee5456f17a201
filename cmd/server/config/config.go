// Package config provides configuration structures for the sqlgate server.
package config

import (
	"fmt"
	"time"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// SQL policy
	Policy PolicyConfig `yaml:"policy" json:"policy"`

	// Connection defaults
	DefaultPoolSize int           `yaml:"default_pool_size" json:"default_pool_size"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
	ReadOnlyMode    bool          `yaml:"readonly_mode" json:"readonly_mode"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Health check configuration
	Health HealthConfig `yaml:"health" json:"health"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`

	// Execution history
	HistorySize int `yaml:"history_size" json:"history_size"`
}

// PolicyConfig represents the SQL validation policy. Every field is
// operator-overridable; none of the limits are hardcoded.
type PolicyConfig struct {
	AllowedOperations []string `yaml:"allowed_operations" json:"allowed_operations"`
	BlockedKeywords   []string `yaml:"blocked_keywords" json:"blocked_keywords"`
	MaxQueryLength    int      `yaml:"max_query_length" json:"max_query_length"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration.
type HealthConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// ConnectionPoolConfig represents per-connection pool configuration.
type ConnectionPoolConfig struct {
	MaxIdleConnections int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.LogLevel)
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}

	if c.DefaultPoolSize <= 0 {
		c.DefaultPoolSize = 10
	}
	if c.DefaultPoolSize > 100 {
		return fmt.Errorf("default_pool_size must be at most 100, got %d", c.DefaultPoolSize)
	}

	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.Policy.MaxQueryLength <= 0 {
		c.Policy.MaxQueryLength = 10000
	}
	if len(c.Policy.AllowedOperations) == 0 {
		c.Policy.AllowedOperations = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"}
	}
	if len(c.Policy.BlockedKeywords) == 0 {
		c.Policy.BlockedKeywords = []string{"DROP", "TRUNCATE", "ALTER"}
	}

	if c.HistorySize <= 0 {
		c.HistorySize = 1000
	}

	// Set defaults for health checks
	if c.Health.Interval <= 0 {
		c.Health.Interval = 30 * time.Second
	}

	// Set defaults for connection pools
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = 2
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.ConnectionPool.ConnectTimeout <= 0 {
		c.ConnectionPool.ConnectTimeout = 10 * time.Second
	}

	// Set defaults for metrics
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel: "info",
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Health: HealthConfig{
			Enabled: true,
		},
	}
	// Validate never fails on the defaults above.
	_ = cfg.Validate()
	return cfg
}

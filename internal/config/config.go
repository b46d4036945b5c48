// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Limits for the listen port.
const (
	minPort = 0
	maxPort = 65535
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Host is the interface to bind; empty binds all interfaces.
	Host string `koanf:"host"`

	// Port is the TCP port of the public listener. 0 picks a free port.
	Port int `koanf:"port"`

	// H2C enables HTTP/2 over cleartext TCP next to HTTP/1.1.
	H2C bool `koanf:"h2c"`

	// MetricsAddr is the admin listener address (metrics and API docs).
	// Empty disables the admin listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// Transport timeouts of the public listener. The echo body read inherits ReadTimeout.
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`

	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SentryDSN enables error reporting when set.
	SentryDSN string `koanf:"sentry_dsn"`

	// SentryEnvironment tags reported events.
	SentryEnvironment string `koanf:"sentry_environment"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Host:              "",
		Port:              3000,
		H2C:               false,
		MetricsAddr:       "",
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		SentryEnvironment: "local",
	}
}

// Addr returns the host:port the public listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Port < minPort || c.Port > maxPort:
		return fmt.Errorf("%w: port %d out of range %d-%d", ErrInvalidConfig, c.Port, minPort, maxPort)
	case c.ReadTimeout < 0, c.ReadHeaderTimeout < 0, c.WriteTimeout < 0, c.IdleTimeout < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// File path: internal/graph/kuzu/config.go
package kuzu

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures connection options for the Kuzu graph backend.
type Config struct {
	Endpoint       string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	Timeout        time.Duration

	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPIdleConnTimeout time.Duration
}

// Merge overlays non-zero values from the override into the receiver.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Endpoint) != "" {
		result.Endpoint = strings.TrimSpace(override.Endpoint)
	}
	if strings.TrimSpace(override.Database) != "" {
		result.Database = strings.TrimSpace(override.Database)
	}
	if strings.TrimSpace(override.Username) != "" {
		result.Username = strings.TrimSpace(override.Username)
	}
	if strings.TrimSpace(override.Password) != "" {
		result.Password = override.Password
	}
	if override.MaxConnections > 0 {
		result.MaxConnections = override.MaxConnections
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPMaxIdlePerHost > 0 {
		result.HTTPMaxIdlePerHost = override.HTTPMaxIdlePerHost
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	return result
}

// LoadConfig reads configuration from KUZU_* environment variables. The graph
// layer is optional: an empty KUZU_ENDPOINT leaves it disabled.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if endpoint := strings.TrimSpace(os.Getenv("KUZU_ENDPOINT")); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if database := strings.TrimSpace(os.Getenv("KUZU_DATABASE")); database != "" {
		cfg.Database = database
	}
	if username := strings.TrimSpace(os.Getenv("KUZU_USERNAME")); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("KUZU_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if timeout := strings.TrimSpace(os.Getenv("KUZU_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse KUZU_TIMEOUT: %w", err)
		}
		cfg.Timeout = parsed
	}
	if max := strings.TrimSpace(os.Getenv("KUZU_MAX_CONNECTIONS")); max != "" {
		value, err := strconv.Atoi(max)
		if err != nil {
			return Config{}, fmt.Errorf("parse KUZU_MAX_CONNECTIONS: %w", err)
		}
		if value > 0 {
			cfg.MaxConnections = value
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Database) == "" {
		c.Database = "main"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = c.MaxConnections * 2
	}
	if c.HTTPMaxIdlePerHost <= 0 {
		c.HTTPMaxIdlePerHost = c.MaxConnections
	}
	if c.HTTPIdleConnTimeout <= 0 {
		c.HTTPIdleConnTimeout = 90 * time.Second
	}
}

// Enabled reports whether an endpoint has been configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

package gateway

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway's runtime configuration.
type Config struct {
	// TCPAddr is the listen address for ECU data ingestion.
	TCPAddr string `yaml:"tcp_addr"`

	// HTTPAddr is the listen address for the REST API.
	HTTPAddr string `yaml:"http_addr"`

	// Workers is the number of pool workers processing ingested
	// messages. Zero is legal: messages queue up but are never
	// processed.
	Workers int `yaml:"workers"`

	// AuditDB is the path of the SQLite audit database. Empty disables
	// auditing.
	AuditDB string `yaml:"audit_db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the stock configuration: ingestion on :8080,
// REST on :8081, two workers, no audit.
func DefaultConfig() Config {
	return Config{
		TCPAddr:  ":8080",
		HTTPAddr: ":8081",
		Workers:  2,
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file, applying defaults for any field
// the file leaves unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("gateway: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("gateway: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.TCPAddr == "" {
		return fmt.Errorf("gateway: tcp_addr must not be empty")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("gateway: http_addr must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("gateway: workers must be >= 0, got %d", c.Workers)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("gateway: unknown log_level %q", c.LogLevel)
	}
	return nil
}

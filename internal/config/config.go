// Package config provides configuration loading for roadmapd.
//
// Configuration comes from an optional YAML file overridden by environment
// variables. See LoadWithFile for precedence and the variable naming scheme.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete roadmapd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Store         StoreConfig         `koanf:"store"`
	LLM           LLMConfig           `koanf:"llm"`
	Events        EventsConfig        `koanf:"events"`
	Detector      DetectorConfig      `koanf:"detector"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds project store configuration.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory store,
	// which loses everything on restart.
	Path string `koanf:"path"`
}

// LLMConfig holds roadmap generation configuration.
type LLMConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	APIKey  Secret   `koanf:"api_key"`
	Timeout Duration `koanf:"timeout"`
}

// EventsConfig holds progress event publishing configuration.
type EventsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Embedded runs an in-process NATS server instead of dialing NATSURL.
	Embedded bool   `koanf:"embedded"`
	NATSURL  string `koanf:"nats_url"`
}

// DetectorConfig holds completion detector tuning.
type DetectorConfig struct {
	OverlapThreshold float64 `koanf:"overlap_threshold"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// NewDefaultConfig returns the defaults applied underneath file and
// environment values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8087,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Path: "roadmapd.db",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: Duration(30 * time.Second),
		},
		Events: EventsConfig{
			Enabled: true,
			NATSURL: "nats://localhost:4222",
		},
		Detector: DetectorConfig{
			OverlapThreshold: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "roadmapd",
			Insecure:    true,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.LLM.Timeout.Duration() <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if c.Detector.OverlapThreshold <= 0 || c.Detector.OverlapThreshold > 1 {
		return fmt.Errorf("detector overlap threshold must be in (0, 1], got %f", c.Detector.OverlapThreshold)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Events.Enabled && !c.Events.Embedded && c.Events.NATSURL == "" {
		return errors.New("nats_url required when events are enabled")
	}
	if c.Observability.Enabled {
		if c.Observability.Endpoint == "" {
			return errors.New("observability endpoint required when enabled")
		}
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when observability is enabled")
		}
	}
	return nil
}

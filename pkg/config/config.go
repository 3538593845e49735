// Package config provides unified configuration for the coachrelay server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Legacy environment variables (OPENAI_API_KEY, OPENAI_BASE_URL, PORT)
//  4. Environment variable overrides (COACHRELAY_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the coachrelay server.
type Config struct {
	Server        ServerConfig        `yaml:"server" envPrefix:"SERVER_"`
	Engine        EngineConfig        `yaml:"engine" envPrefix:"ENGINE_"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability" envPrefix:"METRICS_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`                         // default: all interfaces
	Port            int           `yaml:"port" env:"PORT"`                         // default: 8000
	MaxBodySize     int64         `yaml:"max_body_size" env:"MAX_BODY_SIZE"`       // default: 1 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"` // default: 30s
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig holds upstream and relay settings.
type EngineConfig struct {
	APIKey     string `yaml:"api_key" env:"API_KEY"`           // optional; absence fails requests, not startup
	APIKeyFile string `yaml:"api_key_file" env:"API_KEY_FILE"` // _file variant for api_key
	BaseURL    string `yaml:"base_url" env:"BASE_URL"`         // optional OpenAI-compatible endpoint
	Model      string `yaml:"model" env:"MODEL"`               // default: gpt-5-nano
	Stream     bool   `yaml:"stream" env:"STREAM"`             // default: true

	SystemInstruction     string `yaml:"system_instruction" env:"SYSTEM_INSTRUCTION"`
	SystemInstructionFile string `yaml:"system_instruction_file" env:"SYSTEM_INSTRUCTION_FILE"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"` // default: 30s
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`       // default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"` // default: 120s

	RedactUpstreamErrors bool `yaml:"redact_upstream_errors" env:"REDACT_UPSTREAM_ERRORS"`
	IncludeUsage         bool `yaml:"include_usage" env:"INCLUDE_USAGE"` // default: true
}

// LoggingConfig holds log output settings. Debug is a comma-separated list
// of debug categories, or "all".
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // default: info
	Format string `yaml:"format" env:"LOG_FORMAT"` // "text" or "json", default: text
	Debug  string `yaml:"debug" env:"DEBUG"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"` // default: true
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			MaxBodySize:     1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Model:          "gpt-5-nano",
			Stream:         true,
			ConnectTimeout: 30 * time.Second,
			IdleTimeout:    30 * time.Second,
			RequestTimeout: 120 * time.Second,
			IncludeUsage:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
}

// HasAPIKey reports whether an upstream credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.Engine.APIKey != ""
}

const redacted = "[REDACTED]"

// String renders the configuration as YAML with secrets redacted.
func (c Config) String() string {
	if c.Engine.APIKey != "" {
		c.Engine.APIKey = redacted
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

// Package config provides configuration loading for taskd.
//
// Configuration is loaded from an optional YAML file, then overridden
// by TASKD_* environment variables, on top of hardcoded defaults.
package config

import (
	"errors"
	"fmt"
)

// Config holds the complete taskd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	Inference  InferenceConfig  `koanf:"inference"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Extraction ExtractionConfig `koanf:"extraction"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host                   string `koanf:"host"`
	Port                   int    `koanf:"port"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// InferenceConfig holds pipeline tuning values.
type InferenceConfig struct {
	// ConfidenceThreshold is the minimum candidate confidence (0-100)
	// kept by validation.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// ClassificationEnabled controls the cheap actionability check.
	// When false, every input is treated as actionable.
	ClassificationEnabled bool `koanf:"classification_enabled"`
}

// ClassifierConfig holds local classifier (Ollama) configuration.
type ClassifierConfig struct {
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// ExtractionConfig holds extraction provider configuration.
type ExtractionConfig struct {
	Provider  string         `koanf:"provider"` // anthropic, openai, disabled
	Anthropic ProviderConfig `koanf:"anthropic"`
	OpenAI    ProviderConfig `koanf:"openai"`
}

// ProviderConfig holds per-provider LLM settings.
type ProviderConfig struct {
	Model          string `koanf:"model"`
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	MaxTokens      int    `koanf:"max_tokens"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "localhost",
			Port:                   8080,
			ShutdownTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path: "taskd.db",
		},
		Inference: InferenceConfig{
			ConfidenceThreshold:   70,
			ClassificationEnabled: true,
		},
		Classifier: ClassifierConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3.2:3b",
			TimeoutSeconds: 15,
		},
		Extraction: ExtractionConfig{
			Provider: "anthropic",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Inference.ConfidenceThreshold < 0 || c.Inference.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold must be within 0-100, got %v", c.Inference.ConfidenceThreshold)
	}
	switch c.Extraction.Provider {
	case "anthropic", "openai", "disabled":
	default:
		return fmt.Errorf("unknown extraction provider: %q", c.Extraction.Provider)
	}
	return nil
}

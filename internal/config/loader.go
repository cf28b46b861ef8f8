package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces taskd environment variables.
const envPrefix = "TASKD_"

// Load loads configuration with the following precedence (highest
// first):
//  1. Environment variables (TASKD_SERVER_PORT, TASKD_DATABASE_PATH,
//     TASKD_EXTRACTION_ANTHROPIC_API_KEY, ...)
//  2. YAML config file (configPath; skipped when empty or missing)
//  3. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// envTransform maps environment variable names onto config keys.
//
// The first underscore token selects the section; the remainder is the
// field name, so compound field names keep their underscores:
//
//	TASKD_SERVER_SHUTDOWN_TIMEOUT_SECONDS -> server.shutdown_timeout_seconds
//	TASKD_INFERENCE_CONFIDENCE_THRESHOLD  -> inference.confidence_threshold
//	TASKD_EXTRACTION_ANTHROPIC_API_KEY    -> extraction.anthropic.api_key
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))

	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}

	if section == "extraction" {
		if provider, rest, ok := strings.Cut(field, "_"); ok && (provider == "anthropic" || provider == "openai") {
			return "extraction." + provider + "." + rest
		}
	}

	return section + "." + field
}

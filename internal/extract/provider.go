package extract

import (
	"context"
	"fmt"
	"time"
)

// NewExtractor creates a task extractor based on configuration.
func NewExtractor(cfg ExtractionConfig) (Extractor, error) {
	if cfg.Provider == "" || cfg.Provider == "disabled" {
		return &NoOpExtractor{}, nil
	}

	providerCfg, ok := cfg.Providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case "anthropic":
		return newAnthropicExtractor(providerCfg)
	case "openai":
		return newOpenAIExtractor(providerCfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// NoOpExtractor is a no-op implementation of Extractor.
type NoOpExtractor struct{}

// Extract returns an empty candidate list.
func (n *NoOpExtractor) Extract(ctx context.Context, text string, refDate time.Time) ([]Candidate, error) {
	return []Candidate{}, nil
}

// Available returns false for NoOpExtractor.
func (n *NoOpExtractor) Available() bool {
	return false
}

// Ensure interface is implemented.
var _ Extractor = (*NoOpExtractor)(nil)

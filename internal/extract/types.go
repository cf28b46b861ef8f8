// Package extract converts free-text content into structured candidate
// tasks using a high-capability LLM. It supports Anthropic and OpenAI
// backends with retries, rate limiting, and strict normalization of
// model output.
package extract

import (
	"context"
	"time"
)

// Candidate represents an unvalidated task extracted from text.
type Candidate struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     string  `json:"due_date,omitempty"`
	Priority    int     `json:"priority,omitempty"`
	Confidence  float64 `json:"confidence"`
	Context     string  `json:"context,omitempty"`
}

// Extractor extracts candidate tasks from a block of text.
// Implementations must be safe for concurrent use across pipeline runs.
type Extractor interface {
	// Extract returns candidate tasks found in the text. The reference
	// date anchors relative due-date expressions like "tomorrow".
	Extract(ctx context.Context, text string, refDate time.Time) ([]Candidate, error)

	// Available returns true if the extractor is configured and ready.
	Available() bool
}

// ExtractionConfig holds configuration for task extraction.
type ExtractionConfig struct {
	Provider  string            `json:"provider"` // "anthropic", "openai", "disabled"
	Providers map[string]Config `json:"providers,omitempty"`
}

// Config holds provider-specific configuration.
type Config struct {
	Model     string `json:"model,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

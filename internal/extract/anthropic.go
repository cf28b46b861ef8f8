package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 4096
	defaultTimeout          = 60 * time.Second
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// anthropicExtractor implements Extractor using Anthropic's Claude API.
type anthropicExtractor struct {
	model      string
	apiKey     string `json:"-"` // Never serialize API keys
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// newAnthropicExtractor creates a new Anthropic extractor.
func newAnthropicExtractor(cfg Config) (Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &anthropicExtractor{
		model:     model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

// anthropicRequest represents the request format for Claude API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

// anthropicMessage represents a message in the Claude conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents the response from Claude API.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// anthropicError represents an error response from Claude API.
type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract converts text into candidate tasks using Claude.
func (a *anthropicExtractor) Extract(ctx context.Context, text string, refDate time.Time) ([]Candidate, error) {
	// Wait for rate limiter
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0.3, // Low temperature for consistent extraction
		System:      extractPrompt,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: userPrompt(text, refDate),
			},
		},
	}

	// Make request with retries
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoffFor(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		content, err := a.doRequest(ctx, req)
		if err == nil {
			return parseCandidates(content)
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs the actual HTTP request to the Claude API.
func (a *anthropicExtractor) doRequest(ctx context.Context, req anthropicRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	// Handle server errors (retryable)
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicError
		if err := json.Unmarshal(body, &errResp); err == nil {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var claudeResp anthropicResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(claudeResp.Content) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return claudeResp.Content[0].Text, nil
}

// Available returns true if the extractor is configured.
func (a *anthropicExtractor) Available() bool {
	return a.apiKey != ""
}

// Ensure interface is implemented.
var _ Extractor = (*anthropicExtractor)(nil)

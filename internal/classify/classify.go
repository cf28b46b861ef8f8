// Package classify answers a cheap yes/no actionability question for a
// block of text using a local LLM (Ollama). Classification is a quick
// signal, not an authoritative judgment: the caller treats any failure
// as "assume actionable".
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2:3b"
	defaultTimeout = 15 * time.Second

	// Classification only needs a quick signal, so input is truncated
	// to a short prefix before submission.
	maxInputChars = 500
)

// classifyPrompt is the system prompt for actionability classification.
const classifyPrompt = `You are a message classifier. Analyze if the message contains actionable tasks or commitments.

Actionable indicators:
- Action verbs: "send", "review", "schedule", "update", "fix", "create"
- Time constraints: "by tomorrow", "this week", "EOD"
- Requests: "can you", "please", "could you"
- Commitments: "I'll", "I will", "let me"

Non-actionable:
- Greetings: "hi", "thanks", "good morning"
- Acknowledgments: "got it", "ok", "understood"
- Questions without requests: "how are you"

Respond with ONLY "yes" or "no".`

// Classifier answers whether a text block is actionable.
// Implementations must be safe for concurrent use across pipeline runs.
type Classifier interface {
	// Classify returns true if the text contains actionable content.
	// The caller is responsible for the fail-open policy: errors are
	// returned, not swallowed here.
	Classify(ctx context.Context, text string) (bool, error)
}

// Config holds classifier configuration.
type Config struct {
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// Client is an Ollama-backed Classifier.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates an Ollama classification client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the Ollama /api/generate response body.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Classify asks the local model whether the text is actionable.
// Input is truncated to the first 500 characters.
func (c *Client) Classify(ctx context.Context, text string) (bool, error) {
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	response, err := c.generate(ctx, fmt.Sprintf("Message: %s\n\nIs this actionable?", text))
	if err != nil {
		return false, err
	}

	// The model is told to answer "yes" or "no" but may pad the
	// answer; only the leading few characters are inspected.
	verdict := strings.ToLower(response)
	if len(verdict) > 10 {
		verdict = verdict[:10]
	}
	return strings.Contains(verdict, "yes"), nil
}

// generate performs a single non-streaming completion request.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: classifyPrompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.3,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier error (%d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return genResp.Response, nil
}

// Ensure interface is implemented.
var _ Classifier = (*Client)(nil)

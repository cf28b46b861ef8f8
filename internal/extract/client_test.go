package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"id":   "msg_test",
		"type": "message",
		"role": "assistant",
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func openAIReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestAnthropicExtract(t *testing.T) {
	var gotAuth, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotAuth = r.Header.Get("X-API-Key")
		gotVersion = r.Header.Get("Anthropic-Version")

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.System)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Today's date: 2025-11-10")

		anthropicReply(t, w, `[{"title": "Send report", "confidence": 85}]`)
	}))
	defer server.Close()

	extractor, err := newAnthropicExtractor(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	refDate := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	candidates, err := extractor.Extract(context.Background(), "send the report please", refDate)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Send report", candidates[0].Title)
	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, "2023-06-01", gotVersion)
}

func TestAnthropicExtract_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": "overloaded"}`)
			return
		}
		anthropicReply(t, w, `[{"title": "Send report", "confidence": 85}]`)
	}))
	defer server.Close()

	extractor, err := newAnthropicExtractor(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	candidates, err := extractor.Extract(context.Background(), "send the report", time.Now())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicExtract_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	}))
	defer server.Close()

	extractor, err := newAnthropicExtractor(Config{APIKey: "bad-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), "send the report", time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.Equal(t, int32(1), calls.Load(), "4xx errors are not retried")
}

func TestAnthropicExtract_MalformedContentFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicReply(t, w, "Sure! Here are the tasks I found: send the report.")
	}))
	defer server.Close()

	extractor, err := newAnthropicExtractor(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	candidates, err := extractor.Extract(context.Background(), "send the report", time.Now())

	require.Error(t, err)
	assert.Nil(t, candidates)
}

func TestOpenAIExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		openAIReply(t, w, "```json\n[{\"title\": \"Send report\", \"confidence\": 85}]\n```")
	}))
	defer server.Close()

	extractor, err := newOpenAIExtractor(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	candidates, err := extractor.Extract(context.Background(), "send the report", time.Now())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Send report", candidates[0].Title)
}

func TestNewExtractor(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		for _, provider := range []string{"", "disabled"} {
			extractor, err := NewExtractor(ExtractionConfig{Provider: provider})
			require.NoError(t, err)
			assert.IsType(t, &NoOpExtractor{}, extractor)
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		extractor, err := NewExtractor(ExtractionConfig{
			Provider: "anthropic",
			Providers: map[string]Config{
				"anthropic": {APIKey: "k"},
			},
		})
		require.NoError(t, err)
		assert.True(t, extractor.Available())
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewExtractor(ExtractionConfig{
			Provider:  "anthropic",
			Providers: map[string]Config{"anthropic": {}},
		})
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewExtractor(ExtractionConfig{
			Provider:  "gemini",
			Providers: map[string]Config{"gemini": {APIKey: "k"}},
		})
		require.Error(t, err)
	})
}

func TestNoOpExtractor(t *testing.T) {
	extractor := &NoOpExtractor{}

	candidates, err := extractor.Extract(context.Background(), "anything", time.Now())

	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.False(t, extractor.Available())
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoffFor(1))
	assert.Equal(t, 2*time.Second, backoffFor(2))
	assert.Equal(t, 4*time.Second, backoffFor(3))
	assert.Equal(t, 10*time.Second, backoffFor(5), "capped at max backoff")
}

func TestIsRetryableError(t *testing.T) {
	base := errors.New("rate limited (429)")
	assert.True(t, isRetryableError(&retryableError{err: base}))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &retryableError{err: base})))
	assert.False(t, isRetryableError(base))
	assert.False(t, isRetryableError(nil))
}

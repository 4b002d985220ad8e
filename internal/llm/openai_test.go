package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{APIKey: "test-key"},
			wantErr: false,
		},
		{
			name:    "missing API key",
			config:  Config{APIKey: ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func openaiTextResponse(text string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"message": map[string]string{
					"role":    "assistant",
					"content": text,
				},
				"finish_reason": "stop",
			},
		},
	}
}

func TestOpenAIClient_CleanupPayee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(openaiTextResponse(`{
			"cleaned": "Acme Store",
			"rule": {
				"pattern": "ACME STORE",
				"pattern_type": "contains",
				"replacement": "Acme Store",
				"confidence": 0.8
			}
		}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.CleanupPayee(context.Background(),
		"ACME STORE LONDON 19OCT REF859GBP22.50", nil)
	require.NoError(t, err)

	assert.Equal(t, "Acme Store", resp.Cleaned)
	require.NotNil(t, resp.Draft)
	assert.Equal(t, "ACME STORE", resp.Draft.Pattern)
	assert.Equal(t, model.PatternContains, resp.Draft.PatternType)
}

func TestOpenAIClient_ErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit"}}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.CleanupPayee(context.Background(), "ACME", nil)
	require.Error(t, err)
	assert.Equal(t, KindRateLimit, KindOf(err))
	assert.True(t, IsRetryable(err))
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "chatcmpl-test", "choices": []any{}})
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.CleanupPayee(context.Background(), "ACME", nil)
	require.Error(t, err)
	assert.Equal(t, KindResponseParsing, KindOf(err))
}

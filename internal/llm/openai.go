package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// openaiClient implements the Client interface for the OpenAI API.
type openaiClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &openaiClient{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// CleanupPayee sends a payee cleanup request to OpenAI.
func (c *openaiClient) CleanupPayee(ctx context.Context, original string, txnContext map[string]string) (CleanupResponse, error) {
	prompt := buildCleanupPrompt(original, txnContext)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return CleanupResponse{}, err
	}

	return parseCleanupResponse(content)
}

// HealthCheck sends a minimal request to verify connectivity and credentials.
func (c *openaiClient) HealthCheck(ctx context.Context) error {
	_, err := c.complete(ctx, "Respond with the single word: ok")
	return err
}

// complete posts a single-turn chat completion and returns the text content.
func (c *openaiClient) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": cleanupSystemPrompt,
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", newClientError(KindUnexpected, "failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", newClientError(KindUnexpected, "failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", newClientError(kindFromStatus(resp.StatusCode),
			"openAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", newClientError(KindResponseParsing, "failed to parse response: %v", err)
	}

	if len(response.Choices) == 0 {
		return "", newClientError(KindResponseParsing, "no choices in response")
	}

	return response.Choices[0].Message.Content, nil
}

// openaiResponse represents the OpenAI API response structure.
type openaiResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

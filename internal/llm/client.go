package llm

import (
	"context"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/model"
)

// Client defines the interface for LLM providers.
type Client interface {
	// CleanupPayee asks the provider to normalize a noisy payee string.
	// txnContext carries optional hints such as the transaction amount or
	// date that help the model disambiguate.
	CleanupPayee(ctx context.Context, original string, txnContext map[string]string) (CleanupResponse, error)

	// HealthCheck verifies the provider is reachable and credentials work.
	HealthCheck(ctx context.Context) error
}

// CleanupResponse contains the LLM's cleanup result. Draft is nil when the
// model did not suggest a reusable rule.
type CleanupResponse struct {
	Draft   *model.RuleDraft
	Cleaned string
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

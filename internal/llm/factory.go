package llm

import (
	"fmt"
	"strings"

	"github.com/rosewood-labs/payeeclean/internal/common"
)

// NewClient creates a raw LLM client based on the provided configuration.
// Most callers should use NewCleaner, which adds caching, rate limiting and
// retries on top of the raw client.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/common"
	"github.com/rosewood-labs/payeeclean/internal/service"
)

// Cleaner wraps a raw Client with caching, rate limiting and retry behavior.
// It is the implementation the engine consumes.
type Cleaner struct {
	client    Client
	cache     *responseCache
	logger    *slog.Logger
	pacer     *callPacer
	retryOpts service.RetryOptions
}

// NewCleaner creates an LLM-backed payee cleaner from configuration.
func NewCleaner(cfg Config, logger *slog.Logger) (*Cleaner, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return NewCleanerWithClient(client, cfg, logger), nil
}

// NewCleanerWithClient wraps an existing client; used by tests to inject a
// fake provider.
func NewCleanerWithClient(client Client, cfg Config, logger *slog.Logger) *Cleaner {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Cleaner{
		client:    client,
		cache:     newResponseCache(cfg.CacheTTL),
		logger:    logger,
		retryOpts: retryOpts,
		pacer:     newCallPacer(cfg.RateLimit),
	}
}

// CleanupPayee normalizes a payee string via the underlying provider,
// retrying retryable failures with backoff. Non-retryable failures
// (authentication, parsing, model errors) surface immediately.
func (c *Cleaner) CleanupPayee(ctx context.Context, original string, txnContext map[string]string) (CleanupResponse, error) {
	if cached, found := c.cache.get(original); found {
		c.logger.Debug("cache hit for payee cleanup", "original", original)
		return cached, nil
	}

	// Rate limiting
	if err := c.pacer.wait(ctx); err != nil {
		return CleanupResponse{}, &ClientError{Kind: KindConnection, Err: err}
	}

	var response CleanupResponse

	err := common.WithRetry(ctx, func() error {
		resp, err := c.client.CleanupPayee(ctx, original, txnContext)
		if err != nil {
			c.logger.Warn("payee cleanup attempt failed",
				"error", err,
				"original", original)
			return &common.RetryableError{Err: err, Retryable: IsRetryable(err)}
		}

		response = resp
		return nil
	}, c.retryOpts)

	if err != nil {
		// Surface the provider's typed error rather than the retry wrapper.
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			return CleanupResponse{}, clientErr
		}
		return CleanupResponse{}, &ClientError{Kind: KindUnexpected, Err: err}
	}

	c.cache.set(original, response)

	c.logger.Info("payee cleaned via LLM",
		"original", original,
		"cleaned", response.Cleaned,
		"has_draft", response.Draft != nil)

	return response, nil
}

// HealthCheck verifies the provider is reachable.
func (c *Cleaner) HealthCheck(ctx context.Context) error {
	if err := c.pacer.wait(ctx); err != nil {
		return &ClientError{Kind: KindConnection, Err: err}
	}
	return c.client.HealthCheck(ctx)
}

// Close stops background goroutines and cleans up resources.
func (c *Cleaner) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return nil
}

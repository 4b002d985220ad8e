package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosewood-labs/payeeclean/internal/service"
)

func fastRetryOpts(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}
		return nil
	}, fastRetryOpts(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	terminal := errors.New("bad credentials")
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: terminal, Retryable: false}
	}, fastRetryOpts(5))

	require.Error(t, err)
	assert.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: errors.New("still down"), Retryable: true}
	}, fastRetryOpts(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_ExhaustedAttemptsPreserveCause(t *testing.T) {
	cause := errors.New("service unavailable")
	err := WithRetry(context.Background(), func() error {
		return &RetryableError{Err: cause, Retryable: true}
	}, fastRetryOpts(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	// The final failure must stay reachable through the wrapper so callers
	// can classify it after exhaustion.
	assert.ErrorIs(t, err, cause)

	var retryableErr *RetryableError
	require.True(t, errors.As(err, &retryableErr))
	assert.True(t, retryableErr.Retryable)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return &RetryableError{Err: errors.New("transient"), Retryable: true}
	}, fastRetryOpts(5))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "wrapped rate limit", err: fmt.Errorf("call failed: %w", ErrRateLimit), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "retryable wrapper", err: &RetryableError{Err: errors.New("x"), Retryable: true}, want: true},
		{name: "non-retryable wrapper", err: &RetryableError{Err: errors.New("x"), Retryable: false}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

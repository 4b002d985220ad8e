package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a client failure so callers can decide retry policy.
type ErrorKind string

// Error kind constants. Authentication failures are terminal; RateLimit,
// ServiceUnavailable and Connection are candidates for retry with backoff;
// ResponseParsing, Model and Unexpected are non-retryable.
const (
	KindAuthentication     ErrorKind = "authentication"
	KindRateLimit          ErrorKind = "rate_limit"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindConnection         ErrorKind = "connection"
	KindResponseParsing    ErrorKind = "response_parsing"
	KindModel              ErrorKind = "model"
	KindUnexpected         ErrorKind = "unexpected"
)

// ClientError is a typed failure from an LLM provider.
type ClientError struct {
	Err  error
	Kind ErrorKind
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying with backoff.
func (e *ClientError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindServiceUnavailable, KindConnection:
		return true
	}
	return false
}

func newClientError(kind ErrorKind, format string, args ...any) *ClientError {
	return &ClientError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether err is a retryable client error.
func IsRetryable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Retryable()
	}
	return false
}

// KindOf extracts the error kind from err, or KindUnexpected for untyped errors.
func KindOf(err error) ErrorKind {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return KindUnexpected
}

// kindFromStatus maps an HTTP response status to an error kind.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return KindServiceUnavailable
	case status >= 500:
		return KindModel
	default:
		return KindUnexpected
	}
}

// wrapTransportError classifies a failed HTTP round-trip. Network failures,
// timeouts and cancellations all count as connection errors so callers treat
// them as retryable rather than as "no cleaning possible".
func wrapTransportError(err error) *ClientError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Kind: KindConnection, Err: fmt.Errorf("request timed out: %w", err)}
	}
	return &ClientError{Kind: KindConnection, Err: err}
}

package engine

import (
	"context"

	"github.com/rosewood-labs/payeeclean/internal/llm"
)

// PayeeCleaner is the LLM fallback boundary as the engine consumes it.
// llm.Cleaner satisfies this interface; tests substitute MockCleaner.
type PayeeCleaner interface {
	// CleanupPayee returns a cleaned payee string and optionally a rule
	// draft for matching future occurrences.
	CleanupPayee(ctx context.Context, original string, txnContext map[string]string) (llm.CleanupResponse, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}

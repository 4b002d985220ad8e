package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/rosewood-labs/payeeclean/internal/llm"
	"github.com/rosewood-labs/payeeclean/internal/model"
)

// MockCleaner is a test implementation of the PayeeCleaner interface.
// It returns deterministic cleanups based on the raw payee string, and can
// be scripted with canned responses or injected errors per payee.
type MockCleaner struct {
	responses  map[string]llm.CleanupResponse
	errors     map[string]error
	healthErr  error
	calls      []MockCleanerCall
	mu         sync.Mutex
	suppressDr bool
}

// MockCleanerCall records details of a cleanup request made to the mock.
type MockCleanerCall struct {
	Original string
	Context  map[string]string
}

// NewMockCleaner creates a new mock payee cleaner.
func NewMockCleaner() *MockCleaner {
	return &MockCleaner{
		responses: make(map[string]llm.CleanupResponse),
		errors:    make(map[string]error),
		calls:     make([]MockCleanerCall, 0),
	}
}

// SetResponse scripts a canned response for a specific raw payee.
func (m *MockCleaner) SetResponse(original string, resp llm.CleanupResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[original] = resp
}

// SetError makes CleanupPayee fail for a specific raw payee.
func (m *MockCleaner) SetError(original string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[original] = err
}

// SetHealthError makes HealthCheck return the given error.
func (m *MockCleaner) SetHealthError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
}

// SuppressDrafts makes the default cleanup path return a cleaned string
// without a rule suggestion.
func (m *MockCleaner) SuppressDrafts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressDr = true
}

// Calls returns a copy of every cleanup request the mock has received.
func (m *MockCleaner) Calls() []MockCleanerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockCleanerCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CleanupPayee returns the scripted response for the payee if one exists,
// otherwise a deterministic default: leading transaction codes stripped and
// the remainder title-cased, with a contains-pattern rule suggestion.
func (m *MockCleaner) CleanupPayee(_ context.Context, original string, txnContext map[string]string) (llm.CleanupResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCleanerCall{Original: original, Context: txnContext})

	if err, ok := m.errors[original]; ok {
		return llm.CleanupResponse{}, err
	}
	if resp, ok := m.responses[original]; ok {
		return resp, nil
	}

	cleaned := defaultCleanup(original)
	resp := llm.CleanupResponse{Cleaned: cleaned}
	if !m.suppressDr {
		resp.Draft = &model.RuleDraft{
			Pattern:     original,
			PatternType: model.PatternContains,
			Replacement: cleaned,
			Confidence:  0.8,
		}
	}
	return resp, nil
}

// HealthCheck returns the configured health error, if any.
func (m *MockCleaner) HealthCheck(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthErr
}

// defaultCleanup strips common transaction prefixes and trailing reference
// digits, then title-cases what remains.
func defaultCleanup(original string) string {
	s := original
	for _, prefix := range []string{"POS ", "SQ *", "TST* ", "PAYPAL *"} {
		s = strings.TrimPrefix(s, prefix)
	}
	fields := strings.Fields(s)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		kept = fields
	}
	for i, f := range kept {
		lower := strings.ToLower(f)
		kept[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(kept, " ")
}

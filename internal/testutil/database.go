// Package testutil provides test utilities for the payeeclean project.
// It offers in-memory database setup with proper test isolation and
// builders for seeding rule catalogs.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/rosewood-labs/payeeclean/internal/service"
	"github.com/rosewood-labs/payeeclean/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Store service.RuleStore
	t     *testing.T
}

// SetupTestDB creates a new in-memory test database, runs migrations, and
// registers cleanup. Optional rules are seeded into the catalog.
func SetupTestDB(t *testing.T, rules ...model.CleanupRule) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range rules {
		rule := rules[i]
		if err := store.CreateRule(ctx, &rule); err != nil {
			t.Fatalf("failed to seed rule %q: %v", rule.Pattern, err)
		}
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return &TestDB{Store: store, t: t}
}

// RuleOption customizes a rule built by NewRule.
type RuleOption func(*model.CleanupRule)

// NewRule builds a valid approved exact-match rule for tests, with options
// to override any field.
func NewRule(pattern, replacement string, opts ...RuleOption) model.CleanupRule {
	rule := model.CleanupRule{
		ID:          uuid.NewString(),
		Pattern:     pattern,
		PatternType: model.PatternExact,
		Replacement: replacement,
		Confidence:  0.9,
		GeneratedBy: model.SourceHuman,
		Status:      model.StatusApproved,
		SuccessRate: 1.0,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// WithPatternType overrides the rule's pattern type.
func WithPatternType(pt model.PatternType) RuleOption {
	return func(r *model.CleanupRule) { r.PatternType = pt }
}

// WithStatus overrides the rule's lifecycle status.
func WithStatus(status model.RuleStatus) RuleOption {
	return func(r *model.CleanupRule) { r.Status = status }
}

// WithConfidence overrides the rule's confidence score.
func WithConfidence(c float64) RuleOption {
	return func(r *model.CleanupRule) { r.Confidence = c }
}

// WithSource overrides who generated the rule.
func WithSource(src model.RuleSource) RuleOption {
	return func(r *model.CleanupRule) { r.GeneratedBy = src }
}

// WithID overrides the rule's identifier.
func WithID(id string) RuleOption {
	return func(r *model.CleanupRule) { r.ID = id }
}

// Package service defines the interfaces shared between the engine and its
// collaborators, following the consumer-defined interface pattern.
package service

import (
	"context"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/model"
)

// RuleStore is the durable catalog of cleanup rules and their application
// history. Implementations must make each operation atomic per rule: status
// transitions use compare-and-swap semantics and counter updates are
// indivisible read-modify-writes.
type RuleStore interface {
	// CreateRule persists a new rule. The rule's ID must be unique.
	CreateRule(ctx context.Context, rule *model.CleanupRule) error

	// GetRule retrieves a rule by ID. Returns common.ErrNotFound if missing.
	GetRule(ctx context.Context, id string) (*model.CleanupRule, error)

	// GetRulesByStatus returns all rules with the given status, most recently
	// created first.
	GetRulesByStatus(ctx context.Context, status model.RuleStatus) ([]model.CleanupRule, error)

	// TransitionRuleStatus atomically moves a rule from one status to another,
	// applying optional field modifications in the same update. Returns
	// common.ErrNotFound if the rule does not exist and common.ErrInvalidState
	// if its current status is not `from`.
	TransitionRuleStatus(ctx context.Context, id string, from, to model.RuleStatus, mods *RuleModifications) (*model.CleanupRule, error)

	// IncrementRuleUseCount bumps a rule's use count by one.
	IncrementRuleUseCount(ctx context.Context, id string) error

	// ApplyRuleFeedback folds a success/failure signal into the rule's rolling
	// success rate and increments its use count, atomically. Returns the
	// updated rule.
	ApplyRuleFeedback(ctx context.Context, id string, wasSuccessful bool) (*model.CleanupRule, error)

	// RecordApplication appends an audit record of a cleanup. Returns
	// common.ErrDuplicateEntry when an application for the same
	// (transaction, rule) pair already exists.
	RecordApplication(ctx context.Context, app *model.RuleApplication) error

	// GetApplicationsForRule returns the audit history for a rule, most recent
	// first. A limit of 0 means no limit.
	GetApplicationsForRule(ctx context.Context, ruleID string, limit int) ([]model.RuleApplication, error)

	// ResolveLatestApplication marks the most recent unresolved application
	// for a rule with the given feedback status. It is a no-op when no
	// unresolved application exists.
	ResolveLatestApplication(ctx context.Context, ruleID string, status model.FeedbackStatus) error

	// Migrate applies any pending schema migrations.
	Migrate(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}

// RuleModifications carries optional field overrides applied during a status
// transition. Nil fields are left unchanged.
type RuleModifications struct {
	Pattern     *string
	PatternType *model.PatternType
	Replacement *string
	Notes       *string
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

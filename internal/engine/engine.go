// Package engine implements the payee cleanup orchestrator: rule-based
// cleanup first, LLM fallback second, with every application recorded for
// audit and every LLM-suggested rule gated behind human approval.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rosewood-labs/payeeclean/internal/common"
	"github.com/rosewood-labs/payeeclean/internal/matcher"
	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/rosewood-labs/payeeclean/internal/service"
)

// TransactionIDKey is the txnContext key carrying the caller's correlation
// key for audit records.
const TransactionIDKey = "transaction_id"

// defaultGeneratedConfidence is used when the LLM fallback produces a cleaned
// string without scoring its own rule suggestion.
const defaultGeneratedConfidence = 0.5

// CleanupEngine orchestrates payee cleanup over the rule catalog and the LLM
// fallback client.
type CleanupEngine struct {
	store   service.RuleStore
	cleaner PayeeCleaner
	logger  *slog.Logger
}

// New creates a new cleanup engine with the given dependencies.
func New(store service.RuleStore, cleaner PayeeCleaner, logger *slog.Logger) *CleanupEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupEngine{
		store:   store,
		cleaner: cleaner,
		logger:  logger,
	}
}

// CleanupPayee normalizes a raw payee string. Approved rules are tried first;
// on a miss the LLM fallback is consulted and any suggested rule is persisted
// as Pending, awaiting human review before it can match.
//
// Exactly one of AppliedRule and GeneratedRule is set on the result. When the
// LLM returns no reusable suggestion, the engine derives an exact-match
// candidate from the cleaned value so the catalog can still learn from the
// call.
func (e *CleanupEngine) CleanupPayee(ctx context.Context, original string, txnContext map[string]string) (*model.CleanupResult, error) {
	if strings.TrimSpace(original) == "" {
		return nil, fmt.Errorf("%w: original payee cannot be empty", common.ErrValidation)
	}

	approved, err := e.store.GetRulesByStatus(ctx, model.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved rules: %w", err)
	}

	m := matcher.New(approved)
	if winner := m.Best(original); winner != nil {
		return e.applyRule(ctx, m, winner, original, txnContext)
	}

	return e.fallbackCleanup(ctx, original, txnContext)
}

// applyRule builds the cleaned string from the winning rule and records the
// application.
func (e *CleanupEngine) applyRule(ctx context.Context, m *matcher.Matcher, rule *model.CleanupRule, original string, txnContext map[string]string) (*model.CleanupResult, error) {
	cleaned := m.Rewrite(*rule, original)

	recorded, err := e.recordApplication(ctx, &rule.ID, original, cleaned, txnContext)
	if err != nil {
		return nil, err
	}

	// A re-run over the same transaction must not inflate usage numbers.
	if recorded {
		if err := e.store.IncrementRuleUseCount(ctx, rule.ID); err != nil {
			return nil, fmt.Errorf("failed to increment rule use count: %w", err)
		}
		rule.UseCount++
	}

	e.logger.Info("payee cleaned by rule",
		"rule_id", rule.ID,
		"pattern_type", rule.PatternType,
		"original", original,
		"cleaned", cleaned)

	return &model.CleanupResult{
		Original:    original,
		Cleaned:     cleaned,
		Confidence:  rule.Confidence,
		AppliedRule: rule,
	}, nil
}

// fallbackCleanup consults the LLM client and persists its rule suggestion as
// a Pending candidate. A persistence failure fails the whole call: returning
// a cleaned string paired with a rule that was never saved would silently
// lose the learning.
func (e *CleanupEngine) fallbackCleanup(ctx context.Context, original string, txnContext map[string]string) (*model.CleanupResult, error) {
	resp, err := e.cleaner.CleanupPayee(ctx, original, txnContext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCleanupFailed, err)
	}

	draft := resp.Draft
	if draft == nil {
		// Derive an exact-match candidate so the catalog still learns.
		draft = &model.RuleDraft{
			Pattern:     original,
			PatternType: model.PatternExact,
			Replacement: resp.Cleaned,
			Confidence:  defaultGeneratedConfidence,
		}
	}

	generated := &model.CleanupRule{
		ID:          uuid.NewString(),
		Pattern:     draft.Pattern,
		PatternType: draft.PatternType,
		Replacement: draft.Replacement,
		Confidence:  draft.Confidence,
		GeneratedBy: model.SourceLLM,
		Status:      model.StatusPending,
		SuccessRate: 1.0,
	}

	if err := e.store.CreateRule(ctx, generated); err != nil {
		return nil, fmt.Errorf("failed to persist generated rule: %w", err)
	}

	if _, err := e.recordApplication(ctx, nil, original, resp.Cleaned, txnContext); err != nil {
		return nil, err
	}

	e.logger.Info("payee cleaned by LLM fallback",
		"original", original,
		"cleaned", resp.Cleaned,
		"generated_rule_id", generated.ID,
		"confidence", generated.Confidence)

	return &model.CleanupResult{
		Original:      original,
		Cleaned:       resp.Cleaned,
		Confidence:    generated.Confidence,
		GeneratedRule: generated,
	}, nil
}

// recordApplication appends the audit record for a cleanup. A duplicate
// application for the same (transaction, rule) pair is treated as already
// recorded rather than a failure; the returned bool reports whether a new
// record was written.
func (e *CleanupEngine) recordApplication(ctx context.Context, ruleID *string, original, cleaned string, txnContext map[string]string) (bool, error) {
	app := &model.RuleApplication{
		ID:            uuid.NewString(),
		RuleID:        ruleID,
		TransactionID: txnContext[TransactionIDKey],
		OriginalPayee: original,
		CleanedPayee:  cleaned,
	}

	err := e.store.RecordApplication(ctx, app)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			e.logger.Debug("application already recorded for transaction",
				"transaction_id", app.TransactionID)
			return false, nil
		}
		return false, fmt.Errorf("failed to record application: %w", err)
	}

	return true, nil
}

// CreateRule creates a human-authored rule. Human rules are trusted: they are
// Approved immediately with full confidence.
func (e *CleanupEngine) CreateRule(ctx context.Context, pattern string, patternType model.PatternType, replacement string) (*model.CleanupRule, error) {
	rule := &model.CleanupRule{
		ID:          uuid.NewString(),
		Pattern:     pattern,
		PatternType: patternType,
		Replacement: replacement,
		Confidence:  1.0,
		GeneratedBy: model.SourceHuman,
		Status:      model.StatusApproved,
		SuccessRate: 1.0,
	}

	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	if err := e.store.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	e.logger.Info("rule created",
		"rule_id", rule.ID,
		"pattern", rule.Pattern,
		"pattern_type", rule.PatternType)

	return rule, nil
}

// ApproveRule moves a Pending rule to Approved, optionally overriding its
// pattern, pattern type or replacement in the same transition. The rule is
// eligible for matching as soon as this call returns.
func (e *CleanupEngine) ApproveRule(ctx context.Context, id string, mods *service.RuleModifications) (*model.CleanupRule, error) {
	if err := e.validateModifications(ctx, id, mods); err != nil {
		return nil, err
	}

	rule, err := e.store.TransitionRuleStatus(ctx, id, model.StatusPending, model.StatusApproved, mods)
	if err != nil {
		return nil, err
	}

	e.logger.Info("rule approved",
		"rule_id", rule.ID,
		"pattern", rule.Pattern,
		"pattern_type", rule.PatternType)

	return rule, nil
}

// RejectRule moves a Pending rule to Rejected. The rule is retained for
// audit and analytics; the reason is stored as a note and never affects
// matching.
func (e *CleanupEngine) RejectRule(ctx context.Context, id string, reason string) (*model.CleanupRule, error) {
	var mods *service.RuleModifications
	if reason != "" {
		mods = &service.RuleModifications{Notes: &reason}
	}

	rule, err := e.store.TransitionRuleStatus(ctx, id, model.StatusPending, model.StatusRejected, mods)
	if err != nil {
		return nil, err
	}

	e.logger.Info("rule rejected",
		"rule_id", rule.ID,
		"reason", reason)

	return rule, nil
}

// validateModifications ensures that approving with overrides cannot put an
// invalid rule into the catalog. Validation runs against the merged view of
// the stored rule and the overrides; the status compare-and-swap in the store
// guarantees at most one transition wins if approvals race.
func (e *CleanupEngine) validateModifications(ctx context.Context, id string, mods *service.RuleModifications) error {
	if mods == nil {
		return nil
	}

	current, err := e.store.GetRule(ctx, id)
	if err != nil {
		return err
	}

	merged := *current
	if mods.Pattern != nil {
		merged.Pattern = *mods.Pattern
	}
	if mods.PatternType != nil {
		merged.PatternType = *mods.PatternType
	}
	if mods.Replacement != nil {
		merged.Replacement = *mods.Replacement
	}
	merged.Status = model.StatusApproved

	if err := merged.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	return nil
}

// ProvideFeedback folds a human confirmation or correction into the rule's
// rolling success rate and resolves the most recent unresolved application.
func (e *CleanupEngine) ProvideFeedback(ctx context.Context, ruleID string, wasSuccessful bool) (*model.CleanupRule, error) {
	rule, err := e.store.ApplyRuleFeedback(ctx, ruleID, wasSuccessful)
	if err != nil {
		return nil, err
	}

	status := model.FeedbackIncorrect
	if wasSuccessful {
		status = model.FeedbackCorrect
	}
	if err := e.store.ResolveLatestApplication(ctx, ruleID, status); err != nil {
		return nil, err
	}

	e.logger.Info("feedback recorded",
		"rule_id", ruleID,
		"was_successful", wasSuccessful,
		"success_rate", rule.SuccessRate,
		"use_count", rule.UseCount)

	return rule, nil
}

// GetPendingRules returns LLM-generated candidates awaiting review, most
// recent first.
func (e *CleanupEngine) GetPendingRules(ctx context.Context) ([]model.CleanupRule, error) {
	return e.store.GetRulesByStatus(ctx, model.StatusPending)
}

// GetApprovedRules returns rules eligible for matching, most recent first.
func (e *CleanupEngine) GetApprovedRules(ctx context.Context) ([]model.CleanupRule, error) {
	return e.store.GetRulesByStatus(ctx, model.StatusApproved)
}

// FindMatchingRules returns every approved rule matching the payee name in
// ranked order, for diagnostic and analytics use. The first entry is the
// rule CleanupPayee would apply.
func (e *CleanupEngine) FindMatchingRules(ctx context.Context, payeeName string) ([]model.CleanupRule, error) {
	if strings.TrimSpace(payeeName) == "" {
		return nil, fmt.Errorf("%w: payee name cannot be empty", common.ErrValidation)
	}

	approved, err := e.store.GetRulesByStatus(ctx, model.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved rules: %w", err)
	}

	return matcher.New(approved).Match(payeeName), nil
}

// HealthCheck verifies the LLM fallback client is reachable.
func (e *CleanupEngine) HealthCheck(ctx context.Context) error {
	return e.cleaner.HealthCheck(ctx)
}

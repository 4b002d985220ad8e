// Package model defines the core data structures for the payeeclean application.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PatternType describes how a rule's pattern is evaluated against a payee name.
type PatternType string

// Pattern type constants.
const (
	PatternExact      PatternType = "exact"
	PatternStartsWith PatternType = "starts_with"
	PatternContains   PatternType = "contains"
	PatternRegex      PatternType = "regex"
)

// Valid reports whether the pattern type is one of the known kinds.
func (p PatternType) Valid() bool {
	switch p {
	case PatternExact, PatternStartsWith, PatternContains, PatternRegex:
		return true
	}
	return false
}

// Specificity returns the ordering used to break ties between matching rules.
// Exact > StartsWith > Contains > Regex.
func (p PatternType) Specificity() int {
	switch p {
	case PatternExact:
		return 3
	case PatternStartsWith:
		return 2
	case PatternContains:
		return 1
	case PatternRegex:
		return 0
	}
	return -1
}

// ParsePatternType normalizes a user- or LLM-supplied pattern type string.
func ParsePatternType(s string) (PatternType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return PatternExact, nil
	case "starts_with", "startswith", "prefix":
		return PatternStartsWith, nil
	case "contains", "substring":
		return PatternContains, nil
	case "regex", "regexp":
		return PatternRegex, nil
	}
	return "", fmt.Errorf("unknown pattern type: %q", s)
}

// RuleStatus is the human-review lifecycle state of a cleanup rule.
type RuleStatus string

// Rule status constants. Only Approved rules participate in matching.
const (
	StatusPending  RuleStatus = "pending"
	StatusApproved RuleStatus = "approved"
	StatusRejected RuleStatus = "rejected"
)

// Valid reports whether the status is a known lifecycle state.
func (s RuleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// RuleSource records where a rule came from.
type RuleSource string

// Rule source constants.
const (
	SourceHuman RuleSource = "human"
	SourceLLM   RuleSource = "llm"
)

// CleanupRule maps a noisy payee pattern to a clean replacement name.
type CleanupRule struct {
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ID          string      `json:"id"`
	Pattern     string      `json:"pattern"`
	Replacement string      `json:"replacement"`
	Notes       string      `json:"notes,omitempty"`
	PatternType PatternType `json:"pattern_type"`
	GeneratedBy RuleSource  `json:"generated_by"`
	Status      RuleStatus  `json:"status"`
	Confidence  float64     `json:"confidence"`
	SuccessRate float64     `json:"success_rate"`
	UseCount    int         `json:"use_count"`
}

// Validate ensures the rule has valid data.
func (r *CleanupRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if strings.TrimSpace(r.Replacement) == "" {
		return fmt.Errorf("replacement is required")
	}
	if !r.PatternType.Valid() {
		return fmt.Errorf("invalid pattern type: %q", r.PatternType)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if r.SuccessRate < 0 || r.SuccessRate > 1 {
		return fmt.Errorf("success rate must be between 0 and 1")
	}
	if r.UseCount < 0 {
		return fmt.Errorf("use count cannot be negative")
	}
	if r.PatternType == PatternRegex {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	}
	return nil
}

// RuleDraft is an unsaved rule candidate suggested by the LLM fallback.
// The engine is responsible for assigning an ID and persisting it as Pending.
type RuleDraft struct {
	Pattern     string      `json:"pattern"`
	Replacement string      `json:"replacement"`
	PatternType PatternType `json:"pattern_type"`
	Confidence  float64     `json:"confidence"`
}

// Validate ensures the draft is safe to persist as a rule.
func (d *RuleDraft) Validate() error {
	if strings.TrimSpace(d.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if strings.TrimSpace(d.Replacement) == "" {
		return fmt.Errorf("replacement is required")
	}
	if !d.PatternType.Valid() {
		return fmt.Errorf("invalid pattern type: %q", d.PatternType)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if d.PatternType == PatternRegex {
		if _, err := regexp.Compile(d.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	}
	return nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackStatus records the human verdict on a cleanup application.
type FeedbackStatus string

// Feedback status constants.
const (
	FeedbackCorrect   FeedbackStatus = "correct"
	FeedbackIncorrect FeedbackStatus = "incorrect"
)

// Valid reports whether the feedback status is a known value.
func (f FeedbackStatus) Valid() bool {
	return f == FeedbackCorrect || f == FeedbackIncorrect
}

// RuleApplication is an append-only audit record of a single cleanup.
// RuleID is nil when no rule matched and the LLM path was used directly.
type RuleApplication struct {
	AppliedAt      time.Time       `json:"applied_at"`
	FeedbackAt     *time.Time      `json:"feedback_at,omitempty"`
	RuleID         *string         `json:"rule_id,omitempty"`
	FeedbackStatus *FeedbackStatus `json:"feedback_status,omitempty"`
	ID             string          `json:"id"`
	TransactionID  string          `json:"transaction_id"`
	OriginalPayee  string          `json:"original_payee"`
	CleanedPayee   string          `json:"cleaned_payee"`
}

// Validate ensures the application record has valid data.
func (a *RuleApplication) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(a.OriginalPayee) == "" {
		return fmt.Errorf("original payee is required")
	}
	if strings.TrimSpace(a.CleanedPayee) == "" {
		return fmt.Errorf("cleaned payee is required")
	}
	if a.RuleID != nil && strings.TrimSpace(*a.RuleID) == "" {
		return fmt.Errorf("rule id cannot be empty when set")
	}
	if a.FeedbackStatus != nil && !a.FeedbackStatus.Valid() {
		return fmt.Errorf("invalid feedback status: %q", *a.FeedbackStatus)
	}
	return nil
}

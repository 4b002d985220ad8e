package model

import "fmt"

// CleanupResult is the transient outcome of a single cleanup invocation.
// Exactly one of AppliedRule and GeneratedRule is set: either an existing
// approved rule matched, or the LLM fallback produced a new Pending candidate.
type CleanupResult struct {
	AppliedRule   *CleanupRule `json:"applied_rule,omitempty"`
	GeneratedRule *CleanupRule `json:"generated_rule,omitempty"`
	Original      string       `json:"original"`
	Cleaned       string       `json:"cleaned"`
	Confidence    float64      `json:"confidence"`
}

// Validate enforces the applied/generated exclusivity invariant.
func (r *CleanupResult) Validate() error {
	if r.AppliedRule != nil && r.GeneratedRule != nil {
		return fmt.Errorf("applied and generated rules are mutually exclusive")
	}
	if r.AppliedRule == nil && r.GeneratedRule == nil {
		return fmt.Errorf("either an applied or a generated rule is required")
	}
	return nil
}

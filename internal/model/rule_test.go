package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() CleanupRule {
	return CleanupRule{
		ID:          "rule-1",
		Pattern:     "AMAZON",
		PatternType: PatternContains,
		Replacement: "Amazon",
		Confidence:  0.9,
		GeneratedBy: SourceHuman,
		Status:      StatusApproved,
		SuccessRate: 1.0,
	}
}

func TestCleanupRuleValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*CleanupRule)
		name    string
		wantErr string
	}{
		{name: "valid", mutate: func(_ *CleanupRule) {}},
		{name: "empty pattern", mutate: func(r *CleanupRule) { r.Pattern = "  " }, wantErr: "pattern is required"},
		{name: "empty replacement", mutate: func(r *CleanupRule) { r.Replacement = "" }, wantErr: "replacement is required"},
		{name: "unknown pattern type", mutate: func(r *CleanupRule) { r.PatternType = "fuzzy" }, wantErr: "invalid pattern type"},
		{name: "unknown status", mutate: func(r *CleanupRule) { r.Status = "archived" }, wantErr: "invalid status"},
		{name: "confidence too high", mutate: func(r *CleanupRule) { r.Confidence = 1.01 }, wantErr: "confidence"},
		{name: "confidence negative", mutate: func(r *CleanupRule) { r.Confidence = -0.1 }, wantErr: "confidence"},
		{name: "success rate out of range", mutate: func(r *CleanupRule) { r.SuccessRate = 2 }, wantErr: "success rate"},
		{name: "negative use count", mutate: func(r *CleanupRule) { r.UseCount = -1 }, wantErr: "use count"},
		{name: "malformed regex", mutate: func(r *CleanupRule) {
			r.PatternType = PatternRegex
			r.Pattern = "[unclosed"
		}, wantErr: "invalid regex"},
		{name: "valid regex", mutate: func(r *CleanupRule) {
			r.PatternType = PatternRegex
			r.Pattern = `AMZN\s+Mktp`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParsePatternType(t *testing.T) {
	tests := []struct {
		input   string
		want    PatternType
		wantErr bool
	}{
		{input: "exact", want: PatternExact},
		{input: "EXACT", want: PatternExact},
		{input: " starts_with ", want: PatternStartsWith},
		{input: "startswith", want: PatternStartsWith},
		{input: "prefix", want: PatternStartsWith},
		{input: "contains", want: PatternContains},
		{input: "substring", want: PatternContains},
		{input: "regex", want: PatternRegex},
		{input: "regexp", want: PatternRegex},
		{input: "fuzzy", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePatternType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatternTypeSpecificity(t *testing.T) {
	// Exact outranks StartsWith outranks Contains outranks Regex.
	assert.Greater(t, PatternExact.Specificity(), PatternStartsWith.Specificity())
	assert.Greater(t, PatternStartsWith.Specificity(), PatternContains.Specificity())
	assert.Greater(t, PatternContains.Specificity(), PatternRegex.Specificity())
	assert.Equal(t, -1, PatternType("fuzzy").Specificity())
}

func TestRuleDraftValidate(t *testing.T) {
	draft := RuleDraft{
		Pattern:     "ACME STORE",
		PatternType: PatternContains,
		Replacement: "Acme Store",
		Confidence:  0.8,
	}
	assert.NoError(t, draft.Validate())

	bad := draft
	bad.Confidence = 1.2
	assert.Error(t, bad.Validate())

	bad = draft
	bad.PatternType = PatternRegex
	bad.Pattern = "("
	assert.Error(t, bad.Validate())
}

package matcher

import (
	"testing"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedRule(id, pattern string, pt model.PatternType, replacement string, confidence float64, createdAt time.Time) model.CleanupRule {
	return model.CleanupRule{
		ID:          id,
		Pattern:     pattern,
		PatternType: pt,
		Replacement: replacement,
		Confidence:  confidence,
		Status:      model.StatusApproved,
		CreatedAt:   createdAt,
	}
}

func TestMatcher_Match(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payee   string
		rules   []model.CleanupRule
		wantIDs []string
	}{
		{
			name:  "exact match",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				approvedRule("r1", "AMAZON", model.PatternExact, "Amazon", 0.9, base),
			},
			wantIDs: []string{"r1"},
		},
		{
			name:  "exact match is case sensitive",
			payee: "amazon",
			rules: []model.CleanupRule{
				approvedRule("r1", "AMAZON", model.PatternExact, "Amazon", 0.9, base),
			},
			wantIDs: nil,
		},
		{
			name:  "contains match",
			payee: "AMAZON MKTPLC AMZN.CO.UK/PMTS",
			rules: []model.CleanupRule{
				approvedRule("r1", "AMAZON", model.PatternContains, "Amazon", 0.9, base),
			},
			wantIDs: []string{"r1"},
		},
		{
			name:  "starts_with match",
			payee: "STARBUCKS LONDON HIGH ST",
			rules: []model.CleanupRule{
				approvedRule("r1", "STARBUCKS", model.PatternStartsWith, "Starbucks", 0.9, base),
			},
			wantIDs: []string{"r1"},
		},
		{
			name:  "starts_with does not match mid-string",
			payee: "CARD PAYMENT STARBUCKS",
			rules: []model.CleanupRule{
				approvedRule("r1", "STARBUCKS", model.PatternStartsWith, "Starbucks", 0.9, base),
			},
			wantIDs: nil,
		},
		{
			name:  "regex match",
			payee: "TFL TRAVEL CH 19OCT",
			rules: []model.CleanupRule{
				approvedRule("r1", `^TFL\s+TRAVEL`, model.PatternRegex, "TfL", 0.9, base),
			},
			wantIDs: []string{"r1"},
		},
		{
			name:  "pending rule never matches",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				{
					ID:          "r1",
					Pattern:     "AMAZON",
					PatternType: model.PatternExact,
					Replacement: "Amazon",
					Confidence:  0.9,
					Status:      model.StatusPending,
					CreatedAt:   base,
				},
			},
			wantIDs: nil,
		},
		{
			name:  "rejected rule never matches",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				{
					ID:          "r1",
					Pattern:     "AMAZON",
					PatternType: model.PatternExact,
					Replacement: "Amazon",
					Confidence:  0.9,
					Status:      model.StatusRejected,
					CreatedAt:   base,
				},
			},
			wantIDs: nil,
		},
		{
			name:  "invalid regex is a non-match, not an error",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				approvedRule("bad", `AMAZ(ON`, model.PatternRegex, "Amazon", 0.9, base),
				approvedRule("good", "AMAZON", model.PatternContains, "Amazon", 0.8, base),
			},
			wantIDs: []string{"good"},
		},
		{
			name:  "higher confidence wins",
			payee: "AMAZON PRIME",
			rules: []model.CleanupRule{
				approvedRule("low", "AMAZON", model.PatternContains, "Amazon", 0.7, base),
				approvedRule("high", "AMAZON PRIME", model.PatternContains, "Amazon Prime", 0.95, base),
			},
			wantIDs: []string{"high", "low"},
		},
		{
			name:  "specificity breaks confidence ties",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				approvedRule("contains", "AMAZON", model.PatternContains, "Amazon", 0.9, base),
				approvedRule("exact", "AMAZON", model.PatternExact, "Amazon", 0.9, base),
				approvedRule("prefix", "AMAZON", model.PatternStartsWith, "Amazon", 0.9, base),
				approvedRule("regex", "AMAZON", model.PatternRegex, "Amazon", 0.9, base),
			},
			wantIDs: []string{"exact", "prefix", "contains", "regex"},
		},
		{
			name:  "oldest rule breaks full ties",
			payee: "AMAZON",
			rules: []model.CleanupRule{
				approvedRule("newer", "AMAZON", model.PatternContains, "Amazon", 0.9, base.Add(time.Hour)),
				approvedRule("older", "AMAZON", model.PatternContains, "Amazon", 0.9, base),
			},
			wantIDs: []string{"older", "newer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.rules)
			matches := m.Match(tt.payee)

			gotIDs := make([]string, 0, len(matches))
			for _, r := range matches {
				gotIDs = append(gotIDs, r.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, gotIDs)
			} else {
				assert.Equal(t, tt.wantIDs, gotIDs)
			}
		})
	}
}

func TestMatcher_MatchIsDeterministic(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.CleanupRule{
		approvedRule("a", "AMAZON", model.PatternContains, "Amazon", 0.9, base),
		approvedRule("b", "AMAZON", model.PatternExact, "Amazon", 0.9, base),
		approvedRule("c", "AMAZ", model.PatternStartsWith, "Amazon", 0.9, base),
	}

	m := New(rules)
	first := m.Best("AMAZON")
	require.NotNil(t, first)

	for i := 0; i < 50; i++ {
		winner := m.Best("AMAZON")
		require.NotNil(t, winner)
		assert.Equal(t, first.ID, winner.ID)
	}
}

func TestMatcher_Rewrite(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rule  model.CleanupRule
		payee string
		want  string
	}{
		{
			name:  "contains replaces whole string",
			rule:  approvedRule("r1", "AMAZON", model.PatternContains, "Amazon", 0.9, base),
			payee: "AMAZON MKTPLC AMZN.CO.UK/PMTS 15OCT A1B2CD3E4",
			want:  "Amazon",
		},
		{
			name:  "exact replaces whole string",
			rule:  approvedRule("r1", "NETFLIX.COM", model.PatternExact, "Netflix", 0.9, base),
			payee: "NETFLIX.COM",
			want:  "Netflix",
		},
		{
			name:  "starts_with replaces whole string",
			rule:  approvedRule("r1", "STARBUCKS", model.PatternStartsWith, "Starbucks Coffee", 0.9, base),
			payee: "STARBUCKS LONDON HIGH ST",
			want:  "Starbucks Coffee",
		},
		{
			name:  "regex replaces first match in place",
			rule:  approvedRule("r1", `TFL\s+TRAVEL\s+CH`, model.PatternRegex, "TfL", 0.9, base),
			payee: "TFL TRAVEL CH 19OCT",
			want:  "TfL 19OCT",
		},
		{
			name:  "regex with no match returns payee unchanged",
			rule:  approvedRule("r1", `^UBER`, model.PatternRegex, "Uber", 0.9, base),
			payee: "LYFT RIDE",
			want:  "LYFT RIDE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New([]model.CleanupRule{tt.rule})
			assert.Equal(t, tt.want, m.Rewrite(tt.rule, tt.payee))
		})
	}
}

func TestMatcher_InvalidPatterns(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.CleanupRule{
		approvedRule("bad", `AMAZ(ON`, model.PatternRegex, "Amazon", 0.9, base),
		approvedRule("good", `^AMAZON`, model.PatternRegex, "Amazon", 0.9, base),
	}

	m := New(rules)
	invalid := m.InvalidPatterns()

	require.Len(t, invalid, 1)
	assert.Contains(t, invalid, "bad")
	assert.Error(t, invalid["bad"])
}

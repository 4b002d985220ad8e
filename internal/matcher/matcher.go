// Package matcher evaluates payee names against approved cleanup rules and
// selects a deterministic winner when several rules match.
package matcher

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/rosewood-labs/payeeclean/internal/model"
)

// Matcher evaluates payee names against a fixed snapshot of rules.
type Matcher struct {
	compiledRegex   map[string]*regexp.Regexp
	invalidPatterns map[string]error
	rules           []model.CleanupRule
}

// New creates a matcher over the given rule snapshot. Regex patterns are
// pre-compiled; rules whose pattern fails to compile are flagged and treated
// as non-matches rather than surfacing an error at match time.
func New(rules []model.CleanupRule) *Matcher {
	m := &Matcher{
		rules:           rules,
		compiledRegex:   make(map[string]*regexp.Regexp),
		invalidPatterns: make(map[string]error),
	}

	for _, rule := range rules {
		if rule.PatternType != model.PatternRegex || rule.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			m.invalidPatterns[rule.ID] = err
			slog.Warn("Skipping rule with invalid regex pattern",
				"rule_id", rule.ID,
				"pattern", rule.Pattern,
				"error", err)
			continue
		}
		m.compiledRegex[rule.ID] = re
	}

	return m
}

// Match returns all approved rules whose pattern matches the payee name,
// ranked best-first: highest confidence, then most specific pattern type
// (Exact > StartsWith > Contains > Regex), then oldest rule.
func (m *Matcher) Match(payeeName string) []model.CleanupRule {
	var matches []model.CleanupRule

	for _, rule := range m.rules {
		if rule.Status != model.StatusApproved {
			continue
		}
		if m.matchesRule(rule, payeeName) {
			matches = append(matches, rule)
		}
	}

	rank(matches)

	return matches
}

// Best returns the winning rule for the payee name, or nil when no approved
// rule matches.
func (m *Matcher) Best(payeeName string) *model.CleanupRule {
	matches := m.Match(payeeName)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// Rewrite builds the cleaned payee string for a matching rule. Exact,
// StartsWith and Contains rules replace the whole payee name; Regex rules
// replace the first match in place, preserving surrounding text.
func (m *Matcher) Rewrite(rule model.CleanupRule, payeeName string) string {
	if rule.PatternType != model.PatternRegex {
		return rule.Replacement
	}

	re, ok := m.compiledRegex[rule.ID]
	if !ok {
		var err error
		re, err = regexp.Compile(rule.Pattern)
		if err != nil {
			return payeeName
		}
	}

	loc := re.FindStringIndex(payeeName)
	if loc == nil {
		return payeeName
	}
	return payeeName[:loc[0]] + rule.Replacement + payeeName[loc[1]:]
}

// InvalidPatterns returns compile errors for regex rules that were skipped,
// keyed by rule ID, for diagnostic use.
func (m *Matcher) InvalidPatterns() map[string]error {
	return m.invalidPatterns
}

// matchesRule checks if a payee name matches a specific rule. Matching is
// case-sensitive on the raw input.
func (m *Matcher) matchesRule(rule model.CleanupRule, payeeName string) bool {
	switch rule.PatternType {
	case model.PatternExact:
		return payeeName == rule.Pattern
	case model.PatternStartsWith:
		return strings.HasPrefix(payeeName, rule.Pattern)
	case model.PatternContains:
		return strings.Contains(payeeName, rule.Pattern)
	case model.PatternRegex:
		re, ok := m.compiledRegex[rule.ID]
		if !ok {
			return false
		}
		return re.MatchString(payeeName)
	}
	return false
}

// rank orders matching rules best-first with a deterministic tie-break:
// confidence descending, then pattern specificity, then earliest created_at.
func rank(rules []model.CleanupRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		si, sj := rules[i].PatternType.Specificity(), rules[j].PatternType.Specificity()
		if si != sj {
			return si > sj
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}

package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rosewood-labs/payeeclean/internal/model"
)

// cleanMarkdownWrapper strips markdown code fences that models sometimes wrap
// around JSON responses despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

// parseCleanupResponse extracts the cleaned payee and optional rule draft
// from the model's response text. An unusable rule suggestion is discarded
// rather than failing the cleanup: the cleaned string is still useful and a
// bad draft must never reach the rule catalog.
func parseCleanupResponse(content string) (CleanupResponse, error) {
	content = cleanMarkdownWrapper(content)

	var jsonResp struct {
		Cleaned string `json:"cleaned"`
		Rule    *struct {
			Pattern     string  `json:"pattern"`
			PatternType string  `json:"pattern_type"`
			Replacement string  `json:"replacement"`
			Confidence  float64 `json:"confidence"`
		} `json:"rule,omitempty"`
	}

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return CleanupResponse{}, newClientError(KindResponseParsing, "failed to parse JSON response: %v", err)
	}

	cleaned := strings.TrimSpace(jsonResp.Cleaned)
	if cleaned == "" {
		return CleanupResponse{}, newClientError(KindResponseParsing, "no cleaned payee in response")
	}

	resp := CleanupResponse{Cleaned: cleaned}

	if jsonResp.Rule != nil {
		draft, err := buildDraft(jsonResp.Rule.Pattern, jsonResp.Rule.PatternType,
			jsonResp.Rule.Replacement, jsonResp.Rule.Confidence)
		if err != nil {
			slog.Warn("Discarding unusable rule suggestion from LLM",
				"pattern", jsonResp.Rule.Pattern,
				"pattern_type", jsonResp.Rule.PatternType,
				"error", err)
		} else {
			resp.Draft = draft
		}
	}

	return resp, nil
}

// buildDraft validates a model-suggested rule into a RuleDraft. Confidence
// is clamped to [0,1]; everything else must be well-formed.
func buildDraft(pattern, patternType, replacement string, confidence float64) (*model.RuleDraft, error) {
	pt, err := model.ParsePatternType(patternType)
	if err != nil {
		return nil, err
	}

	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	draft := &model.RuleDraft{
		Pattern:     strings.TrimSpace(pattern),
		PatternType: pt,
		Replacement: strings.TrimSpace(replacement),
		Confidence:  confidence,
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	return draft, nil
}

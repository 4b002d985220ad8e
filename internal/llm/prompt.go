package llm

import (
	"fmt"
	"sort"
	"strings"
)

const cleanupSystemPrompt = "You are a financial transaction payee normalizer. " +
	"Respond only with JSON in the exact format requested."

// buildCleanupPrompt creates the prompt for payee cleanup. Context keys are
// sorted so the same input always produces the same prompt.
func buildCleanupPrompt(original string, txnContext map[string]string) string {
	var contextDetails strings.Builder
	keys := make([]string, 0, len(txnContext))
	for k := range txnContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&contextDetails, "%s: %s\n", k, txnContext[k])
	}

	prompt := fmt.Sprintf(`Clean up this raw bank transaction payee string into a short, human-readable merchant name.

Raw payee: %q
`, original)

	if contextDetails.Len() > 0 {
		prompt += fmt.Sprintf("\nTransaction context:\n%s", contextDetails.String())
	}

	prompt += `
Guidelines:
- Strip reference numbers, dates, card suffixes and location noise
- Use the merchant's canonical name with normal capitalization (e.g. "AMZN MKTP" becomes "Amazon")
- Never invent a merchant that is not implied by the raw string

If a reusable pattern exists, also suggest a rule for matching future
occurrences of this merchant. Pattern types, most to least specific: "exact"
(full-string equality), "starts_with", "contains", "regex".

Respond with ONLY this JSON, no markdown fences:
{
  "cleaned": "<cleaned payee name>",
  "rule": {
    "pattern": "<pattern to match>",
    "pattern_type": "exact|starts_with|contains|regex",
    "replacement": "<cleaned payee name>",
    "confidence": <0.0-1.0>
  }
}

Omit the "rule" field entirely if no reusable pattern exists.`

	return prompt
}

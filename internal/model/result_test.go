package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanupResultValidate(t *testing.T) {
	rule := validRule()

	applied := CleanupResult{Original: "AMAZON 15OCT", Cleaned: "Amazon", AppliedRule: &rule}
	assert.NoError(t, applied.Validate())

	generated := CleanupResult{Original: "ACME 19OCT", Cleaned: "Acme", GeneratedRule: &rule}
	assert.NoError(t, generated.Validate())

	both := CleanupResult{AppliedRule: &rule, GeneratedRule: &rule}
	assert.Error(t, both.Validate())

	neither := CleanupResult{Original: "X", Cleaned: "x"}
	assert.Error(t, neither.Validate())
}

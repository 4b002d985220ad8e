// Package storage provides the data persistence layer for the payeeclean application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rosewood-labs/payeeclean/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRule  = errors.New("invalid rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates a cleanup rule before persistence.
func validateRule(rule *model.CleanupRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRule)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

// validateApplication validates an application record before persistence.
func validateApplication(app *model.RuleApplication) error {
	if app == nil {
		return fmt.Errorf("%w: application", ErrNilParameter)
	}
	if err := app.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

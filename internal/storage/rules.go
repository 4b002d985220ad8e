package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rosewood-labs/payeeclean/internal/common"
	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/rosewood-labs/payeeclean/internal/service"
)

const ruleColumns = `id, pattern, pattern_type, replacement, confidence,
	generated_by, status, use_count, success_rate, notes, created_at, updated_at`

// CreateRule persists a new cleanup rule.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.CleanupRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	query := `
		INSERT INTO payee_cleanup_rules (
			id, pattern, pattern_type, replacement, confidence,
			generated_by, status, use_count, success_rate, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.Pattern, string(rule.PatternType), rule.Replacement,
		rule.Confidence, string(rule.GeneratedBy), string(rule.Status),
		rule.UseCount, rule.SuccessRate, rule.Notes,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: rule %s", common.ErrDuplicateEntry, rule.ID)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	// The database assigns the timestamps; read them back so the returned
	// rule matches what later queries will report.
	row := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM payee_cleanup_rules WHERE id = ?`, rule.ID)
	if err := row.Scan(&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("failed to read back rule timestamps: %w", err)
	}

	return nil
}

// GetRule retrieves a cleanup rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.CleanupRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM payee_cleanup_rules WHERE id = ?`
	return s.scanRule(s.db.QueryRowContext(ctx, query, id))
}

// GetRulesByStatus retrieves all rules with the given status, most recently
// created first.
func (s *SQLiteStorage) GetRulesByStatus(ctx context.Context, status model.RuleStatus) ([]model.CleanupRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", common.ErrValidation, status)
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM payee_cleanup_rules
		WHERE status = ?
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get rules by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CleanupRule
	for rows.Next() {
		rule, scanErr := scanRuleRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// TransitionRuleStatus atomically moves a rule between lifecycle states using
// a compare-and-swap on the current status. Optional field modifications are
// applied in the same statement so a concurrent transition cannot interleave.
func (s *SQLiteStorage) TransitionRuleStatus(ctx context.Context, id string, from, to model.RuleStatus, mods *service.RuleModifications) (*model.CleanupRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: invalid status transition %q -> %q", common.ErrValidation, from, to)
	}

	var pattern, patternType, replacement, notes any
	if mods != nil {
		if mods.Pattern != nil {
			pattern = *mods.Pattern
		}
		if mods.PatternType != nil {
			patternType = string(*mods.PatternType)
		}
		if mods.Replacement != nil {
			replacement = *mods.Replacement
		}
		if mods.Notes != nil {
			notes = *mods.Notes
		}
	}

	var updated *model.CleanupRule
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE payee_cleanup_rules SET
				status = ?,
				pattern = COALESCE(?, pattern),
				pattern_type = COALESCE(?, pattern_type),
				replacement = COALESCE(?, replacement),
				notes = COALESCE(?, notes)
			WHERE id = ? AND status = ?
		`
		result, err := tx.ExecContext(ctx, query,
			string(to), pattern, patternType, replacement, notes, id, string(from))
		if err != nil {
			return fmt.Errorf("failed to transition rule status: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			// Distinguish a missing rule from one in the wrong state.
			var current string
			err := tx.QueryRowContext(ctx,
				"SELECT status FROM payee_cleanup_rules WHERE id = ?", id).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
			}
			if err != nil {
				return fmt.Errorf("failed to check rule status: %w", err)
			}
			return fmt.Errorf("%w: rule %s is %s, expected %s", common.ErrInvalidState, id, current, from)
		}

		rule, err := s.scanRule(tx.QueryRowContext(ctx,
			`SELECT `+ruleColumns+` FROM payee_cleanup_rules WHERE id = ?`, id))
		if err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// IncrementRuleUseCount increments the use count for a rule.
func (s *SQLiteStorage) IncrementRuleUseCount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	query := `UPDATE payee_cleanup_rules SET use_count = use_count + 1 WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment rule use count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}

	return nil
}

// ApplyRuleFeedback folds a success or failure signal into the rule's rolling
// success rate and bumps its use count. The new rate is the count-weighted
// running average computed against the pre-increment use count:
//
//	new_rate = (success_rate * use_count + signal) / (use_count + 1)
//
// The whole read-modify-write happens in a single UPDATE so concurrent
// feedback on the same rule cannot interleave.
func (s *SQLiteStorage) ApplyRuleFeedback(ctx context.Context, id string, wasSuccessful bool) (*model.CleanupRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	signal := 0.0
	if wasSuccessful {
		signal = 1.0
	}

	var updated *model.CleanupRule
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE payee_cleanup_rules SET
				success_rate = MIN(1.0, MAX(0.0,
					(success_rate * use_count + ?) / (use_count + 1))),
				use_count = use_count + 1
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query, signal, id)
		if err != nil {
			return fmt.Errorf("failed to apply rule feedback: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
		}

		rule, err := s.scanRule(tx.QueryRowContext(ctx,
			`SELECT `+ruleColumns+` FROM payee_cleanup_rules WHERE id = ?`, id))
		if err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ruleScanner abstracts *sql.Row and *sql.Rows for rule scanning.
type ruleScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStorage) scanRule(row ruleScanner) (*model.CleanupRule, error) {
	rule, err := scanRuleRow(row)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func scanRuleRow(row ruleScanner) (*model.CleanupRule, error) {
	var rule model.CleanupRule
	var patternType, generatedBy, status string
	err := row.Scan(
		&rule.ID, &rule.Pattern, &patternType, &rule.Replacement, &rule.Confidence,
		&generatedBy, &status, &rule.UseCount, &rule.SuccessRate, &rule.Notes,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rule", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.PatternType = model.PatternType(patternType)
	rule.GeneratedBy = model.RuleSource(generatedBy)
	rule.Status = model.RuleStatus(status)

	return &rule, nil
}

// isUniqueConstraintErr reports whether the error is a SQLite unique
// constraint violation.
func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

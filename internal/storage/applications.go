package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rosewood-labs/payeeclean/internal/common"
	"github.com/rosewood-labs/payeeclean/internal/model"
)

// RecordApplication appends an audit record of a single cleanup.
func (s *SQLiteStorage) RecordApplication(ctx context.Context, app *model.RuleApplication) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateApplication(app); err != nil {
		return err
	}

	query := `
		INSERT INTO payee_rule_applications (
			id, rule_id, transaction_id, original_payee, cleaned_payee,
			feedback_status, feedback_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var feedbackStatus any
	if app.FeedbackStatus != nil {
		feedbackStatus = string(*app.FeedbackStatus)
	}
	var transactionID any
	if app.TransactionID != "" {
		transactionID = app.TransactionID
	}

	_, err := s.db.ExecContext(ctx, query,
		app.ID, app.RuleID, transactionID, app.OriginalPayee, app.CleanedPayee,
		feedbackStatus, app.FeedbackAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: application for transaction %s", common.ErrDuplicateEntry, app.TransactionID)
		}
		return fmt.Errorf("failed to record application: %w", err)
	}

	app.AppliedAt = time.Now()

	return nil
}

// GetApplicationsForRule returns the audit history for a rule, most recent
// first. A limit of 0 means no limit.
func (s *SQLiteStorage) GetApplicationsForRule(ctx context.Context, ruleID string, limit int) ([]model.RuleApplication, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, rule_id, transaction_id, original_payee, cleaned_payee,
			applied_at, feedback_status, feedback_at
		FROM payee_rule_applications
		WHERE rule_id = ?
		ORDER BY applied_at DESC, id ASC
	`
	args := []any{ruleID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var apps []model.RuleApplication
	for rows.Next() {
		app, scanErr := scanApplication(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

// ResolveLatestApplication marks the most recent unresolved application for a
// rule with the given feedback status. No-op when nothing is unresolved.
func (s *SQLiteStorage) ResolveLatestApplication(ctx context.Context, ruleID string, status model.FeedbackStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: invalid feedback status %q", common.ErrValidation, status)
	}

	query := `
		UPDATE payee_rule_applications SET
			feedback_status = ?,
			feedback_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM payee_rule_applications
			WHERE rule_id = ? AND feedback_status IS NULL
			ORDER BY applied_at DESC, id DESC
			LIMIT 1
		)
	`
	if _, err := s.db.ExecContext(ctx, query, string(status), ruleID); err != nil {
		return fmt.Errorf("failed to resolve application feedback: %w", err)
	}

	return nil
}

func scanApplication(row ruleScanner) (*model.RuleApplication, error) {
	var app model.RuleApplication
	var ruleID, transactionID, feedbackStatus sql.NullString
	var feedbackAt sql.NullTime
	err := row.Scan(
		&app.ID, &ruleID, &transactionID, &app.OriginalPayee, &app.CleanedPayee,
		&app.AppliedAt, &feedbackStatus, &feedbackAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: application", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}

	if ruleID.Valid {
		app.RuleID = &ruleID.String
	}
	if transactionID.Valid {
		app.TransactionID = transactionID.String
	}
	if feedbackStatus.Valid {
		status := model.FeedbackStatus(feedbackStatus.String)
		app.FeedbackStatus = &status
	}
	if feedbackAt.Valid {
		app.FeedbackAt = &feedbackAt.Time
	}

	return &app, nil
}

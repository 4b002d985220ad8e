package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial payee cleanup schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS payee_cleanup_rules (
					id TEXT PRIMARY KEY,
					pattern TEXT NOT NULL,
					pattern_type TEXT NOT NULL,
					replacement TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 1.0,
					generated_by TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					use_count INTEGER NOT NULL DEFAULT 0,
					success_rate REAL NOT NULL DEFAULT 1.0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_payee_cleanup_rules_status ON payee_cleanup_rules(status)`,

				`CREATE TABLE IF NOT EXISTS payee_rule_applications (
					id TEXT PRIMARY KEY,
					rule_id TEXT,
					transaction_id TEXT,
					original_payee TEXT NOT NULL,
					cleaned_payee TEXT NOT NULL,
					applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					feedback_status TEXT,
					feedback_at DATETIME,
					FOREIGN KEY (rule_id) REFERENCES payee_cleanup_rules(id)
				)`,
				`CREATE INDEX idx_payee_rule_applications_rule ON payee_rule_applications(rule_id)`,
				`CREATE UNIQUE INDEX idx_payee_rule_applications_txn_rule
					ON payee_rule_applications(transaction_id, rule_id)
					WHERE transaction_id IS NOT NULL AND rule_id IS NOT NULL`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Keep rule updated_at current on modification",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TRIGGER update_payee_cleanup_rules_updated_at
				AFTER UPDATE ON payee_cleanup_rules
				FOR EACH ROW
				BEGIN
					UPDATE payee_cleanup_rules SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Add notes column for rejection reasons and operator annotations",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE payee_cleanup_rules ADD COLUMN notes TEXT NOT NULL DEFAULT ''`); err != nil {
				return fmt.Errorf("failed to add notes column: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

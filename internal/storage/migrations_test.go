package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	// Both tables exist.
	for _, table := range []string{"payee_cleanup_rules", "payee_rule_applications"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_UpdatedAtTrigger(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	var name string
	err = store.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'trigger' AND name = 'update_payee_cleanup_rules_updated_at'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "update_payee_cleanup_rules_updated_at", name)
}

func TestNewSQLiteStorage_InvalidPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

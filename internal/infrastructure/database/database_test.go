package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todolists/internal/infrastructure/config"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "nested", "todo.db"),
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	cfg := sqliteConfig(t)

	mg, err := NewMigrator(cfg)
	require.NoError(t, err)
	defer mg.Close()

	require.NoError(t, mg.Up())
	// running twice is a no-op
	require.NoError(t, mg.Up())

	version, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestWithTransactionRollsBack(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, MigrateUp(cfg))

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	boom := errors.New("boom")

	err = db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES ('alice', 'x')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Zero(t, count)

	err = db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES ('alice', 'x')`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, MigrateUp(cfg))

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.DB.Exec(`INSERT INTO todo_lists (title, user_id) VALUES ('orphan', 999)`)
	assert.Error(t, err)

	require.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, config.DriverSQLite, db.GetConnectionInfo()["driver"])
}

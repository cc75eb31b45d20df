package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "pyexpl.db")

	conn, err := Open(ctx, path)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	for _, table := range []string{"kv", "shares"} {
		var name string
		err := conn.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pyexpl.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = first.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES('editor_code', 'print(1)', 'now')`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close() //nolint:errcheck

	var value string
	require.NoError(t, second.QueryRowContext(ctx, `SELECT value FROM kv WHERE key='editor_code'`).Scan(&value))
	assert.Equal(t, "print(1)", value)
}

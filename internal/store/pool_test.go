package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestPool(t *testing.T) *Pool {
	t.Helper()
	dir := t.TempDir()
	p, err := Open(filepath.Join(dir, "store.sqlite3"), Options{MaxWorkers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestOpenAppliesMigrations(t *testing.T) {
	p := openTestPool(t)

	applied, err := p.appliedMigrations(context.Background())
	require.NoError(t, err)
	require.Contains(t, applied, "0001_init.sql")
	require.Contains(t, applied, "0002_metadata_generation.sql")
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.sqlite3")

	p1, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, p1.Close())

	p2, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, p2.Close())
}

func TestVerifyPrefixDetectsMismatch(t *testing.T) {
	err := verifyPrefix([]string{"0001_init.sql", "9999_unknown.sql"}, []string{"0001_init.sql", "0002_metadata_generation.sql"})
	require.Error(t, err)
}

func TestVerifyPrefixAcceptsSubset(t *testing.T) {
	err := verifyPrefix([]string{"0001_init.sql"}, []string{"0001_init.sql", "0002_metadata_generation.sql"})
	require.NoError(t, err)
}

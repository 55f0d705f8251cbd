package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/rolechat/internal/client/store"
	"github.com/aussiebroadwan/rolechat/internal/client/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var _ store.KV = (*sqlite.Store)(nil)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStore_GetSetRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := openStore(t, filepath.Join(t.TempDir(), "rolechat.db"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "accessToken", "at1"))
	require.NoError(t, s.Set(ctx, "accessToken", "at2"))

	value, ok, err := s.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "at2", value)

	// An empty value is still a value.
	require.NoError(t, s.Set(ctx, "user", ""))
	_, ok, err = s.Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Remove(ctx, "accessToken"))
	require.NoError(t, s.Remove(ctx, "accessToken"))
	_, ok, err = s.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rolechat.db")

	first := openStore(t, path)
	require.NoError(t, first.Set(ctx, "refreshToken", "rt1"))
	require.NoError(t, first.Close())

	// Migrations are idempotent on an existing database.
	second := openStore(t, path)
	t.Cleanup(func() { _ = second.Close() })

	value, ok, err := second.Get(ctx, "refreshToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rt1", value)
}

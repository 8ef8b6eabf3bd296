package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/envelope/internal/authstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	raw, key, err := authstore.NewKey("deploy", "admin", "viewer")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, key))

	got, err := s.Lookup(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, key.ID, got.ID)
	require.Equal(t, "deploy", got.Name)
	require.Equal(t, []string{"admin", "viewer"}, got.Roles)

	_, err = s.Lookup(ctx, "env_unknown")
	require.ErrorIs(t, err, authstore.ErrNotFound)
}

func TestStore_DuplicateHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, key, err := authstore.NewKey("a")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, key))

	dup := *key
	dup.ID = "other"
	require.Error(t, s.Add(ctx, &dup))
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys.db")

	s, err := New(path)
	require.NoError(t, err)
	raw, key, err := authstore.NewKey("persisted")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, key))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Lookup(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Name)
}

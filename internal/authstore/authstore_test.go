package authstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	raw, key, err := NewKey("ci", "admin")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "env_"))
	require.Equal(t, HashKey(raw), key.Hash)
	require.NotContains(t, key.Hash, raw)
	require.Equal(t, []string{"admin"}, key.Roles)
	require.NotEmpty(t, key.ID)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	raw, key, err := NewKey("ci")
	require.NoError(t, err)

	m := NewMemory()
	require.NoError(t, m.Add(ctx, key))
	require.Error(t, m.Add(ctx, key))

	got, err := m.Lookup(ctx, raw)
	require.NoError(t, err)
	require.Same(t, key, got)

	_, err = m.Lookup(ctx, raw+"x")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, m.Close())
}

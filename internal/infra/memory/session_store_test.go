package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "jti-1", "user-1", time.Hour))
	userID, ok, err := store.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user-1", userID)

	require.NoError(t, store.Revoke(ctx, "jti-1"))
	_, ok, err = store.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionStoreExpires(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "jti-1", "user-1", time.Minute))
	now = now.Add(time.Minute + time.Second)

	_, ok, err := store.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, store.Len())
}

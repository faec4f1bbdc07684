package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, d.Revoke(ctx, "stale", now.Add(-time.Second)))

	revoked, err := d.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = d.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 1, d.Len())

	now = now.Add(2 * time.Hour)
	revoked, err = d.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Zero(t, d.Len())
}

func TestMemoryDenylistPurgesOnRevoke(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Minute)))
	now = now.Add(time.Hour)
	require.NoError(t, d.Revoke(ctx, "b", now.Add(time.Minute)))

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, map[string]interface{}{"backend": "memory", "revoked": 1}, d.GetConnectionInfo())
}

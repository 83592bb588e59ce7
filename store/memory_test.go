package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	require.NoError(t, m.WriteDigest(ctx, "sess-1", "USER: hi ANSWER: hello"))

	text, found, err := m.ReadDigest(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "USER: hi ANSWER: hello", text)
}

func TestMemoryMiss(t *testing.T) {
	m := NewMemory(time.Hour)

	text, found, err := m.ReadDigest(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, text)
}

func TestMemoryLastWriterWins(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	require.NoError(t, m.WriteDigest(ctx, "sess-1", "first"))
	require.NoError(t, m.WriteDigest(ctx, "sess-1", "second"))

	text, _, err := m.ReadDigest(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	require.NoError(t, m.WriteDigest(ctx, "sess-1", "stale soon"))

	// Still alive just inside the TTL.
	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, found, err := m.ReadDigest(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, found)

	// Gone after the TTL, and the entry is dropped.
	m.now = func() time.Time { return base.Add(61 * time.Minute) }
	_, found, err = m.ReadDigest(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, m.Len())
}

func TestMemorySessionIsolation(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	require.NoError(t, m.WriteDigest(ctx, "sess-a", "alpha"))
	require.NoError(t, m.WriteDigest(ctx, "sess-b", "beta"))

	text, _, err := m.ReadDigest(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)
	assert.Equal(t, 2, m.Len())
}

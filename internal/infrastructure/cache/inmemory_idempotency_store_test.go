package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	processed, err := store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestMarkProcessedExpiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_short", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "evt_short")
	require.NoError(t, err)
	assert.False(t, processed)

	// An expired mark can be taken again.
	first, err := store.MarkProcessed(ctx, "evt_short", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestUnmark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Unmark(ctx, "evt_1"))

	first, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestCloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

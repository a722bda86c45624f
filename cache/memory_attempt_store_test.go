package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAttemptStore_IncrementAndGet(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	count, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	for want := int64(1); want <= 3; want++ {
		count, err = store.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	count, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestMemoryAttemptStore_Clear(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	_, err := store.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx, "k"))

	count, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestMemoryAttemptStore_Expiry(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	_, err := store.Increment(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		count, err := store.Get(ctx, "k")
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryAttemptStore_KeysAreIndependent(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	_, err := store.Increment(ctx, "a", time.Minute)
	require.NoError(t, err)

	count, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

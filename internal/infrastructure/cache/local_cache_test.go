package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v2/internal/ports/outbound"
)

func TestLocalCache_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "key1", []byte("value1"), time.Minute))

	data, err := lc.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), data)
}

func TestLocalCache_MissReturnsTypedError(t *testing.T) {
	lc := NewLocalCache(10)

	_, err := lc.Get(context.Background(), "absent")

	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestLocalCache_ExpiredEntryMisses(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "key1", []byte("value1"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := lc.Get(ctx, "key1")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	exists, err := lc.Exists(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalCache_SetOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "key1", []byte("old"), time.Minute))
	require.NoError(t, lc.Set(ctx, "key1", []byte("new"), time.Minute))

	data, err := lc.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
	assert.Equal(t, 1, lc.Size())
}

func TestLocalCache_LRUEvictionKeepsRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(2)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "b", []byte("2"), time.Minute))

	// Touch "a" so "b" becomes the eviction victim.
	_, err := lc.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, lc.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, lc.Size())
	_, err = lc.Get(ctx, "b")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss, "least recently used entry must be evicted")
	_, err = lc.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = lc.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestLocalCache_DeleteRemovesEntry(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, lc.Delete(ctx, "key1"))

	_, err := lc.Get(ctx, "key1")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	assert.NoError(t, lc.Delete(ctx, "key1"), "deleting an absent key is not an error")
}

func TestLocalCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "user:1:a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "user:1:b", []byte("2"), time.Minute))
	require.NoError(t, lc.Set(ctx, "user:2:a", []byte("3"), time.Minute))

	require.NoError(t, lc.DeletePattern(ctx, "user:1:*"))

	assert.Equal(t, 1, lc.Size())
	_, err := lc.Get(ctx, "user:2:a")
	assert.NoError(t, err, "other users' keys survive the pattern delete")
}

func TestLocalCache_DeletePatternStar(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, lc.DeletePattern(ctx, "*"))

	assert.Zero(t, lc.Size())
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		key     string
		pattern string
		want    bool
	}{
		{"anything", "*", true},
		{"user:1:a", "user:1:*", true},
		{"user:2:a", "user:1:*", false},
		{"exact", "exact", true},
		{"exact", "other", false},
		{"user:1", "user:1:*", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.key, tt.pattern), func(t *testing.T) {
			assert.Equal(t, tt.want, matchesPattern(tt.key, tt.pattern))
		})
	}
}

func TestLocalCache_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "fresh", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "stale1", []byte("2"), 5*time.Millisecond))
	require.NoError(t, lc.Set(ctx, "stale2", []byte("3"), 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	removed := lc.CleanupExpired()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, lc.Size())
}

func TestLocalCache_Clear(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "b", []byte("2"), time.Minute))

	lc.Clear()

	assert.Zero(t, lc.Size())
	require.NoError(t, lc.Set(ctx, "c", []byte("3"), time.Minute), "cache stays usable after clear")
	assert.Equal(t, 1, lc.Size())
}

func TestLocalCache_GetStats(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(4)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "b", []byte("2"), time.Minute))

	stats := lc.GetStats()

	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 4, stats.MaxSize)
	assert.InDelta(t, 0.5, stats.UtilizationRatio, 1e-9)
}

func TestLocalCache_ZeroMaxSizeUsesDefault(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(0)

	for i := 0; i < 100; i++ {
		require.NoError(t, lc.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Minute))
	}

	assert.Equal(t, 100, lc.Size(), "default capacity must hold a reasonable working set")
}

func TestLocalCache_AutoCleanupStops(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)
	require.NoError(t, lc.Set(ctx, "stale", []byte("1"), time.Millisecond))

	stop := lc.AutoCleanup(5 * time.Millisecond)

	assert.Eventually(t, func() bool { return lc.Size() == 0 }, time.Second, 5*time.Millisecond)
	close(stop)
}

func BenchmarkLocalCache_Get(b *testing.B) {
	ctx := context.Background()
	lc := NewLocalCache(1000)
	for i := 0; i < 1000; i++ {
		_ = lc.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), time.Minute)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = lc.Get(ctx, fmt.Sprintf("key-%d", i%1000))
	}
}

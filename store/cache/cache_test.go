package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheBasic(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})
	defer c.Close()

	c.Set(ctx, "a", 1)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	require.False(t, ok)
}

func TestCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})
	defer c.Close()

	c.SetWithTTL(ctx, "soon", "gone", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "soon")
	require.False(t, ok)
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 2})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	// Touch "a" so "b" becomes the eviction candidate.
	_, _ = c.Get(ctx, "a")
	c.Set(ctx, "c", 3)

	_, ok := c.Get(ctx, "b")
	require.False(t, ok)
	_, ok = c.Get(ctx, "a")
	require.True(t, ok)
	require.EqualValues(t, 2, c.Size())
}

func TestCacheInvalidateWildcard(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})
	defer c.Close()

	c.Set(ctx, "thread:1:messages", 1)
	c.Set(ctx, "thread:1:meta", 2)
	c.Set(ctx, "thread:2:meta", 3)

	removed := c.Invalidate(ctx, "thread:1:*")
	require.Equal(t, 2, removed)

	_, ok := c.Get(ctx, "thread:2:meta")
	require.True(t, ok)
}

func TestCacheOnEviction(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 1, OnEviction: func(key string, _ any) {
		evicted = append(evicted, key)
	}})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	require.Equal(t, []string{"a"}, evicted)
}

package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache returns a cache whose clock is driven by the returned func.
func newTestCache(t *testing.T) (*Cache, func(time.Duration)) {
	t.Helper()
	c := NewCache(Config{GCInterval: time.Hour})
	t.Cleanup(c.Close)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, func(d time.Duration) { now = now.Add(d) }
}

func TestSessionTokenRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:tok", "sess-1", time.Hour))
	v, err := c.Get(ctx, "session:tok")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", v)

	ok, err := c.Exists(ctx, "session:tok")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Del(ctx, "session:tok"))
	_, err = c.Get(ctx, "session:tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenExpires(t *testing.T) {
	c, advance := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:tok", "sess-1", time.Minute))
	advance(59 * time.Second)
	ok, _ := c.Exists(ctx, "session:tok")
	assert.True(t, ok)

	advance(2 * time.Second)
	ok, _ = c.Exists(ctx, "session:tok")
	assert.False(t, ok)
	_, err := c.Get(ctx, "session:tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetWithoutTTLNeverExpires(t *testing.T) {
	c, advance := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", 0))
	advance(24 * 365 * time.Hour)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestPushRecent_KeepsNewestFirst(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, msg := range []string{"welcome", "bought", "sold", "day 2"} {
		require.NoError(t, c.PushRecent(ctx, "notify_history:s", msg, 3, time.Hour))
	}
	items, err := c.Recent(ctx, "notify_history:s")
	require.NoError(t, err)
	assert.Equal(t, []string{"day 2", "sold", "bought"}, items)
}

func TestPushRecent_RefreshesTTL(t *testing.T) {
	c, advance := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PushRecent(ctx, "h", "a", 10, time.Minute))
	advance(50 * time.Second)
	require.NoError(t, c.PushRecent(ctx, "h", "b", 10, time.Minute))
	advance(50 * time.Second)

	items, _ := c.Recent(ctx, "h")
	assert.Equal(t, []string{"b", "a"}, items)

	advance(time.Minute)
	items, _ = c.Recent(ctx, "h")
	assert.Empty(t, items)
}

func TestRecent_ReturnsCopy(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.PushRecent(ctx, "h", "a", 0, 0))

	items, _ := c.Recent(ctx, "h")
	items[0] = "mutated"
	again, _ := c.Recent(ctx, "h")
	assert.Equal(t, []string{"a"}, again)
}

func TestListAndValueDoNotMix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.PushRecent(ctx, "k", "a", 5, 0))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	items, _ := c.Recent(ctx, "k")
	assert.Empty(t, items)
}

func TestSweep_DropsExpiredListsAndValues(t *testing.T) {
	c, advance := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "session:a", "1", time.Minute))
	require.NoError(t, c.PushRecent(ctx, "notify_history:a", "x", 5, time.Minute))
	require.NoError(t, c.Set(ctx, "keep", "1", 0))

	assert.Equal(t, 0, c.Sweep())
	advance(2 * time.Minute)
	assert.Equal(t, 2, c.Sweep())

	ok, _ := c.Exists(ctx, "keep")
	assert.True(t, ok)
}

func TestClose_Idempotent(t *testing.T) {
	c := NewCache(Config{})
	c.Close()
	c.Close()
}

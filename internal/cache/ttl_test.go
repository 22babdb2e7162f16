package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_GetPut(t *testing.T) {
	c := New[string](3, time.Minute, clockwork.NewFakeClock())

	c.Put("a", "alpha")
	c.Put("b", "bravo")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTL_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int](10, 5*time.Minute, clock)

	c.Put("k", 1)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should still be live just before ttl")

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire at ttl")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
}

func TestTTL_PutRefreshesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int](10, time.Minute, clock)

	c.Put("k", 1)
	clock.Advance(50 * time.Second)
	c.Put("k", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Hour, clockwork.NewFakeClock())

	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a") // a becomes most recent
	c.Put("c", 3)     // evicts b

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTL_NilValuesAreCached(t *testing.T) {
	c := New[*string](4, time.Minute, clockwork.NewFakeClock())

	c.Put("none", nil)

	v, ok := c.Get("none")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestTTL_Clear(t *testing.T) {
	c := New[int](4, time.Minute, clockwork.NewFakeClock())
	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("c", 3)
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	err := c.Set("key1", []byte(`{"ok":true}`), 0)
	require.NoError(t, err)

	value, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(value))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Size)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	_, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	require.NoError(t, c.Set("short", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(2, time.Hour)

	require.NoError(t, c.Set("a", []byte("1"), time.Minute))
	require.NoError(t, c.Set("b", []byte("2"), time.Hour))
	require.NoError(t, c.Set("c", []byte("3"), time.Hour))

	// "a" expires soonest so it is the eviction victim.
	_, ok := c.Get("a")
	assert.False(t, ok)

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestMemoryCacheClose(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	require.NoError(t, c.Set("key", []byte("v"), time.Hour))
	c.Close()
	c.Close() // idempotent

	// Closing stops the reaper but the cache itself stays usable.
	_, ok := c.Get("key")
	assert.True(t, ok)

	select {
	case <-c.done:
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestNullCache(t *testing.T) {
	c := &NullCache{}

	require.NoError(t, c.Set("key", []byte("value"), time.Hour))
	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
	c.Close()
}

func TestKeyStable(t *testing.T) {
	k1 := Key("github.com/acme/widgets", "src/main.py", "python")
	k2 := Key("github.com/acme/widgets", "src/main.py", "python")
	k3 := Key("github.com/acme/widgets", "src/main.py", "javascript")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.IsType(t, &MemoryCache{}, New("memory", 10, time.Hour))
	assert.IsType(t, &NullCache{}, New("none", 10, time.Hour))
	assert.IsType(t, &NullCache{}, New("", 10, time.Hour))
	assert.IsType(t, &MemoryCache{}, New("bogus", 10, time.Hour))
}

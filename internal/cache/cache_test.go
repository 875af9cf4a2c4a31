package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLGetSet(t *testing.T) {
	c := NewTTL[string](10, time.Hour)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL[int](10, time.Hour)

	c.SetWithTTL("k", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLDelete(t *testing.T) {
	c := NewTTL[int](10, time.Hour)

	c.Set("k", 1)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLBound(t *testing.T) {
	c := NewTTL[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Oldest entry evicted by the LRU bound.
	_, ok := c.Get("a")
	assert.False(t, ok)
}

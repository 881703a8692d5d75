package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("stats")
	assert.False(t, ok)

	c.Set("stats", 42)
	v, ok := c.Get("stats")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	c := New(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("stats", "v")
	now = now.Add(time.Minute)

	_, ok := c.Get("stats")
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := New(0)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(24 * time.Hour)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

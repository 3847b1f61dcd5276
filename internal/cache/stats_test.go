package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_SnapshotReflectsRecordedActivity(t *testing.T) {
	c := newCounters()
	c.hits.Add(3)
	c.misses.Add(1)
	c.putCount.Add(2)
	c.recordEviction(string(LRU))
	c.recordEviction(string(LRU))
	c.recordCleanup(5)

	s := c.snapshot()
	assert.Equal(t, uint64(3), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(2), s.PutCount)
	assert.Equal(t, uint64(2), s.EvictionsByPolicy["LRU"])
	assert.Equal(t, uint64(5), s.ExpiredEntries)
	assert.Equal(t, uint64(1), s.CleanupCount)
	assert.False(t, s.LastCleanupTime.IsZero())
}

func TestCounters_ResetZeroesEverything(t *testing.T) {
	c := newCounters()
	c.hits.Add(10)
	c.recordEviction(string(FIFO))
	c.reset()

	s := c.snapshot()
	assert.Equal(t, uint64(0), s.Hits)
	assert.Empty(t, s.EvictionsByPolicy)
	assert.True(t, s.LastCleanupTime.IsZero())
}

func TestCounters_SnapshotIsIndependentCopy(t *testing.T) {
	c := newCounters()
	c.recordEviction(string(LRU))

	s := c.snapshot()
	s.EvictionsByPolicy["LRU"] = 999

	s2 := c.snapshot()
	assert.Equal(t, uint64(1), s2.EvictionsByPolicy["LRU"], "mutating a snapshot must not affect the live counters")
}

func TestStats_FormattedIncludesKeyFields(t *testing.T) {
	c := newCounters()
	c.hits.Add(7)
	c.misses.Add(3)
	c.recordEviction(string(LRU))

	out := c.snapshot().Formatted()
	assert.True(t, strings.Contains(out, "Hits:"))
	assert.True(t, strings.Contains(out, "70.00%"))
	assert.True(t, strings.Contains(out, "LRU:"))
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "0", thousands(0))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "1,000", thousands(1000))
	assert.Equal(t, "1,234,567", thousands(1234567))
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictionPolicy_Valid(t *testing.T) {
	assert.True(t, LRU.Valid())
	assert.True(t, FIFO.Valid())
	assert.True(t, Random.Valid())
	assert.False(t, EvictionPolicy("BOGUS").Valid())
}

func TestNewEvictor_PanicsOnUnknownPolicy(t *testing.T) {
	assert.Panics(t, func() {
		newEvictor("BOGUS")
	})
}

func TestLRUEvictor_EvictsLeastRecentlyUsed(t *testing.T) {
	e := newLRUEvictor()
	e.add("a")
	e.add("b")
	e.add("c")

	e.touch("a") // a is now most recent

	victim, ok := e.evict()
	require.True(t, ok)
	assert.Equal(t, "b", victim, "b is least recently used after touching a")

	victim, ok = e.evict()
	require.True(t, ok)
	assert.Equal(t, "c", victim)
}

func TestLRUEvictor_EmptyReturnsFalse(t *testing.T) {
	e := newLRUEvictor()
	_, ok := e.evict()
	assert.False(t, ok)
}

func TestFIFOEvictor_IgnoresTouchOrder(t *testing.T) {
	e := newFIFOEvictor()
	e.add("a")
	e.add("b")
	e.add("c")

	e.touch("a") // FIFO must not reorder on touch

	victim, ok := e.evict()
	require.True(t, ok)
	assert.Equal(t, "a", victim)

	victim, ok = e.evict()
	require.True(t, ok)
	assert.Equal(t, "b", victim)
}

func TestRandomEvictor_EvictsFromLiveSet(t *testing.T) {
	e := newRandomEvictor()
	e.add("a")
	e.add("b")
	e.add("c")

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		v, ok := e.evict()
		require.True(t, ok)
		seen[v] = true
	}
	assert.Len(t, seen, 3, "each of a/b/c evicted exactly once")

	_, ok := e.evict()
	assert.False(t, ok)
}

func TestOrderList_RemoveMiddle(t *testing.T) {
	l := newOrderList()
	l.pushBack("a")
	l.pushBack("b")
	l.pushBack("c")
	l.remove("b")

	first, ok := l.popFront()
	require.True(t, ok)
	assert.Equal(t, "a", first)

	second, ok := l.popFront()
	require.True(t, ok)
	assert.Equal(t, "c", second)

	_, ok = l.popFront()
	assert.False(t, ok)
}

func TestOrderList_PushBackIgnoresDuplicate(t *testing.T) {
	l := newOrderList()
	l.pushBack("a")
	l.pushBack("a")

	_, ok := l.popFront()
	require.True(t, ok)
	_, ok = l.popFront()
	assert.False(t, ok, "duplicate pushBack must not create a second node")
}

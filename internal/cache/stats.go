package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of cache statistics. All counters are
// monotonic between resets.
type Stats struct {
	Hits              uint64
	Misses            uint64
	PutCount          uint64
	DeleteCount       uint64
	ClearCount        uint64
	ExpiredEntries    uint64
	CleanupCount      uint64
	EvictionsByPolicy map[string]uint64
	LastCleanupTime   time.Time
	CreatedAt         time.Time
}

// counters holds the live atomic counters backing Stats. Per-policy
// eviction counts and the last-cleanup timestamp use a small guarded map
// since the set of policies in play is effectively fixed (LRU/FIFO/RANDOM)
// and contention there is negligible next to the hot Get/Put path.
type counters struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	putCount       atomic.Uint64
	deleteCount    atomic.Uint64
	clearCount     atomic.Uint64
	expiredEntries atomic.Uint64
	cleanupCount   atomic.Uint64

	mu                sync.Mutex
	evictionsByPolicy map[string]uint64
	lastCleanupTime   time.Time
	createdAt         time.Time
}

func newCounters() *counters {
	return &counters{
		evictionsByPolicy: make(map[string]uint64),
		createdAt:         time.Now(),
	}
}

func (c *counters) recordEviction(policy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictionsByPolicy[policy]++
}

func (c *counters) recordCleanup(expired uint64) {
	c.expiredEntries.Add(expired)
	c.cleanupCount.Add(1)
	c.mu.Lock()
	c.lastCleanupTime = time.Now()
	c.mu.Unlock()
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	evictions := make(map[string]uint64, len(c.evictionsByPolicy))
	for k, v := range c.evictionsByPolicy {
		evictions[k] = v
	}
	lastCleanup := c.lastCleanupTime
	createdAt := c.createdAt
	c.mu.Unlock()

	return Stats{
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		PutCount:          c.putCount.Load(),
		DeleteCount:       c.deleteCount.Load(),
		ClearCount:        c.clearCount.Load(),
		ExpiredEntries:    c.expiredEntries.Load(),
		CleanupCount:      c.cleanupCount.Load(),
		EvictionsByPolicy: evictions,
		LastCleanupTime:   lastCleanup,
		CreatedAt:         createdAt,
	}
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.putCount.Store(0)
	c.deleteCount.Store(0)
	c.clearCount.Store(0)
	c.expiredEntries.Store(0)
	c.cleanupCount.Store(0)

	c.mu.Lock()
	c.evictionsByPolicy = make(map[string]uint64)
	c.lastCleanupTime = time.Time{}
	c.createdAt = time.Now()
	c.mu.Unlock()
}

// Formatted renders a human-readable multi-line summary: hit/miss
// percentages to two decimals, thousands-separated integer counters.
func (s Stats) Formatted() string {
	total := s.Hits + s.Misses
	hitPct, missPct := 0.0, 0.0
	if total > 0 {
		hitPct = 100 * float64(s.Hits) / float64(total)
		missPct = 100 * float64(s.Misses) / float64(total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cache Statistics (since %s)\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Hits:      %s (%.2f%%)\n", thousands(s.Hits), hitPct)
	fmt.Fprintf(&b, "  Misses:    %s (%.2f%%)\n", thousands(s.Misses), missPct)
	fmt.Fprintf(&b, "  Puts:      %s\n", thousands(s.PutCount))
	fmt.Fprintf(&b, "  Deletes:   %s\n", thousands(s.DeleteCount))
	fmt.Fprintf(&b, "  Clears:    %s\n", thousands(s.ClearCount))
	fmt.Fprintf(&b, "  Expired:   %s\n", thousands(s.ExpiredEntries))
	fmt.Fprintf(&b, "  Cleanups:  %s\n", thousands(s.CleanupCount))

	if len(s.EvictionsByPolicy) > 0 {
		fmt.Fprintf(&b, "  Evictions:\n")
		names := make([]string, 0, len(s.EvictionsByPolicy))
		for name := range s.EvictionsByPolicy {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "    %s: %s\n", name, thousands(s.EvictionsByPolicy[name]))
		}
	}
	if !s.LastCleanupTime.IsZero() {
		fmt.Fprintf(&b, "  Last cleanup: %s\n", s.LastCleanupTime.Format(time.RFC3339))
	}
	return b.String()
}

// thousands renders n with thousands separators, e.g. 1234567 -> "1,234,567".
func thousands(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

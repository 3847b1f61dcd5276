package cache

import (
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/kv"
)

// DefaultCapacity is the entry-count cap a Cache enforces when no explicit
// capacity is configured.
const DefaultCapacity = 10_000

// Config holds the tunables for a new Cache.
type Config struct {
	// Capacity is the maximum number of live entries the cache holds
	// before each Put that would exceed it evicts exactly one victim.
	// Zero means DefaultCapacity.
	Capacity int `yaml:"capacity"`
	// Policy selects the eviction strategy. Zero value defaults to LRU.
	Policy EvictionPolicy `yaml:"policy"`
	// Persister, if non-nil, receives every successful Put/Delete and is
	// consulted at construction time via Load to seed initial state.
	// Not config-file-loadable; set programmatically.
	Persister Persister `yaml:"-"`
}

// Cache is a thread-safe, TTL-aware, bounded local key/value store. It is
// the storage engine each cluster node keeps for the keys it is
// responsible for; the replication coordinator is what makes multiple
// nodes' Caches agree, and is layered on top of this package, not in it.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]kv.Value
	evictor  evictor
	capacity int

	persister Persister
	stats     *counters
}

// New constructs a Cache from cfg, applying defaults for zero-valued
// fields. If cfg.Persister is set, its Load result seeds the initial
// entry set before the cache is returned.
func New(cfg Config) (*Cache, error) {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	policy := cfg.Policy
	if policy == "" {
		policy = LRU
	}
	if !policy.Valid() {
		return nil, errInvalidPolicy(policy)
	}

	c := &Cache{
		entries:   make(map[string]kv.Value, capacity),
		evictor:   newEvictor(policy),
		capacity:  capacity,
		persister: cfg.Persister,
		stats:     newCounters(),
	}

	if cfg.Persister != nil {
		seed, err := cfg.Persister.Load()
		if err != nil {
			return nil, err
		}
		for k, v := range seed {
			c.entries[k] = v
			c.evictor.add(k)
		}
	}

	return c, nil
}

// Get returns the value stored for key. An expired entry is treated as a
// miss and is lazily removed; it is never returned to the caller.
func (c *Cache) Get(key kv.Key) (kv.Value, bool) {
	now := time.Now()

	c.mu.RLock()
	v, ok := c.entries[string(key)]
	c.mu.RUnlock()

	if !ok {
		c.stats.misses.Add(1)
		return kv.Value{}, false
	}
	if v.IsExpired(now) {
		c.removeExpiredLocked(string(key))
		c.stats.misses.Add(1)
		return kv.Value{}, false
	}

	c.mu.Lock()
	c.evictor.touch(string(key))
	c.mu.Unlock()

	c.stats.hits.Add(1)
	return v, true
}

// Contains reports whether key is present and unexpired, without touching
// recency bookkeeping or hit/miss counters.
func (c *Cache) Contains(key kv.Key) bool {
	c.mu.RLock()
	v, ok := c.entries[string(key)]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	if v.IsExpired(time.Now()) {
		c.removeExpiredLocked(string(key))
		return false
	}
	return true
}

// Put inserts or overwrites the value for key. If the cache is at capacity
// and key is not already present, exactly one existing entry is evicted
// per the configured policy before the insert proceeds.
func (c *Cache) Put(key kv.Key, val kv.Value) error {
	ks := string(key)

	c.mu.Lock()
	_, existed := c.entries[ks]
	if !existed && len(c.entries) >= c.capacity {
		if victim, ok := c.evictor.evict(); ok {
			delete(c.entries, victim)
			c.stats.recordEviction(string(c.policyName()))
		}
	}
	c.entries[ks] = val
	if existed {
		c.evictor.touch(ks)
	} else {
		c.evictor.add(ks)
	}
	c.mu.Unlock()

	c.stats.putCount.Add(1)

	if c.persister != nil {
		return c.persister.RecordPut(key, val)
	}
	return nil
}

// Delete removes key if present. Deleting an absent key is not an error.
func (c *Cache) Delete(key kv.Key) error {
	ks := string(key)

	c.mu.Lock()
	_, existed := c.entries[ks]
	if existed {
		delete(c.entries, ks)
		c.evictor.remove(ks)
	}
	c.mu.Unlock()

	if existed {
		c.stats.deleteCount.Add(1)
	}

	if c.persister != nil {
		return c.persister.RecordDelete(key)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]kv.Value, c.capacity)
	c.evictor = newEvictor(c.policyName())
	c.mu.Unlock()
	c.stats.clearCount.Add(1)
}

// Size returns the current number of live entries, including any not yet
// lazily swept past their expiry.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns a snapshot of every key currently stored, expired or not.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// RemoveExpired scans every entry and evicts those past their expiry,
// returning the count removed. This is what the background reaper calls
// on each sweep; it is also safe to call directly (e.g. from tests).
func (c *Cache) RemoveExpired(now time.Time) int {
	c.mu.Lock()
	var expired []string
	for k, v := range c.entries {
		if v.IsExpired(now) {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		delete(c.entries, k)
		c.evictor.remove(k)
	}
	c.mu.Unlock()

	if len(expired) > 0 {
		c.stats.recordCleanup(uint64(len(expired)))
	}
	return len(expired)
}

// Stats returns a snapshot of the cache's cumulative statistics.
func (c *Cache) Stats() Stats {
	return c.stats.snapshot()
}

// ResetStats zeroes every counter. The entries themselves are untouched.
func (c *Cache) ResetStats() {
	c.stats.reset()
}

func (c *Cache) removeExpiredLocked(key string) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok && v.IsExpired(time.Now()) {
		delete(c.entries, key)
		c.evictor.remove(key)
		c.mu.Unlock()
		c.stats.recordCleanup(1)
		return
	}
	c.mu.Unlock()
}

// policyName reports which policy the cache's current evictor implements.
// Used by Clear (to rebuild an equivalent evictor) and by eviction stats
// labeling.
func (c *Cache) policyName() EvictionPolicy {
	switch c.evictor.(type) {
	case *lruEvictor:
		return LRU
	case *fifoEvictor:
		return FIFO
	default:
		return Random
	}
}

func errInvalidPolicy(p EvictionPolicy) error {
	return &invalidPolicyError{policy: p}
}

type invalidPolicyError struct {
	policy EvictionPolicy
}

func (e *invalidPolicyError) Error() string {
	return "cache: invalid eviction policy " + string(e.policy)
}

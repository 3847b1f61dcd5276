// Package cache implements the thread-safe local cache: a bounded,
// TTL-aware key/value store with pluggable eviction and a background
// reaper that sweeps expired entries.
//
// Big idea:
//
// The cache is the one piece of this system every other component sits on
// top of — the replication coordinator writes to and reads from a local
// Cache on each node, the wire handlers serialize Cache responses, and the
// gossip layer never touches it at all. Its correctness obligations are
// narrow but strict: never surface an expired value, evict exactly one
// entry per over-capacity Put, and keep statistics that never lie about
// what happened even under concurrent access.
//
// A sync.RWMutex guards the entry map directly — the same pattern used
// throughout this module's other shared structures (the ring, the SWIM
// detector's record map) — rather than a lock-free structure,
// because eviction-policy bookkeeping (LRU recency order, FIFO order) needs to be
// updated atomically with the map mutation it accompanies. Statistics
// counters are separately atomic so that Get/Put/Delete's hot paths don't
// need to touch the entry-map lock just to bump a counter.
package cache

// Package coordinator implements tunable-consistency replication across a
// ring of cache nodes: fan-out writes and reads bounded by a consistency
// level, last-write-wins conflict resolution on read, asynchronous read
// repair of stale replicas, and a bounded hinted-handoff queue for
// replicas that were unreachable at write time.
package coordinator

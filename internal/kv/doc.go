// Package kv defines the cache's value model: keys, versioned values, and
// the conflict-resolution rule used to pick a winner when replicas disagree.
//
// Big idea:
//
// Every value stored in the cache carries a Version, a hybrid Lamport-style
// timestamp paired with the ID of the node that produced it. When two
// replicas hold different values for the same key, the ConflictResolver
// picks a single winner using the total order over (timestamp, node ID).
// This is last-write-wins (LWW) conflict resolution — simple, and the right
// starting point before anything fancier (CRDTs, application-level merge)
// is needed.
package kv

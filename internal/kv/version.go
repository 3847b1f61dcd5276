package kv

import "time"

// Version is a hybrid Lamport-like timestamp: a millisecond wall-clock
// sample paired with the ID of the node that produced it. Versions form a
// total order — (timestamp, node ID) lexicographic — which is what lets a
// last-write-wins resolver pick a single winner deterministically even when
// two nodes write at what looks like "the same time."
type Version struct {
	TimestampMs int64  `json:"timestamp_ms"`
	NodeID      string `json:"node_id"`
}

// NowVersion samples the current wall clock (in milliseconds) and pairs it
// with nodeID. Two calls on the same node in the same millisecond produce
// equal versions; the tie is broken by whichever value's node ID sorts
// second in a comparison against a concurrent writer, not by call order —
// callers that need strict per-node ordering should rely on the local
// cache's single-writer-per-key behavior rather than on Version alone.
func NowVersion(nodeID string) Version {
	return Version{TimestampMs: time.Now().UnixMilli(), NodeID: nodeID}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, ordering first by TimestampMs then by NodeID.
func (v Version) Compare(other Version) int {
	switch {
	case v.TimestampMs < other.TimestampMs:
		return -1
	case v.TimestampMs > other.TimestampMs:
		return 1
	case v.NodeID < other.NodeID:
		return -1
	case v.NodeID > other.NodeID:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

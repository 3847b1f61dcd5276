package coordinator

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/ring"
)

// DefaultHintTTL is how long a queued hint survives before Drain
// discards it as stale.
const DefaultHintTTL = 3 * time.Hour

// DefaultHintCapacity bounds the number of hints queued per target node,
// so a long-downed replica can't make the hint store grow without limit.
// The oldest hint for that node is dropped to make room for a new one.
const DefaultHintCapacity = 10_000

// Hint is one buffered write destined for a replica that was unreachable
// when the coordinator tried to send it directly.
type Hint struct {
	Key      kv.Key
	Value    kv.Value
	QueuedAt time.Time
}

// HintStore buffers hinted handoff: a bounded, per-target queue of
// writes to replay once the target node is
// observed ALIVE again. It has no network behavior of its own — Drain
// hands a caller (the cluster facade, which watches the failure detector)
// the hints to replay and removes them; the caller decides when a node
// counts as "became ALIVE".
type HintStore struct {
	ttl      time.Duration
	capacity int

	mu     sync.Mutex
	queues map[string]*list.List // nodeID -> *list.List of Hint
}

// NewHintStore constructs a HintStore. ttl <= 0 uses DefaultHintTTL;
// capacity <= 0 uses DefaultHintCapacity.
func NewHintStore(ttl time.Duration, capacity int) *HintStore {
	if ttl <= 0 {
		ttl = DefaultHintTTL
	}
	if capacity <= 0 {
		capacity = DefaultHintCapacity
	}
	return &HintStore{
		ttl:      ttl,
		capacity: capacity,
		queues:   make(map[string]*list.List),
	}
}

// Enqueue buffers a write for nodeID. If the per-node queue is already at
// capacity, the oldest hint is dropped to make room.
func (h *HintStore) Enqueue(nodeID string, key kv.Key, val kv.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.queues[nodeID]
	if !ok {
		q = list.New()
		h.queues[nodeID] = q
	}
	if q.Len() >= h.capacity {
		q.Remove(q.Front())
	}
	q.PushBack(Hint{Key: key, Value: val, QueuedAt: time.Now()})
}

// Drain removes and returns every non-expired hint queued for nodeID, in
// the order they were enqueued. Expired hints are discarded silently.
func (h *HintStore) Drain(nodeID string) []Hint {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.queues[nodeID]
	if !ok || q.Len() == 0 {
		return nil
	}

	now := time.Now()
	out := make([]Hint, 0, q.Len())
	for e := q.Front(); e != nil; e = e.Next() {
		hint := e.Value.(Hint)
		if now.Sub(hint.QueuedAt) <= h.ttl {
			out = append(out, hint)
		}
	}
	delete(h.queues, nodeID)
	return out
}

// PendingCount reports how many hints (expired or not) are currently
// queued for nodeID. Useful for metrics and tests.
func (h *HintStore) PendingCount(nodeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[nodeID]
	if !ok {
		return 0
	}
	return q.Len()
}

// Replayer drains HintStore queues for nodes the failure detector reports
// as freshly ALIVE and replays them through a ClientResolver-obtained
// ReplicaClient, deleting each hint on successful replay. A failed
// replay is silently dropped rather than re-queued: a replica that just
// flapped alive-then-down-again will pick up any missing keys through the
// next quorum write or read repair instead.
type Replayer struct {
	hints   *HintStore
	resolve ClientResolver
}

// NewReplayer constructs a Replayer over store, resolving replay targets
// via resolve.
func NewReplayer(store *HintStore, resolve ClientResolver) *Replayer {
	return &Replayer{hints: store, resolve: resolve}
}

// ReplayNode drains and replays every hint queued for node, which the
// caller has just observed transition to ALIVE. Returns how many hints
// were replayed successfully and how many failed, for callers that want
// to report the outcome (e.g. as metrics).
func (r *Replayer) ReplayNode(node ring.Node) (succeeded, failed int) {
	pending := r.hints.Drain(node.ID)
	if len(pending) == 0 {
		return 0, 0
	}
	client, err := r.resolve(node)
	if err != nil {
		return 0, len(pending)
	}
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	for _, hint := range pending {
		if err := client.Put(ctx, hint.Key, hint.Value); err != nil {
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

// replayTimeout bounds one node's entire hint-replay batch, not each
// individual Put — a node with thousands of queued hints still finishes
// in bounded time instead of one timeout per hint.
const replayTimeout = 30 * time.Second

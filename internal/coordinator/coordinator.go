package coordinator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/ring"
)

// DefaultTimeout is the per-operation deadline used when a caller doesn't
// supply one.
const DefaultTimeout = time.Second

// Coordinator fans a single logical operation out to the replica set a
// Ring selects for a key, waits for enough replicas to respond to satisfy
// a ConsistencyLevel, and — for reads — resolves conflicting versions.
// It holds no per-request state: any node may coordinate any request, and
// a Coordinator value is safe for concurrent use by many callers at once.
//
// Replica responses are collected in completion order rather than by
// pre-slicing the first `required` replicas out of the fan-out list, so a
// slow replica near the front never blocks a result a faster one further
// back could already supply.
type Coordinator struct {
	ring     *ring.Ring
	resolve  ClientResolver
	resolver kv.ConflictResolver
	cfg      ReplicationConfig
	hints    *HintStore
	selfID   string
}

// New constructs a Coordinator. cfg is validated (rf >= 1) before
// construction succeeds.
func New(r *ring.Ring, resolve ClientResolver, cfg ReplicationConfig, selfID string) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Coordinator{
		ring:     r,
		resolve:  resolve,
		resolver: kv.LastWriteWinsResolver{},
		cfg:      cfg,
		hints:    NewHintStore(DefaultHintTTL, DefaultHintCapacity),
		selfID:   selfID,
	}, nil
}

// Config returns the coordinator's static replication policy.
func (c *Coordinator) Config() ReplicationConfig {
	return c.cfg
}

// Hints returns the coordinator's hinted-handoff queue, so the cluster
// facade's background replayer can drain it when a downed replica comes
// back ALIVE.
func (c *Coordinator) Hints() *HintStore {
	return c.hints
}

// replicaOutcome is one replica's response to a fanned-out request,
// carried back over a completion-ordered channel.
type replicaOutcome struct {
	node ring.Node
	val  kv.Value
	hit  bool
	err  error
}

// fanout dispatches op against every node in replicas concurrently over a
// context bounded by timeout, but — critically — does not cancel
// in-flight calls just because the caller's wait loop returns early: a
// replica write may still land and update that replica even after the
// coordinator has already returned to its caller. The returned channel
// receives exactly len(replicas) outcomes, in completion order, whether or
// not the caller drains all of them.
func fanout(replicas []ring.Node, timeout time.Duration, op func(ctx context.Context, node ring.Node) replicaOutcome) <-chan replicaOutcome {
	opCtx, cancel := context.WithTimeout(context.Background(), timeout)
	results := make(chan replicaOutcome, len(replicas))

	var wg sync.WaitGroup
	wg.Add(len(replicas))
	for _, node := range replicas {
		node := node
		go func() {
			defer wg.Done()
			results <- op(opCtx, node)
		}()
	}
	go func() {
		wg.Wait()
		cancel()
	}()

	return results
}

// ReplicatedPut writes val for key to the replica set cl requires,
// returning once enough replicas have acknowledged the write or once
// success becomes impossible.
func (c *Coordinator) ReplicatedPut(ctx context.Context, key kv.Key, val kv.Value, cl ConsistencyLevel, timeout time.Duration) error {
	replicas := c.ring.GetReplicaNodes(key.String(), c.cfg.RF)
	if len(replicas) == 0 {
		return ErrNoReplicas
	}
	required := requiredResponses(cl, c.cfg.RF)
	total := len(replicas)

	results := fanout(replicas, timeout, func(opCtx context.Context, node ring.Node) replicaOutcome {
		client, err := c.resolve(node)
		if err != nil {
			return replicaOutcome{node: node, err: err}
		}
		return replicaOutcome{node: node, err: client.Put(opCtx, key, val)}
	})

	deadline := time.After(timeout)
	succeeded, failed := 0, 0
	for i := 0; i < total; i++ {
		select {
		case r := <-results:
			if r.err == nil {
				succeeded++
				if succeeded >= required {
					return nil
				}
			} else {
				failed++
				if c.cfg.HintedHandoffEnabled {
					c.hints.Enqueue(r.node.ID, key, val)
				}
			}
			if total-failed < required {
				return &ReplicationError{Op: "put", Required: required, Observed: succeeded, Total: total}
			}
		case <-deadline:
			return &ReplicationError{Op: "put", Required: required, Observed: succeeded, Total: total}
		}
	}
	if succeeded >= required {
		return nil
	}
	return &ReplicationError{Op: "put", Required: required, Observed: succeeded, Total: total}
}

// ReplicatedGet reads key from the replica set cl requires, resolving any
// disagreement among the hits with the configured ConflictResolver. The
// second return reports whether the resolved result is a hit; a tombstone
// winner (zero-length data plus a non-nil Version) is surfaced to the
// caller as a miss even though it is still present in storage on at least
// one replica.
func (c *Coordinator) ReplicatedGet(ctx context.Context, key kv.Key, cl ConsistencyLevel, timeout time.Duration) (kv.Value, bool, error) {
	replicas := c.ring.GetReplicaNodes(key.String(), c.cfg.RF)
	if len(replicas) == 0 {
		return kv.Value{}, false, ErrNoReplicas
	}
	required := requiredResponses(cl, c.cfg.RF)
	total := len(replicas)

	// ALL always queries every replica; a deployment with read repair
	// enabled broadcasts regardless of cl so repair has full visibility;
	// otherwise cap breadth at what the consistency level actually needs.
	queried := replicas
	if cl != All && !c.cfg.ReadRepairEnabled && required < total {
		queried = replicas[:required]
		total = required
	}

	results := fanout(queried, timeout, func(opCtx context.Context, node ring.Node) replicaOutcome {
		client, err := c.resolve(node)
		if err != nil {
			return replicaOutcome{node: node, err: err}
		}
		val, hit, err := client.Get(opCtx, key)
		return replicaOutcome{node: node, val: val, hit: hit, err: err}
	})

	deadline := time.After(timeout)
	var hits []replicaOutcome
	succeeded, failed := 0, 0
	for i := 0; i < total; i++ {
		select {
		case r := <-results:
			if r.err == nil {
				succeeded++
				if r.hit {
					hits = append(hits, r)
				}
				if succeeded >= required {
					return c.resolveRead(key, hits, cl, timeout)
				}
			} else {
				failed++
			}
			if total-failed < required {
				return kv.Value{}, false, &ReplicationError{Op: "get", Required: required, Observed: succeeded, Total: total}
			}
		case <-deadline:
			if succeeded >= required {
				return c.resolveRead(key, hits, cl, timeout)
			}
			return kv.Value{}, false, &ReplicationError{Op: "get", Required: required, Observed: succeeded, Total: total}
		}
	}
	if succeeded >= required {
		return c.resolveRead(key, hits, cl, timeout)
	}
	return kv.Value{}, false, &ReplicationError{Op: "get", Required: required, Observed: succeeded, Total: total}
}

// resolveRead applies the conflict resolver to the collected hits,
// schedules asynchronous read repair of any replica whose value lost,
// and translates a winning tombstone into a reported miss.
func (c *Coordinator) resolveRead(key kv.Key, hits []replicaOutcome, cl ConsistencyLevel, timeout time.Duration) (kv.Value, bool, error) {
	if len(hits) == 0 {
		return kv.Value{}, false, nil
	}

	values := make([]kv.Value, len(hits))
	for i, h := range hits {
		values[i] = h.val
	}
	winner, err := c.resolver.Resolve(values)
	if err != nil {
		return kv.Value{}, false, err
	}

	if c.cfg.ReadRepairEnabled {
		c.scheduleReadRepair(key, winner, hits, timeout)
	}

	if winner.IsTombstone() {
		return kv.Value{}, false, nil
	}
	return winner, true, nil
}

// scheduleReadRepair asynchronously writes winner back to every replica
// whose returned value lost the conflict resolution, so the next read
// doesn't have to repeat the work. Repair failures are logged and never
// affect the response already returned to the caller.
func (c *Coordinator) scheduleReadRepair(key kv.Key, winner kv.Value, hits []replicaOutcome, timeout time.Duration) {
	var stale []ring.Node
	for _, h := range hits {
		if !sameValue(h.val, winner) {
			stale = append(stale, h.node)
		}
	}
	if len(stale) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var wg sync.WaitGroup
		wg.Add(len(stale))
		for _, node := range stale {
			node := node
			go func() {
				defer wg.Done()
				client, err := c.resolve(node)
				if err != nil {
					log.Printf("coordinator: read repair of %q on %s: %v", key, node.ID, err)
					return
				}
				if err := client.Put(ctx, key, winner); err != nil {
					log.Printf("coordinator: read repair of %q on %s: %v", key, node.ID, err)
				}
			}()
		}
		wg.Wait()
	}()
}

// sameValue reports whether a and b carry the same version, which is
// enough to decide "is this replica's copy stale" without comparing
// payload bytes.
func sameValue(a, b kv.Value) bool {
	switch {
	case a.Version == nil && b.Version == nil:
		return true
	case a.Version == nil || b.Version == nil:
		return false
	default:
		return *a.Version == *b.Version
	}
}

// ReplicatedDelete removes key from the replica set cl requires, using
// the same fan-out-and-wait shape as ReplicatedPut but sending a delete
// RPC rather than a write. The wire DeleteRequest carries only a key, not
// a version, so anti-resurrection against a stale concurrent write relies
// on local per-replica linearizability (the last put/delete a given
// replica observes wins) rather than a cross-replica version check — the
// system is eventually consistent, not strongly linearizable, so this is
// sufficient without a per-replica tombstone-version comparison.
func (c *Coordinator) ReplicatedDelete(ctx context.Context, key kv.Key, cl ConsistencyLevel, timeout time.Duration) error {
	replicas := c.ring.GetReplicaNodes(key.String(), c.cfg.RF)
	if len(replicas) == 0 {
		return ErrNoReplicas
	}
	required := requiredResponses(cl, c.cfg.RF)
	total := len(replicas)

	tombstone := kv.Value{Version: versionPtr(kv.NowVersion(c.selfID))}

	results := fanout(replicas, timeout, func(opCtx context.Context, node ring.Node) replicaOutcome {
		client, err := c.resolve(node)
		if err != nil {
			return replicaOutcome{node: node, err: err}
		}
		return replicaOutcome{node: node, err: client.Delete(opCtx, key)}
	})

	deadline := time.After(timeout)
	succeeded, failed := 0, 0
	for i := 0; i < total; i++ {
		select {
		case r := <-results:
			if r.err == nil {
				succeeded++
				if succeeded >= required {
					return nil
				}
			} else {
				failed++
				if c.cfg.HintedHandoffEnabled {
					// A replica that missed the delete gets the
					// tombstone replayed once it's reachable again,
					// rather than the delete RPC itself.
					c.hints.Enqueue(r.node.ID, key, tombstone)
				}
			}
			if total-failed < required {
				return &ReplicationError{Op: "delete", Required: required, Observed: succeeded, Total: total}
			}
		case <-deadline:
			return &ReplicationError{Op: "delete", Required: required, Observed: succeeded, Total: total}
		}
	}
	if succeeded >= required {
		return nil
	}
	return &ReplicationError{Op: "delete", Required: required, Observed: succeeded, Total: total}
}

func versionPtr(v kv.Version) *kv.Version { return &v }

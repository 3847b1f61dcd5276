package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/coordinator"
	"github.com/ppriyankuu/gokv/internal/gossip"
	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/metrics"
	"github.com/ppriyankuu/gokv/internal/ring"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// Node is the facade a cluster member presents to the outside world: one
// local Cache, a consistent-hash Ring of peers, a gossip.Service driving
// SWIM failure detection, and a coordinator.Coordinator that turns
// single-key operations into replicated ones. Each concern lives in its
// own package and membership is driven entirely by gossip rather than a
// static peer list.
type Node struct {
	cfg Config

	cache   *cache.Cache
	ring    *ring.Ring
	gossip  *gossip.Service
	coord   *coordinator.Coordinator
	metrics *metrics.Collector

	cacheSrv  *cacheRPCServer
	gossipLn  *gossipListener
	rpcPool   *rpcClientPool
	localSelf *localReplicaClient

	startMu sync.Mutex
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup

	prevAlive  map[string]bool
	prevStatus map[string]ring.Status
}

// NewNode constructs a Node from cfg but does not start any network
// activity — call Start for that.
func NewNode(cfg Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GossipAddr == "" {
		addr, err := gossipAddrFor(cfg.CacheAddr)
		if err != nil {
			return nil, err
		}
		cfg.GossipAddr = addr
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	r := ring.New(cfg.VirtualNodes)
	r.AddNode(ring.Node{ID: cfg.NodeID, Address: cfg.CacheAddr, Status: ring.StatusAlive})

	transport := gossip.NewTCPTransport(cfg.DialTimeout)
	gossipSvc, err := gossip.NewService(cfg.Gossip, cfg.NodeID, cfg.GossipAddr, transport)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:       cfg,
		cache:     c,
		ring:      r,
		gossip:    gossipSvc,
		rpcPool:   newRPCClientPool(cfg.DialTimeout),
		localSelf: &localReplicaClient{cache: c},
		stop:       make(chan struct{}),
		prevAlive:  map[string]bool{cfg.NodeID: true},
		prevStatus: make(map[string]ring.Status),
	}
	n.cacheSrv = newCacheRPCServer(c)
	n.gossipLn = newGossipListener(gossipSvc)

	coord, err := coordinator.New(r, n.resolveClient, cfg.Replication, cfg.NodeID)
	if err != nil {
		return nil, err
	}
	n.coord = coord

	collector, err := metrics.NewCollector(cfg.Metrics,
		func() cache.Stats { return c.Stats() },
		func() ring.Stats { return r.Stats() },
		func() int {
			n := len(gossipSvc.AliveMembers()) - 1 // AliveMembers includes self
			if n < 0 {
				return 0
			}
			return n
		},
	)
	if err != nil {
		return nil, err
	}
	n.metrics = collector

	return n, nil
}

// resolveClient is the coordinator.ClientResolver this node uses: its own
// node routes to the local cache directly, every other node routes over
// cache RPC to the address recorded on the ring.
func (n *Node) resolveClient(node ring.Node) (coordinator.ReplicaClient, error) {
	if node.ID == n.cfg.NodeID {
		return n.localSelf, nil
	}
	return n.rpcPool.get(node.Address), nil
}

// Start brings the node's listeners and background loops up and attempts
// to join the cluster through cfg.Seeds. joinTimeout bounds the join
// attempt; a timed-out or seedless join is not an error — the node simply
// starts isolated.
func (n *Node) Start(ctx context.Context, joinTimeout time.Duration) error {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	if n.started {
		return nil
	}

	if err := n.cacheSrv.serve(n.cfg.CacheAddr); err != nil {
		return err
	}
	if err := n.gossipLn.serve(n.cfg.GossipAddr); err != nil {
		return err
	}

	n.gossip.Start()
	if err := n.metrics.Start(ctx); err != nil {
		return err
	}

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	if err := n.gossip.Join(joinCtx, n.cfg.Seeds); err != nil {
		return err
	}

	n.started = true
	n.wg.Add(1)
	go n.syncLoop()
	return nil
}

// Stop gracefully leaves the cluster (LEAVE rumor fan-out, bounded by
// leaveTimeout) and tears down every listener and background loop.
// Idempotent.
func (n *Node) Stop(ctx context.Context, leaveTimeout time.Duration) {
	n.startMu.Lock()
	started := n.started
	n.started = false
	n.startMu.Unlock()
	if !started {
		return
	}

	close(n.stop)
	n.wg.Wait()

	leaveCtx, cancel := context.WithTimeout(ctx, leaveTimeout)
	defer cancel()
	n.gossip.Leave(leaveCtx)

	n.cacheSrv.close()
	n.gossipLn.close()
	n.rpcPool.closeAll()
	n.metrics.Stop(ctx)
}

// syncLoop periodically reconciles the ring's view of cluster membership
// against the gossip service's and replays hints for any node this node
// just observed transition to ALIVE.
func (n *Node) syncLoop() {
	defer n.wg.Done()
	interval := n.cfg.Gossip.GossipInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	replayer := coordinator.NewReplayer(n.coord.Hints(), n.resolveClient)

	for {
		select {
		case <-ticker.C:
			n.reconcileRing(replayer)
			n.metrics.SetCacheSize(n.cache.Size())
			n.metrics.SetHintsQueued(n.pendingHints())
		case <-n.stop:
			return
		}
	}
}

func (n *Node) reconcileRing(replayer *coordinator.Replayer) {
	members := n.gossip.Members()
	nowAlive := make(map[string]bool, len(members))

	for _, m := range members {
		if m.ID == n.cfg.NodeID {
			continue
		}
		cacheAddr, err := cacheAddrFromGossip(m.Address)
		if err != nil {
			continue
		}
		status := ringStatusFromWire(m.Status)
		n.ring.AddNode(ring.Node{ID: m.ID, Address: cacheAddr, Status: status})

		if prev, ok := n.prevStatus[m.ID]; ok && prev != status {
			n.metrics.RecordTransition(prev.String(), status.String())
		}
		n.prevStatus[m.ID] = status

		alive := status == ring.StatusAlive
		nowAlive[m.ID] = alive
		if alive && !n.prevAlive[m.ID] {
			target := ring.Node{ID: m.ID, Address: cacheAddr}
			go func() {
				succeeded, failed := replayer.ReplayNode(target)
				for i := 0; i < succeeded; i++ {
					n.metrics.RecordHintReplay(true)
				}
				for i := 0; i < failed; i++ {
					n.metrics.RecordHintReplay(false)
				}
			}()
		}
	}
	n.prevAlive = nowAlive
}

// pendingHints sums the hinted-handoff queue depth across every node the
// ring currently knows about, for the hints-queued gauge.
func (n *Node) pendingHints() int {
	total := 0
	for _, node := range n.ring.GetAllNodes() {
		total += n.coord.Hints().PendingCount(node.ID)
	}
	return total
}

// ringStatusFromWire maps a gossip wire.NodeInfo status code to the ring's
// own Status enum. Both enumerate ALIVE..LEFT in the same order by
// construction (see gossip's toWireStatus), so this is a direct cast
// guarded by range-checking rather than an arbitrary lookup table.
func ringStatusFromWire(v uint32) ring.Status {
	if v > uint32(ring.StatusLeft) {
		return ring.StatusDown
	}
	return ring.Status(v)
}

// Put writes val for key using the node's configured write consistency
// level.
func (n *Node) Put(ctx context.Context, key kv.Key, val kv.Value, timeout time.Duration) error {
	start := time.Now()
	err := n.coord.ReplicatedPut(ctx, key, val, n.cfg.Replication.WriteCL, timeout)
	n.metrics.RecordOperation("put", n.cfg.Replication.WriteCL.String(), time.Since(start), err)
	return err
}

// Get reads key using the node's configured read consistency level.
func (n *Node) Get(ctx context.Context, key kv.Key, timeout time.Duration) (kv.Value, bool, error) {
	start := time.Now()
	val, ok, err := n.coord.ReplicatedGet(ctx, key, n.cfg.Replication.ReadCL, timeout)
	n.metrics.RecordOperation("get", n.cfg.Replication.ReadCL.String(), time.Since(start), err)
	return val, ok, err
}

// Delete removes key using the node's configured write consistency level.
func (n *Node) Delete(ctx context.Context, key kv.Key, timeout time.Duration) error {
	start := time.Now()
	err := n.coord.ReplicatedDelete(ctx, key, n.cfg.Replication.WriteCL, timeout)
	n.metrics.RecordOperation("delete", n.cfg.Replication.WriteCL.String(), time.Since(start), err)
	return err
}

// Join attempts to join the cluster through the given seed gossip
// addresses, in addition to whatever seeds cfg.Seeds already supplied at
// Start. Safe to call after Start, e.g. from an admin endpoint pointing
// this node at a peer it didn't know about at boot.
func (n *Node) Join(ctx context.Context, seeds []string) error {
	return n.gossip.Join(ctx, seeds)
}

// Metrics exposes the node's metrics collector, e.g. for mounting its
// Prometheus handler on an additional router.
func (n *Node) Metrics() *metrics.Collector {
	return n.metrics
}

// Members returns every node this node currently knows about, alive or not.
func (n *Node) Members() []wire.NodeInfo {
	return n.gossip.Members()
}

// AliveMembers returns the IDs of every node currently believed ALIVE.
func (n *Node) AliveMembers() []string {
	return n.gossip.AliveMembers()
}

// IsInCluster reports whether this node has any alive peer besides itself.
func (n *Node) IsInCluster() bool {
	return n.gossip.IsInCluster()
}

// Cache exposes the node's local cache, e.g. for the cache-RPC server's
// own handlers and for metrics collection.
func (n *Node) Cache() *cache.Cache {
	return n.cache
}

// Ring exposes the node's consistent-hash ring, e.g. for diagnostics.
func (n *Node) Ring() *ring.Ring {
	return n.ring
}

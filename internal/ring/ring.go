package ring

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// DefaultVirtualNodes is the number of ring positions each physical node
// contributes. 128 is the floor for acceptable load variance; 256 gives
// comfortable headroom.
const DefaultVirtualNodes = 256

// Stats is a point-in-time snapshot of ring composition.
type Stats struct {
	PhysicalNodes int
	VirtualNodes  int
}

// Ring is a consistent-hash ring of virtual nodes. It is safe for
// concurrent use: reads take a read lock and never block each other, writes
// (AddNode/RemoveNode/Clear) take an exclusive lock.
type Ring struct {
	mu       sync.RWMutex
	vnodes   int
	tokens   map[uint64]VirtualNode // hash position -> virtual node
	sorted   []uint64               // sorted token positions, for binary search
	physical map[string]Node        // physical node ID -> current Node
}

// New creates an empty ring. vnodes <= 0 falls back to DefaultVirtualNodes.
func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes:   vnodes,
		tokens:   make(map[uint64]VirtualNode),
		physical: make(map[string]Node),
	}
}

// AddNode inserts node's virtual nodes into the ring. Idempotent by node
// ID — calling it again for the same ID replaces that node's metadata
// (e.g. a status change) without duplicating tokens.
func (r *Ring) AddNode(node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.physical[node.ID]; exists {
		r.updateNodeLocked(node)
		return
	}

	r.physical[node.ID] = node
	for i := 0; i < r.vnodes; i++ {
		vn := VirtualNode{Physical: node, Index: i}
		r.tokens[r.hash(vn.ID())] = vn
	}
	r.rebuildLocked()
}

// UpdateStatus changes the status of an already-added node (e.g. in
// response to a failure-detector transition) without touching its tokens.
func (r *Ring) UpdateStatus(id string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.physical[id]
	if !ok {
		return
	}
	node.Status = status
	r.updateNodeLocked(node)
}

// updateNodeLocked refreshes the physical-node record and every virtual
// node token that references it. Caller must hold the write lock.
func (r *Ring) updateNodeLocked(node Node) {
	r.physical[node.ID] = node
	for i := 0; i < r.vnodes; i++ {
		vn := VirtualNode{Physical: node, Index: i}
		pos := r.hash(vn.ID())
		if _, ok := r.tokens[pos]; ok {
			r.tokens[pos] = vn
		}
	}
}

// RemoveNode removes a physical node and all of its virtual nodes.
func (r *Ring) RemoveNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.physical[id]
	if !ok {
		return
	}
	delete(r.physical, id)
	for i := 0; i < r.vnodes; i++ {
		vn := VirtualNode{Physical: node, Index: i}
		delete(r.tokens, r.hash(vn.ID()))
	}
	r.rebuildLocked()
}

// GetNode returns the physical node owning key: the physical node of the
// first virtual node whose hash is >= the key's hash, wrapping around to
// the first token if none qualifies.
func (r *Ring) GetNode(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sorted) == 0 {
		return Node{}, false
	}
	idx := r.searchLocked(r.hash(key))
	return r.tokens[r.sorted[idx]].Physical, true
}

// GetReplicaNodes walks the ring clockwise from key's position and returns
// up to rf distinct ALIVE physical nodes. A non-alive physical node is
// still marked "seen" so duplicate virtual nodes don't cause re-traversal.
// The walk stops once rf alive nodes are collected or every physical node
// has been seen. Returns nil if rf <= 0 or the ring is empty.
func (r *Ring) GetReplicaNodes(key string, rf int) []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rf <= 0 || len(r.sorted) == 0 {
		return nil
	}

	start := r.searchLocked(r.hash(key))
	seen := make(map[string]bool, len(r.physical))
	nodes := make([]Node, 0, rf)

	for i := 0; i < len(r.sorted) && len(nodes) < rf && len(seen) < len(r.physical); i++ {
		vn := r.tokens[r.sorted[(start+i)%len(r.sorted)]]
		if seen[vn.Physical.ID] {
			continue
		}
		seen[vn.Physical.ID] = true
		if vn.Physical.IsAlive() {
			nodes = append(nodes, vn.Physical)
		}
	}
	return nodes
}

// GetAllNodes returns every physical node currently on the ring.
func (r *Ring) GetAllNodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]Node, 0, len(r.physical))
	for _, n := range r.physical {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Size returns the number of physical nodes.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.physical)
}

// IsEmpty reports whether the ring has no physical nodes.
func (r *Ring) IsEmpty() bool {
	return r.Size() == 0
}

// Clear removes every node from the ring.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[uint64]VirtualNode)
	r.physical = make(map[string]Node)
	r.sorted = nil
}

// Stats reports the current ring composition.
func (r *Ring) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{PhysicalNodes: len(r.physical), VirtualNodes: len(r.tokens)}
}

// hash computes a key's ring position: the first 8 bytes of its MD5 digest,
// interpreted as a big-endian unsigned 64-bit integer. The reference
// implementation this ring is modeled on stores the same bit pattern as a
// signed integer; either interpretation is internally consistent as long as
// it's applied uniformly, so this ring uses the simpler unsigned one.
func (r *Ring) hash(s string) uint64 {
	sum := md5.Sum([]byte(s))
	return binary.BigEndian.Uint64(sum[:8])
}

// rebuildLocked recomputes the sorted token-position slice. Caller must
// hold the write lock.
func (r *Ring) rebuildLocked() {
	r.sorted = make([]uint64, 0, len(r.tokens))
	for pos := range r.tokens {
		r.sorted = append(r.sorted, pos)
	}
	slices.Sort(r.sorted)
}

// searchLocked finds the index of the first sorted position >= pos,
// wrapping to 0 if pos is greater than every position on the ring. Caller
// must hold at least the read lock.
func (r *Ring) searchLocked(pos uint64) int {
	idx := sort.Search(len(r.sorted), func(i int) bool { return r.sorted[i] >= pos })
	if idx == len(r.sorted) {
		idx = 0
	}
	return idx
}

// String renders a short human-readable summary, handy in logs.
func (r *Ring) String() string {
	stats := r.Stats()
	return fmt.Sprintf("ring(nodes=%d, vnodes=%d)", stats.PhysicalNodes, stats.VirtualNodes)
}

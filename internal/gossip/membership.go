package gossip

import (
	"math/rand"
	"sync"

	"github.com/ppriyankuu/gokv/internal/swim"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// toWireStatus and fromWireStatus convert between swim.Status and the
// wire enum. The two enumerations share ordering (ALIVE=0 ... LEFT=4) by
// construction, so this is a direct, explicit 1:1 mapping rather than a
// bare cast — it stays correct even if one side's iota order drifts.
func toWireStatus(s swim.Status) uint32 {
	switch s {
	case swim.Alive:
		return 0
	case swim.Suspected:
		return 1
	case swim.Down:
		return 2
	case swim.Leaving:
		return 3
	case swim.Left:
		return 4
	default:
		return 2 // unknown treated as DOWN, the conservative choice
	}
}

func fromWireStatus(v uint32) swim.Status {
	switch v {
	case 0:
		return swim.Alive
	case 1:
		return swim.Suspected
	case 2:
		return swim.Down
	case 3:
		return swim.Leaving
	case 4:
		return swim.Left
	default:
		return swim.Down
	}
}

// addressBook tracks the network address for every peer this node has
// ever heard of, independent of the failure detector's status
// bookkeeping — an address learned once is kept even if the peer is
// currently believed DOWN, since it may come back.
type addressBook struct {
	mu        sync.RWMutex
	addresses map[string]string
}

func newAddressBook() *addressBook {
	return &addressBook{addresses: make(map[string]string)}
}

func (a *addressBook) set(id, addr string) {
	if addr == "" {
		return
	}
	a.mu.Lock()
	a.addresses[id] = addr
	a.mu.Unlock()
}

func (a *addressBook) get(id string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	addr, ok := a.addresses[id]
	return addr, ok
}

func (a *addressBook) all() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.addresses))
	for k, v := range a.addresses {
		out[k] = v
	}
	return out
}

// pickRandom returns n distinct random elements of ids, or all of them
// (in random order) if n >= len(ids).
func pickRandom(ids []string, n int) []string {
	shuffled := append([]string(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n >= len(shuffled) {
		return shuffled
	}
	return shuffled[:n]
}

// nodeInfo builds the wire representation of id's current state.
func nodeInfo(id, addr string, state swim.NodeState) wire.NodeInfo {
	return wire.NodeInfo{
		ID:          id,
		Address:     addr,
		Status:      toWireStatus(state.Status),
		Incarnation: state.Incarnation,
		TimestampMs: state.LastUpdate.UnixMilli(),
	}
}

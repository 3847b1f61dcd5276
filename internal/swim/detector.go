package swim

import (
	"sync"
	"time"
)

// NodeState is a snapshot of what the detector believes about one node.
type NodeState struct {
	Incarnation      uint64
	Status           Status
	LastUpdate       time.Time
	SuspectedAt      time.Time
	MissedHeartbeats int
}

// record is the internal, mutex-guarded home for one node's state. Each
// record is serialized independently so updates to different nodes never
// contend with each other.
type record struct {
	mu    sync.Mutex
	state NodeState
}

// Detector is a SWIM per-node failure-detector state machine. It owns no
// network behavior — package gossip drives it by calling RecordHeartbeat /
// RecordMissedHeartbeat as probes succeed or time out, and by calling
// ApplyRemoteUpdate when a SUSPECT/ALIVE/CONFIRM rumor or membership
// snapshot arrives from a peer.
type Detector struct {
	cfg Config

	mu      sync.RWMutex // guards the records map itself (not its values)
	records map[string]*record
}

// NewDetector creates a Detector. Panics if cfg fails Validate — a
// misconfigured detector is a programming error, not a runtime condition.
func NewDetector(cfg Config) *Detector {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &Detector{cfg: cfg, records: make(map[string]*record)}
}

// getOrCreate returns the record for id, creating one with the given
// initial status and incarnation if it doesn't exist yet. The bool return
// reports whether the record was just created.
func (d *Detector) getOrCreate(id string, initial Status, incarnation uint64) (*record, bool) {
	d.mu.RLock()
	r, ok := d.records[id]
	d.mu.RUnlock()
	if ok {
		return r, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.records[id]; ok {
		return r, false
	}
	r = &record{state: NodeState{Status: initial, Incarnation: incarnation, LastUpdate: time.Now()}}
	d.records[id] = r
	return r, true
}

// RecordHeartbeat registers a successful probe/ACK from id. If id was
// SUSPECTED, this is a refutation: its incarnation is bumped and it
// transitions back to ALIVE. A never-seen id is created as ALIVE.
func (d *Detector) RecordHeartbeat(id string) Event {
	r, created := d.getOrCreate(id, Alive, 0)
	if created {
		return newNodeEvent(id, Alive)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.MissedHeartbeats = 0
	r.state.LastUpdate = time.Now()

	if r.state.Status == Suspected {
		r.state.Incarnation++
		from := r.state.Status
		r.state.Status = Alive
		return statusChangedEvent(id, from, Alive)
	}
	return heartbeatRecordedEvent(id)
}

// RecordMissedHeartbeat registers a failed probe against id. Once the
// missed-heartbeat count reaches the configured threshold and the node was
// ALIVE, it transitions to SUSPECTED.
func (d *Detector) RecordMissedHeartbeat(id string) Event {
	r, created := d.getOrCreate(id, Alive, 0)
	if created {
		r.mu.Lock()
		r.state.MissedHeartbeats = 1
		r.mu.Unlock()
		return missedHeartbeatEvent(id, 1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.MissedHeartbeats++
	r.state.LastUpdate = time.Now()

	if r.state.MissedHeartbeats >= d.cfg.MissedHeartbeatThreshold && r.state.Status == Alive {
		r.state.Status = Suspected
		r.state.SuspectedAt = time.Now()
		return statusChangedEvent(id, Alive, Suspected)
	}
	return missedHeartbeatEvent(id, r.state.MissedHeartbeats)
}

// CheckSuspicionTimeouts transitions every SUSPECTED node whose
// SuspectedAt is older than the configured suspicion timeout to DOWN, and
// returns one StatusChanged event per transition.
func (d *Detector) CheckSuspicionTimeouts() []Event {
	d.mu.RLock()
	ids := make([]string, 0, len(d.records))
	recs := make([]*record, 0, len(d.records))
	for id, r := range d.records {
		ids = append(ids, id)
		recs = append(recs, r)
	}
	d.mu.RUnlock()

	now := time.Now()
	var events []Event
	for i, r := range recs {
		r.mu.Lock()
		if r.state.Status == Suspected && now.Sub(r.state.SuspectedAt) > d.cfg.SuspicionTimeout {
			r.state.Status = Down
			events = append(events, statusChangedEvent(ids[i], Suspected, Down))
		}
		r.mu.Unlock()
	}
	return events
}

// ApplyRemoteUpdate applies a status claim learned from a peer (a gossip
// rumor, a JOIN/JOIN_RESPONSE snapshot entry, or a SYNC exchange) for a node
// at the given incarnation. Incarnation rules:
//
//   - an unseen node is created with the given status/incarnation (NewNode)
//   - an update with a lower incarnation than recorded is Ignored
//   - an update with a higher incarnation always takes effect, regardless
//     of whether the transition table would otherwise allow it
//   - an update at the same incarnation is admitted only if the transition
//     is in the allowed table; otherwise it is Ignored
func (d *Detector) ApplyRemoteUpdate(id string, incarnation uint64, status Status) Event {
	r, created := d.getOrCreate(id, status, incarnation)
	if created {
		return newNodeEvent(id, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case incarnation < r.state.Incarnation:
		return ignoredEvent(id, "stale incarnation")
	case incarnation > r.state.Incarnation:
		from := r.state.Status
		r.state.Incarnation = incarnation
		r.state.Status = status
		r.state.LastUpdate = time.Now()
		if status == Suspected {
			r.state.SuspectedAt = time.Now()
		}
		return statusChangedEvent(id, from, status)
	default: // incarnation == r.state.Incarnation
		if status == r.state.Status {
			return ignoredEvent(id, "no-op: already in requested status")
		}
		if !isAllowedTransition(r.state.Status, status) {
			return ignoredEvent(id, "disallowed transition at equal incarnation")
		}
		from := r.state.Status
		r.state.Status = status
		r.state.LastUpdate = time.Now()
		if status == Suspected {
			r.state.SuspectedAt = time.Now()
		}
		return statusChangedEvent(id, from, status)
	}
}

// Get returns a snapshot of id's current state.
func (d *Detector) Get(id string) (NodeState, bool) {
	d.mu.RLock()
	r, ok := d.records[id]
	d.mu.RUnlock()
	if !ok {
		return NodeState{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, true
}

// All returns a snapshot of every known node's state, keyed by ID.
func (d *Detector) All() map[string]NodeState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]NodeState, len(d.records))
	for id, r := range d.records {
		r.mu.Lock()
		out[id] = r.state
		r.mu.Unlock()
	}
	return out
}

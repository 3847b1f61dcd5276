package gossip

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppriyankuu/gokv/internal/swim"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// Service drives the SWIM gossip protocol for one node: a scheduler
// goroutine that sends direct/indirect probes and checks suspicion
// timeouts, a JOIN/LEAVE/SYNC implementation, and rumor fan-out for
// status transitions. It owns a swim.Detector and an addressBook; the
// detector is the source of truth for "is this peer alive", the address
// book is the source of truth for "how do I reach it".
type Service struct {
	cfg       Config
	selfID    string
	selfAddr  string
	detector  *swim.Detector
	addresses *addressBook
	transport Transport

	seq atomic.Uint64

	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewService constructs a Service. The local node is registered with the
// detector as ALIVE at incarnation 0.
func NewService(cfg Config, selfID, selfAddr string, transport Transport) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:       cfg,
		selfID:    selfID,
		selfAddr:  selfAddr,
		detector:  swim.NewDetector(swim.Config{MissedHeartbeatThreshold: 3, SuspicionTimeout: cfg.SuspicionTimeout, HeartbeatInterval: cfg.GossipInterval}),
		addresses: newAddressBook(),
		transport: transport,
		stop:      make(chan struct{}),
	}
	s.addresses.set(selfID, selfAddr)
	s.detector.ApplyRemoteUpdate(selfID, 0, swim.Alive)
	return s, nil
}

// Start launches the scheduler goroutines: the gossip-interval probe loop
// and the half-suspicion-timeout suspicion checker. Calling Start more
// than once has no effect beyond the first call.
func (s *Service) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(2)
	go s.probeLoop()
	go s.suspicionLoop()
}

func (s *Service) probeLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.GossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probeRandomPeer()
		case <-s.stop:
			return
		}
	}
}

func (s *Service) suspicionLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SuspicionTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			events := s.detector.CheckSuspicionTimeouts()
			for _, ev := range events {
				if ev.To == swim.Down {
					s.fanoutRumor(Confirm, ev.NodeID)
				}
			}
		case <-s.stop:
			return
		}
	}
}

// probeRandomPeer picks one random alive non-self peer and runs the
// direct/indirect probe sequence against it.
func (s *Service) probeRandomPeer() {
	target, ok := s.randomAlivePeer()
	if !ok {
		return // isolated node, or no peers known yet
	}
	s.probe(target)
}

// probe runs a direct-then-indirect probe sequence against target: a
// direct PING, and on timeout, PING_REQ fan-out to help.
func (s *Service) probe(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingTimeout)
	defer cancel()

	if s.directPing(ctx, target) {
		s.detector.RecordHeartbeat(target)
		return
	}

	ev := s.detector.RecordMissedHeartbeat(target)
	if ev.Kind == swim.EventStatusChanged && ev.To == swim.Suspected {
		s.fanoutRumor(Suspect, target)
	}
	s.indirectProbe(target)
}

func (s *Service) directPing(ctx context.Context, target string) bool {
	addr, ok := s.addresses.get(target)
	if !ok {
		return false
	}
	msg := s.buildMessage(Ping, nil)
	reply, err := s.transport.RoundTrip(ctx, addr, msg)
	if err != nil {
		return false
	}
	s.mergeIncoming(reply)
	return reply.Type == Ack
}

// indirectProbe asks up to IndirectPingNodes other alive peers to probe
// target on this node's behalf: each helper pings target itself and
// reports the outcome back in its PING_REQ reply, a single synchronous
// hop rather than a separately re-routed ACK.
func (s *Service) indirectProbe(target string) {
	helpers := s.randomAlivePeersExcluding(s.cfg.IndirectPingNodes, target)
	if len(helpers) == 0 {
		return
	}

	type result struct {
		acked bool
	}
	results := make(chan result, len(helpers))

	for _, helperID := range helpers {
		helperID := helperID
		go func() {
			addr, ok := s.addresses.get(helperID)
			if !ok {
				results <- result{}
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingTimeout)
			defer cancel()
			subject := s.buildNodeInfo(target)
			msg := s.buildMessage(PingReq, &subject)
			reply, err := s.transport.RoundTrip(ctx, addr, msg)
			if err != nil {
				results <- result{}
				return
			}
			s.mergeIncoming(reply)
			results <- result{acked: reply.Type == Ack}
		}()
	}

	for i := 0; i < len(helpers); i++ {
		if (<-results).acked {
			s.detector.RecordHeartbeat(target)
			return
		}
	}
}

// fanoutRumor sends a SUSPECT/ALIVE/CONFIRM rumor about subject to
// Fanout random alive peers.
func (s *Service) fanoutRumor(kind wire.GossipMessageType, subject string) {
	peers := s.randomAlivePeersExcluding(s.cfg.Fanout, subject)
	subjectInfo := s.buildNodeInfo(subject)
	msg := s.buildMessage(kind, &subjectInfo)
	for _, peerID := range peers {
		addr, ok := s.addresses.get(peerID)
		if !ok {
			continue
		}
		go func(addr string) {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingTimeout)
			defer cancel()
			if _, err := s.transport.RoundTrip(ctx, addr, msg); err != nil {
				log.Printf("gossip: rumor send to %s failed: %v", addr, err)
			}
		}(addr)
	}
}

// Join sends JOIN to each seed address in order until one replies with a
// JOIN_RESPONSE snapshot, which is merged into the local detector. With
// no reachable seed, the node starts isolated and relies on its own
// scheduler loop to discover peers through whoever gossips to it first.
func (s *Service) Join(ctx context.Context, seeds []string) error {
	for _, seedAddr := range seeds {
		msg := s.buildMessage(Join, nil)
		reply, err := s.transport.RoundTrip(ctx, seedAddr, msg)
		if err != nil {
			continue
		}
		s.mergeIncoming(reply)
		return nil
	}
	return nil // isolated start: not an error, just an unjoined node
}

// Leave sets this node's own status to LEAVING at a bumped incarnation,
// fans LEAVE out to every currently alive peer, waits up to
// cfg.LeaveTimeout for sends to complete, then marks LEFT and stops the
// scheduler.
func (s *Service) Leave(ctx context.Context) {
	state, _ := s.detector.Get(s.selfID)
	s.detector.ApplyRemoteUpdate(s.selfID, state.Incarnation+1, swim.Leaving)

	leaveCtx, cancel := context.WithTimeout(ctx, s.cfg.LeaveTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, peerID := range s.aliveNonSelfPeers() {
		addr, ok := s.addresses.get(peerID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			msg := s.buildMessage(Leave, nil)
			s.transport.RoundTrip(leaveCtx, addr, msg)
		}(addr)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-leaveCtx.Done():
	}

	state, _ = s.detector.Get(s.selfID)
	s.detector.ApplyRemoteUpdate(s.selfID, state.Incarnation, swim.Left)
	s.Shutdown()
}

// Shutdown stops the scheduler goroutines. Idempotent.
func (s *Service) Shutdown() {
	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if !started {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Members returns a snapshot of every known peer's wire representation.
func (s *Service) Members() []wire.NodeInfo {
	all := s.detector.All()
	out := make([]wire.NodeInfo, 0, len(all))
	for id, state := range all {
		addr, _ := s.addresses.get(id)
		out = append(out, nodeInfo(id, addr, state))
	}
	return out
}

// AliveMembers returns the IDs of every peer currently believed ALIVE.
func (s *Service) AliveMembers() []string {
	all := s.detector.All()
	out := make([]string, 0, len(all))
	for id, state := range all {
		if state.Status == swim.Alive {
			out = append(out, id)
		}
	}
	return out
}

// IsInCluster reports whether this node knows of any alive peer besides
// itself, i.e. whether it has successfully joined an existing cluster.
func (s *Service) IsInCluster() bool {
	return len(s.aliveNonSelfPeers()) > 0
}

func (s *Service) aliveNonSelfPeers() []string {
	all := s.detector.All()
	out := make([]string, 0, len(all))
	for id, state := range all {
		if id != s.selfID && state.Status == swim.Alive {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) randomAlivePeer() (string, bool) {
	peers := s.aliveNonSelfPeers()
	if len(peers) == 0 {
		return "", false
	}
	return pickRandom(peers, 1)[0], true
}

func (s *Service) randomAlivePeersExcluding(n int, exclude string) []string {
	all := s.aliveNonSelfPeers()
	filtered := all[:0:0]
	for _, id := range all {
		if id != exclude {
			filtered = append(filtered, id)
		}
	}
	return pickRandom(filtered, n)
}

func (s *Service) buildNodeInfo(id string) wire.NodeInfo {
	state, _ := s.detector.Get(id)
	addr, _ := s.addresses.get(id)
	return nodeInfo(id, addr, state)
}

func (s *Service) buildMessage(msgType wire.GossipMessageType, subject *wire.NodeInfo) *wire.GossipMessage {
	return &wire.GossipMessage{
		Type:           msgType,
		Sender:         s.buildNodeInfo(s.selfID),
		Subject:        subject,
		Members:        s.piggyback(),
		SequenceNumber: s.seq.Add(1),
	}
}

// piggyback samples up to PiggybackSize random known members to ride
// along on the next outgoing message.
func (s *Service) piggyback() []wire.NodeInfo {
	all := s.detector.All()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	chosen := pickRandom(ids, s.cfg.PiggybackSize)
	out := make([]wire.NodeInfo, 0, len(chosen))
	for _, id := range chosen {
		out = append(out, s.buildNodeInfo(id))
	}
	return out
}

// mergeIncoming applies a peer's sender, subject, and piggybacked member
// entries to the local detector and address book. Safe to call with nil.
func (s *Service) mergeIncoming(msg *wire.GossipMessage) {
	if msg == nil {
		return
	}
	s.mergeNodeInfo(msg.Sender)
	if msg.Subject != nil {
		s.mergeNodeInfo(*msg.Subject)
	}
	for _, m := range msg.Members {
		s.mergeNodeInfo(m)
	}
}

func (s *Service) mergeNodeInfo(ni wire.NodeInfo) {
	if ni.ID == "" || ni.ID == s.selfID {
		return
	}
	s.addresses.set(ni.ID, ni.Address)
	s.detector.ApplyRemoteUpdate(ni.ID, ni.Incarnation, fromWireStatus(ni.Status))
}

// Local names for the wire package's message type constants, so the rest
// of this package can write Ping/Ack/... instead of wire.Ping/wire.Ack/....
const (
	Ping         = wire.Ping
	Ack          = wire.Ack
	PingReq      = wire.PingReq
	Suspect      = wire.Suspect
	Alive        = wire.Alive
	Confirm      = wire.Confirm
	Join         = wire.Join
	JoinResponse = wire.JoinResponse
	Leave        = wire.Leave
	Sync         = wire.Sync
)

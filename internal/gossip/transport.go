package gossip

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/wire"
)

// Transport sends a gossip message to addr and, for request-style
// messages (PING, PING_REQ, JOIN, SYNC), waits for the peer's reply.
// Rumor and membership-protocol fire-and-forget messages (SUSPECT,
// ALIVE, CONFIRM, LEAVE) also go through RoundTrip; callers that don't
// care about the reply simply discard it.
type Transport interface {
	RoundTrip(ctx context.Context, addr string, msg *wire.GossipMessage) (*wire.GossipMessage, error)
}

// TCPTransport is the real network Transport: one TCP connection per
// destination address, pooled and reused, replaced lazily when a
// send/receive fails.
type TCPTransport struct {
	dialTimeout time.Duration

	mu    sync.Mutex
	conns map[string]net.Conn

	// addrMu serializes round trips per destination: a pooled connection
	// carries one request and its reply at a time.
	addrMu map[string]*sync.Mutex
}

// NewTCPTransport constructs a TCPTransport with the given dial timeout.
func NewTCPTransport(dialTimeout time.Duration) *TCPTransport {
	return &TCPTransport{
		dialTimeout: dialTimeout,
		conns:       make(map[string]net.Conn),
		addrMu:      make(map[string]*sync.Mutex),
	}
}

func (t *TCPTransport) getConn(addr string) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[addr]; ok {
		return c, nil
	}
	c, err := net.DialTimeout("tcp", addr, t.dialTimeout)
	if err != nil {
		return nil, err
	}
	t.conns[addr] = c
	return c, nil
}

func (t *TCPTransport) dropConn(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[addr]; ok {
		c.Close()
		delete(t.conns, addr)
	}
}

// RoundTrip sends msg to addr over a pooled connection and waits for one
// reply frame; concurrent calls to the same addr take turns, so the frame
// read is the reply to this call's message (sequence numbers are not
// consulted). On any I/O error the broken connection is dropped so the
// next call dials fresh.
func (t *TCPTransport) RoundTrip(ctx context.Context, addr string, msg *wire.GossipMessage) (*wire.GossipMessage, error) {
	t.mu.Lock()
	lock, ok := t.addrMu[addr]
	if !ok {
		lock = &sync.Mutex{}
		t.addrMu[addr] = lock
	}
	t.mu.Unlock()
	lock.Lock()
	defer lock.Unlock()

	conn, err := t.getConn(addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Time{})
	}

	if err := wire.WriteGossipFrame(conn, wire.GossipFrame{Payload: msg.Marshal()}); err != nil {
		t.dropConn(addr)
		return nil, fmt.Errorf("gossip: send to %s: %w", addr, err)
	}

	frame, err := wire.ReadGossipFrame(conn)
	if err != nil {
		t.dropConn(addr)
		return nil, fmt.Errorf("gossip: receive from %s: %w", addr, err)
	}

	reply, err := wire.UnmarshalGossipMessage(frame.Payload)
	if err != nil {
		t.dropConn(addr)
		return nil, err
	}
	return reply, nil
}

// Close drops every pooled connection.
func (t *TCPTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, c := range t.conns {
		c.Close()
		delete(t.conns, addr)
	}
}

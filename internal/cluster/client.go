package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/coordinator"
	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// localReplicaClient satisfies coordinator.ReplicaClient by calling
// straight into this node's own Cache, skipping the network entirely when
// the coordinator's chosen replica is this node itself.
type localReplicaClient struct {
	cache *cache.Cache
}

func (l *localReplicaClient) Put(_ context.Context, key kv.Key, val kv.Value) error {
	return l.cache.Put(key, val)
}

func (l *localReplicaClient) Get(_ context.Context, key kv.Key) (kv.Value, bool, error) {
	v, ok := l.cache.Get(key)
	return v, ok, nil
}

func (l *localReplicaClient) Delete(_ context.Context, key kv.Key) error {
	return l.cache.Delete(key)
}

// rpcClient satisfies coordinator.ReplicaClient for a remote peer, sending
// cache-RPC requests over a pooled TCP connection framed with
// wire.CacheFrame, the same per-peer connection pooling shape
// gossip.TCPTransport uses for gossip traffic.
type rpcClient struct {
	addr        string
	dialTimeout time.Duration

	// reqMu serializes round trips: the connection carries one request
	// and its reply at a time.
	reqMu sync.Mutex

	mu   sync.Mutex
	conn net.Conn
}

func newRPCClient(addr string, dialTimeout time.Duration) *rpcClient {
	return &rpcClient{addr: addr, dialTimeout: dialTimeout}
}

func (c *rpcClient) getConn() (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *rpcClient) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *rpcClient) roundTrip(ctx context.Context, reqType wire.FrameType, payload []byte) (wire.CacheFrame, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	conn, err := c.getConn()
	if err != nil {
		return wire.CacheFrame{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Time{})
	}

	if err := wire.WriteCacheFrame(conn, wire.CacheFrame{Type: reqType, Payload: payload}); err != nil {
		c.dropConn()
		return wire.CacheFrame{}, fmt.Errorf("cluster: send to %s: %w", c.addr, err)
	}
	frame, err := wire.ReadCacheFrame(conn)
	if err != nil {
		c.dropConn()
		return wire.CacheFrame{}, fmt.Errorf("cluster: receive from %s: %w", c.addr, err)
	}
	return frame, nil
}

func (c *rpcClient) Put(ctx context.Context, key kv.Key, val kv.Value) error {
	req := wire.PutRequest{Key: key.String(), Entry: valueToEntry(val)}
	frame, err := c.roundTrip(ctx, wire.FramePutRequest, req.Marshal())
	if err != nil {
		return err
	}
	resp, err := wire.UnmarshalPutResponse(frame.Payload)
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusSuccess {
		return fmt.Errorf("cluster: put on %s failed: %s", c.addr, resp.ErrorMessage)
	}
	return nil
}

func (c *rpcClient) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	req := wire.GetRequest{Key: key.String()}
	frame, err := c.roundTrip(ctx, wire.FrameGetRequest, req.Marshal())
	if err != nil {
		return kv.Value{}, false, err
	}
	resp, err := wire.UnmarshalGetResponse(frame.Payload)
	if err != nil {
		return kv.Value{}, false, err
	}
	switch resp.Status {
	case wire.StatusHit:
		return entryToValue(resp.Entry), true, nil
	case wire.StatusMiss:
		return kv.Value{}, false, nil
	default:
		return kv.Value{}, false, fmt.Errorf("cluster: get on %s failed: %s", c.addr, resp.ErrorMessage)
	}
}

func (c *rpcClient) Delete(ctx context.Context, key kv.Key) error {
	req := wire.DeleteRequest{Key: key.String()}
	frame, err := c.roundTrip(ctx, wire.FrameDeleteRequest, req.Marshal())
	if err != nil {
		return err
	}
	resp, err := wire.UnmarshalDeleteResponse(frame.Payload)
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusSuccess {
		return fmt.Errorf("cluster: delete on %s failed: %s", c.addr, resp.ErrorMessage)
	}
	return nil
}

// rpcClientPool hands out one rpcClient per remote address, reused
// across calls.
type rpcClientPool struct {
	dialTimeout time.Duration

	mu      sync.Mutex
	clients map[string]*rpcClient
}

func newRPCClientPool(dialTimeout time.Duration) *rpcClientPool {
	return &rpcClientPool{dialTimeout: dialTimeout, clients: make(map[string]*rpcClient)}
}

func (p *rpcClientPool) get(addr string) *rpcClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[addr]; ok {
		return c
	}
	c := newRPCClient(addr, p.dialTimeout)
	p.clients[addr] = c
	return c
}

func (p *rpcClientPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, c := range p.clients {
		c.dropConn()
		delete(p.clients, addr)
	}
}

var _ coordinator.ReplicaClient = (*rpcClient)(nil)
var _ coordinator.ReplicaClient = (*localReplicaClient)(nil)

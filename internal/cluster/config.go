package cluster

import (
	"errors"
	"time"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/coordinator"
	"github.com/ppriyankuu/gokv/internal/gossip"
	"github.com/ppriyankuu/gokv/internal/metrics"
)

// Config holds everything needed to bring up one cluster node: its own
// identity and listen address, the seeds to join through, and the
// tunables for every layer the node facade wires together.
type Config struct {
	// NodeID uniquely identifies this node on the ring and in gossip.
	NodeID string `yaml:"node_id"`
	// CacheAddr is the host:port this node listens on for cache RPC
	// (Get/Put/Delete) from peers and accepts as its ring routing
	// address. Required.
	CacheAddr string `yaml:"cache_addr"`
	// GossipAddr is the host:port this node listens on for gossip
	// traffic. Defaults to CacheAddr's port + 1 if empty — the two
	// control planes use adjacent ports by convention so a single
	// configured address is enough for the common case.
	GossipAddr string `yaml:"gossip_addr"`
	// Seeds lists peer gossip addresses to attempt Join against at
	// startup. An empty list starts an isolated single-node cluster.
	Seeds []string `yaml:"seeds"`

	VirtualNodes int                          `yaml:"virtual_nodes"`
	Cache        cache.Config                 `yaml:"cache"`
	Gossip       gossip.Config                `yaml:"gossip"`
	Replication  coordinator.ReplicationConfig `yaml:"replication"`
	Metrics      metrics.Config               `yaml:"metrics"`

	// DialTimeout bounds outbound cache-RPC and gossip TCP dials.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DefaultConfig returns a Config with every sub-component defaulted;
// callers must still set NodeID and CacheAddr.
func DefaultConfig() Config {
	return Config{
		VirtualNodes: 256,
		Cache:        cache.Config{},
		Gossip:       gossip.DefaultConfig(),
		Replication:  coordinator.DefaultReplicationConfig(),
		Metrics:      metrics.DefaultConfig(),
		DialTimeout:  2 * time.Second,
	}
}

// Validate checks the invariants Node construction depends on.
func (c Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("cluster: node id must not be empty")
	}
	if c.CacheAddr == "" {
		return errors.New("cluster: cache address must not be empty")
	}
	if c.DialTimeout <= 0 {
		return errors.New("cluster: dial timeout must be > 0")
	}
	return nil
}

package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/gokv/internal/coordinator"
	"github.com/ppriyankuu/gokv/internal/kv"
)

func testNodeConfig(id, cacheAddr string, seeds []string) Config {
	cfg := DefaultConfig()
	cfg.NodeID = id
	cfg.CacheAddr = cacheAddr
	cfg.Seeds = seeds
	cfg.Replication.RF = 1
	cfg.Replication.ReadCL = coordinator.One
	cfg.Replication.WriteCL = coordinator.One
	cfg.Gossip.GossipInterval = 50 * time.Millisecond
	cfg.Gossip.PingTimeout = 20 * time.Millisecond
	cfg.Gossip.SuspicionTimeout = 200 * time.Millisecond
	return cfg
}

func TestNode_SingleNodePutGetDelete(t *testing.T) {
	cfg := testNodeConfig("solo", "127.0.0.1:19301", nil)
	n, err := NewNode(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, n.Start(ctx, time.Second))
	defer n.Stop(ctx, time.Second)

	key := kv.Key("hello")
	val := kv.Value{Data: []byte("world"), Version: &kv.Version{TimestampMs: 1, NodeID: "solo"}}

	require.NoError(t, n.Put(ctx, key, val, time.Second))

	got, ok, err := n.Get(ctx, key, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "world", string(got.Data))

	require.NoError(t, n.Delete(ctx, key, time.Second))
	_, ok, err = n.Get(ctx, key, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNode_TwoNodesJoinAndSeeEachOther(t *testing.T) {
	cfgA := testNodeConfig("a", "127.0.0.1:19311", nil)
	a, err := NewNode(cfgA)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx, time.Second))
	defer a.Stop(ctx, time.Second)

	cfgB := testNodeConfig("b", "127.0.0.1:19313", []string{"127.0.0.1:19312"})
	b, err := NewNode(cfgB)
	require.NoError(t, err)
	require.NoError(t, b.Start(ctx, time.Second))
	defer b.Stop(ctx, time.Second)

	// Give the gossip scheduler a few rounds to exchange JOIN_RESPONSE
	// snapshots and for the ring-sync loop to learn about each other.
	require.Eventually(t, func() bool {
		return b.IsInCluster() && a.IsInCluster()
	}, 3*time.Second, 50*time.Millisecond)

	assert.Contains(t, a.AliveMembers(), "b")
	assert.Contains(t, b.AliveMembers(), "a")
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/ring"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	c, err := NewCollector(cfg, nil, nil, nil)
	require.NoError(t, err)
	return c
}

func TestNewCollector_DisabledIsInert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c, err := NewCollector(cfg, nil, nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.RecordOperation("put", "QUORUM", time.Millisecond, nil)
		c.RecordTransition("ALIVE", "SUSPECTED")
		c.SetHintsQueued(3)
		c.RecordHintReplay(true)
		c.SetCacheSize(10)
	})
}

func TestCollector_RecordOperation(t *testing.T) {
	c := newTestCollector(t)

	c.RecordOperation("put", "QUORUM", 5*time.Millisecond, nil)
	c.RecordOperation("put", "QUORUM", 5*time.Millisecond, assert.AnError)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.operationCounter.WithLabelValues("put", "QUORUM", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.operationCounter.WithLabelValues("put", "QUORUM", "error")))
}

func TestCollector_RecordTransition(t *testing.T) {
	c := newTestCollector(t)
	c.RecordTransition("ALIVE", "SUSPECTED")
	c.RecordTransition("ALIVE", "SUSPECTED")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.transitionCounter.WithLabelValues("ALIVE", "SUSPECTED")))
}

func TestCollector_RecordCacheStatsAccumulatesDeltas(t *testing.T) {
	c := newTestCollector(t)

	c.recordCacheStats(cache.Stats{Hits: 3, Misses: 1, EvictionsByPolicy: map[string]uint64{"LRU": 2}})
	c.recordCacheStats(cache.Stats{Hits: 5, Misses: 1, EvictionsByPolicy: map[string]uint64{"LRU": 4}})

	assert.Equal(t, float64(5), testutil.ToFloat64(c.cacheHitCounter.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHitCounter.WithLabelValues("miss")))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.evictionCounter.WithLabelValues("LRU")))
}

func TestCollector_Poll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	c, err := NewCollector(cfg,
		func() cache.Stats { return cache.Stats{Hits: 2} },
		func() ring.Stats { return ring.Stats{PhysicalNodes: 3, VirtualNodes: 768} },
		func() int { return 2 },
	)
	require.NoError(t, err)

	c.poll()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheHitCounter.WithLabelValues("hit")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.ringNodesGauge.WithLabelValues("physical")))
	assert.Equal(t, float64(768), testutil.ToFloat64(c.ringNodesGauge.WithLabelValues("virtual")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.aliveMembersGauge))
}

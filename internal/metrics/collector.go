// Package metrics exposes the cache, ring, gossip and coordinator
// internals as Prometheus series: a private registry, a set of
// CounterVec/GaugeVec/HistogramVec fields initialized once, and an HTTP
// server serving promhttp's handler plus a /health endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppriyankuu/gokv/internal/cache"
	"github.com/ppriyankuu/gokv/internal/ring"
)

// CacheSource is polled periodically for a point-in-time cache.Stats
// snapshot. Plugged in rather than imported as a concrete *cache.Cache so
// a Collector can be constructed before the node it observes exists.
type CacheSource func() cache.Stats

// RingSource is polled periodically for the ring's node composition.
type RingSource func() ring.Stats

// ClusterSource reports the number of peers this node currently believes
// are alive, not counting itself.
type ClusterSource func() int

// Collector registers and serves every Prometheus series gokv exports.
type Collector struct {
	config   Config
	registry *prometheus.Registry
	server   *http.Server

	cacheSource   CacheSource
	ringSource    RingSource
	clusterSource ClusterSource

	lastHits      uint64
	lastMisses    uint64
	lastEvictions map[string]uint64

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheHitCounter   *prometheus.CounterVec
	cacheSizeGauge    prometheus.Gauge
	evictionCounter   *prometheus.CounterVec
	ringNodesGauge    *prometheus.GaugeVec
	aliveMembersGauge prometheus.Gauge
	transitionCounter *prometheus.CounterVec
	hintsQueuedGauge  prometheus.Gauge
	hintReplayCounter *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its series with a fresh
// registry. Returns a disabled, inert Collector when cfg.Enabled is
// false so callers can record against it unconditionally without a nil
// check at every call site.
func NewCollector(cfg Config, cacheSrc CacheSource, ringSrc RingSource, clusterSrc ClusterSource) (*Collector, error) {
	if !cfg.Enabled {
		return &Collector{config: cfg}, nil
	}

	c := &Collector{
		config:        cfg,
		registry:      prometheus.NewRegistry(),
		cacheSource:   cacheSrc,
		ringSource:    ringSrc,
		clusterSource: clusterSrc,
		lastEvictions: make(map[string]uint64),
	}
	c.initMetrics()
	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("metrics: register: %w", err)
	}
	return c, nil
}

func (c *Collector) initMetrics() {
	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "coordinator_operations_total",
		Help:      "Replicated operations by type, consistency level and outcome.",
	}, []string{"operation", "consistency", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "coordinator_operation_duration_seconds",
		Help:      "Latency of replicated operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"operation"})

	c.cacheHitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "cache_requests_total",
		Help:      "Local cache lookups by outcome.",
	}, []string{"outcome"})

	c.cacheSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "cache_entries",
		Help:      "Live entries held by the local cache.",
	})

	c.evictionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "cache_evictions_total",
		Help:      "Evictions performed by the local cache, by policy.",
	}, []string{"policy"})

	c.ringNodesGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "ring_nodes",
		Help:      "Nodes currently tracked by the consistent-hash ring.",
	}, []string{"kind"})

	c.aliveMembersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "cluster_alive_peers",
		Help:      "Peers other than self currently believed ALIVE.",
	})

	c.transitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "failure_detector_transitions_total",
		Help:      "Membership status transitions observed by the failure detector.",
	}, []string{"from", "to"})

	c.hintsQueuedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "hinted_handoff_queued",
		Help:      "Hints currently queued for replay against a down node.",
	})

	c.hintReplayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "hinted_handoff_replayed_total",
		Help:      "Hints replayed once their target node rejoined, by outcome.",
	}, []string{"status"})
}

func (c *Collector) registerMetrics() error {
	collectors := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.cacheHitCounter,
		c.cacheSizeGauge,
		c.evictionCounter,
		c.ringNodesGauge,
		c.aliveMembersGauge,
		c.transitionCounter,
		c.hintsQueuedGauge,
		c.hintReplayCounter,
	}
	for _, coll := range collectors {
		if err := c.registry.Register(coll); err != nil {
			return err
		}
	}
	return nil
}

// Start serves the registry's metrics endpoint and begins the periodic
// poll of CacheSource/RingSource/ClusterSource. No-op when metrics are
// disabled.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c.server = &http.Server{
		Addr:              c.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics: server error: %v\n", err)
		}
	}()

	go c.updateLoop(ctx)
	return nil
}

// Handler returns the promhttp handler for this Collector's registry, for
// embedding behind a caller's own router (e.g. the node facade's gin
// router) in addition to the Collector's own standalone server. Returns
// an empty 204 handler when metrics are disabled.
func (c *Collector) Handler() http.Handler {
	if !c.config.Enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Stop shuts the metrics HTTP server down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

func (c *Collector) updateLoop(ctx context.Context) {
	interval := c.config.UpdateInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Collector) poll() {
	if c.cacheSource != nil {
		c.recordCacheStats(c.cacheSource())
	}
	if c.ringSource != nil {
		rs := c.ringSource()
		c.ringNodesGauge.With(prometheus.Labels{"kind": "physical"}).Set(float64(rs.PhysicalNodes))
		c.ringNodesGauge.With(prometheus.Labels{"kind": "virtual"}).Set(float64(rs.VirtualNodes))
	}
	if c.clusterSource != nil {
		c.aliveMembersGauge.Set(float64(c.clusterSource()))
	}
}

// recordCacheStats reconciles the CounterVec series against a fresh
// cache.Stats snapshot. cache.Stats' counters are cumulative totals
// backed by atomics the Cache owns directly, not deltas — so each poll
// advances the Prometheus counters by only the difference since the last
// poll (Prometheus counters have no Set by design).
func (c *Collector) recordCacheStats(s cache.Stats) {
	if s.Hits > c.lastHits {
		c.cacheHitCounter.With(prometheus.Labels{"outcome": "hit"}).Add(float64(s.Hits - c.lastHits))
	}
	c.lastHits = s.Hits

	if s.Misses > c.lastMisses {
		c.cacheHitCounter.With(prometheus.Labels{"outcome": "miss"}).Add(float64(s.Misses - c.lastMisses))
	}
	c.lastMisses = s.Misses

	for policy, n := range s.EvictionsByPolicy {
		if n > c.lastEvictions[policy] {
			c.evictionCounter.With(prometheus.Labels{"policy": policy}).Add(float64(n - c.lastEvictions[policy]))
		}
		c.lastEvictions[policy] = n
	}
}

// SetCacheSize reports the cache's current live entry count. Kept
// separate from cache.Stats since entry count is a gauge (current size,
// not cumulative), unlike every other field on that struct.
func (c *Collector) SetCacheSize(n int) {
	if !c.config.Enabled {
		return
	}
	c.cacheSizeGauge.Set(float64(n))
}

// RecordOperation records a single replicated operation's outcome and
// latency, called from the coordinator (or cluster.Node wrapping it)
// after every Put/Get/Delete.
func (c *Collector) RecordOperation(operation, consistency string, dur time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{
		"operation":   operation,
		"consistency": consistency,
		"status":      status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{"operation": operation}).Observe(dur.Seconds())
}

// RecordTransition records a failure-detector status change.
func (c *Collector) RecordTransition(from, to string) {
	if !c.config.Enabled {
		return
	}
	c.transitionCounter.With(prometheus.Labels{"from": from, "to": to}).Inc()
}

// SetHintsQueued reports the current depth of the hinted-handoff queue.
func (c *Collector) SetHintsQueued(n int) {
	if !c.config.Enabled {
		return
	}
	c.hintsQueuedGauge.Set(float64(n))
}

// RecordHintReplay records one hint replay attempt's outcome.
func (c *Collector) RecordHintReplay(success bool) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.hintReplayCounter.With(prometheus.Labels{"status": status}).Inc()
}

// Package api wires up the Gin HTTP router with all handler functions.
// A Handler holds a single *cluster.Node facade, which in turn owns the
// cache, ring, gossip service and coordinator every route ultimately
// delegates to.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppriyankuu/gokv/internal/cluster"
	"github.com/ppriyankuu/gokv/internal/kv"
)

// Handler holds all dependencies injected from main.
type Handler struct {
	node    *cluster.Node
	timeout time.Duration
}

// NewHandler creates a Handler bounding every request it serves by
// timeout.
func NewHandler(node *cluster.Node, timeout time.Duration) *Handler {
	return &Handler{node: node, timeout: timeout}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	// Public KV API — used by clients.
	kvGroup := r.Group("/kv")
	kvGroup.GET("/:key", h.Get)
	kvGroup.PUT("/:key", h.Put)
	kvGroup.DELETE("/:key", h.Delete)

	// Cluster management.
	clusterGroup := r.Group("/cluster")
	clusterGroup.POST("/join", h.Join)
	clusterGroup.GET("/nodes", h.ListNodes)

	// Gossip debug surface — the gossip member list with the alive peers
	// broken out; /cluster/nodes returns the same member list on its own.
	r.GET("/gossip", h.GossipDebug)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.node.Metrics().Handler()))
}

// putRequest is the PUT /kv/:key body. Value is base64-free raw text by
// design: the HTTP surface is a convenience layer over the binary wire
// protocol, not a binary-safe one.
type putRequest struct {
	Value string `json:"value" binding:"required"`
}

// Put handles PUT /kv/:key.
func (h *Handler) Put(c *gin.Context) {
	key, err := kv.NewKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body putRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	val := kv.Value{Data: []byte(body.Value)}
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	if err := h.node.Put(ctx, key, val, h.timeout); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key.String()})
}

// Get handles GET /kv/:key.
func (h *Handler) Get(c *gin.Context) {
	key, err := kv.NewKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	val, ok, err := h.node.Get(ctx, key, h.timeout)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":     key.String(),
		"value":   string(val.Data),
		"version": val.Version,
	})
}

// Delete handles DELETE /kv/:key.
func (h *Handler) Delete(c *gin.Context) {
	key, err := kv.NewKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	if err := h.node.Delete(ctx, key, h.timeout); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key.String()})
}

// joinRequest is the POST /cluster/join body.
type joinRequest struct {
	Seeds []string `json:"seeds" binding:"required,min=1,dive,required"`
}

// Join handles POST /cluster/join: asks this already-running node to
// additionally attempt gossip Join against the given seed addresses.
func (h *Handler) Join(c *gin.Context) {
	var body joinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	if err := h.node.Join(ctx, body.Seeds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": body.Seeds})
}

// ListNodes handles GET /cluster/nodes.
func (h *Handler) ListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.node.Members()})
}

// GossipDebug handles GET /gossip: the raw failure-detector view of
// membership, alive peers broken out separately from the full roster.
func (h *Handler) GossipDebug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"members": h.node.Members(),
		"alive":   h.node.AliveMembers(),
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"in_cluster":  h.node.IsInCluster(),
		"alive_peers": len(h.node.AliveMembers()),
	})
}

func contextWithTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/gokv/internal/cluster"
	"github.com/ppriyankuu/gokv/internal/coordinator"
)

func newTestRouter(t *testing.T, addr string) (*gin.Engine, *cluster.Node) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := cluster.DefaultConfig()
	cfg.NodeID = "api-test"
	cfg.CacheAddr = addr
	cfg.Metrics.Enabled = false
	cfg.Replication.RF = 1
	cfg.Replication.ReadCL = coordinator.One
	cfg.Replication.WriteCL = coordinator.One

	node, err := cluster.NewNode(cfg)
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background(), time.Second))
	t.Cleanup(func() { node.Stop(context.Background(), time.Second) })

	r := gin.New()
	NewHandler(node, time.Second).Register(r)
	return r, node
}

func TestHandler_PutGetDelete(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:19401")

	putBody, _ := json.Marshal(putRequest{Value: "hello"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/kv/greeting", bytes.NewReader(putBody))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/kv/greeting", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var getResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	assert.Equal(t, "hello", getResp["value"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/kv/greeting", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/kv/greeting", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetMissingKeyIsNotFound(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:19402")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/kv/missing", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListNodesAndGossipDebug(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:19403")

	for _, path := range []string{"/cluster/nodes", "/gossip", "/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHandler_JoinRejectsEmptySeeds(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:19404")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cluster/join", bytes.NewReader([]byte(`{"seeds":[]}`)))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/gokv/internal/coordinator"
)

const sampleYAML = `
node_id: node-a
cache_addr: 127.0.0.1:7000
seeds:
  - 127.0.0.1:7101
  - 127.0.0.1:7201
virtual_nodes: 128
replication:
  replication_factor: 3
  read_consistency: QUORUM
  write_consistency: ALL
cache:
  capacity: 5000
  policy: FIFO
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gokv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesYAMLOverDefaults(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node-a", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:7000", cfg.CacheAddr)
	assert.Equal(t, []string{"127.0.0.1:7101", "127.0.0.1:7201"}, cfg.Seeds)
	assert.Equal(t, 128, cfg.VirtualNodes)
	assert.Equal(t, 3, cfg.Replication.RF)
	assert.Equal(t, coordinator.Quorum, cfg.Replication.ReadCL)
	assert.Equal(t, coordinator.All, cfg.Replication.WriteCL)
	assert.Equal(t, 5000, cfg.Cache.Capacity)

	// Untouched fields keep cluster.DefaultConfig's values.
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2_000_000_000, int(cfg.DialTimeout))
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv("GOKV_NODE_ID", "")
	cfg, err := Load("")
	require.NoError(t, err) // NodeID/CacheAddr are left empty for the caller to fill in and validate
	assert.Equal(t, 256, cfg.VirtualNodes)
}

func TestApplyEnv_OverridesIdentityAndSeeds(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	t.Setenv("GOKV_NODE_ID", "node-b")
	t.Setenv("GOKV_SEEDS", "10.0.0.1:9000, 10.0.0.2:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node-b", cfg.NodeID)
	assert.Equal(t, []string{"10.0.0.1:9000", "10.0.0.2:9000"}, cfg.Seeds)
}

// Package config loads a cluster.Config from a YAML file on disk,
// layering it over cluster.DefaultConfig and allowing a handful of
// deployment-time values to be overridden from the environment: a
// defaulted struct, a file load that unmarshals over it, and an env-var
// pass for the values operators most often need to vary per-instance
// without editing a file (container orchestrators pass these as env
// vars, not mounts).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppriyankuu/gokv/internal/cluster"
)

// Load reads path as YAML into a cluster.DefaultConfig baseline and applies
// environment overrides. It does not validate the result: NodeID and
// CacheAddr may still be empty, so a caller can layer its own overrides
// (e.g. command-line flags) on top before calling Validate.
func Load(path string) (cluster.Config, error) {
	cfg := cluster.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cluster.Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cluster.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides the handful of fields operators most commonly pin
// per-instance via the environment rather than a config file: identity,
// addresses, and seed list.
func applyEnv(cfg *cluster.Config) {
	if v := os.Getenv("GOKV_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("GOKV_CACHE_ADDR"); v != "" {
		cfg.CacheAddr = v
	}
	if v := os.Getenv("GOKV_GOSSIP_ADDR"); v != "" {
		cfg.GossipAddr = v
	}
	if v := os.Getenv("GOKV_SEEDS"); v != "" {
		cfg.Seeds = splitAndTrim(v)
	}
	if v := os.Getenv("GOKV_VIRTUAL_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VirtualNodes = n
		}
	}
	if v := os.Getenv("GOKV_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

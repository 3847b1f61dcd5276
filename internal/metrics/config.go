package metrics

import "time"

// Config controls whether and where a Collector exposes Prometheus
// metrics: Enabled/Addr/Path plus a namespace/subsystem pair so every
// series this package registers is prefixed consistently.
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Path           string        `yaml:"path"`
	Namespace      string        `yaml:"namespace"`
	Subsystem      string        `yaml:"subsystem"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// DefaultConfig returns metrics enabled on :9090/metrics, polling
// gauge-backed sources every 5 seconds.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Addr:           ":9090",
		Path:           "/metrics",
		Namespace:      "gokv",
		UpdateInterval: 5 * time.Second,
	}
}

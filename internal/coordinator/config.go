package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConsistencyLevel selects how many replicas must acknowledge a
// replicated operation before the coordinator considers it complete.
type ConsistencyLevel int

const (
	One ConsistencyLevel = iota
	Quorum
	All
)

// String implements fmt.Stringer.
func (cl ConsistencyLevel) String() string {
	switch cl {
	case One:
		return "ONE"
	case Quorum:
		return "QUORUM"
	case All:
		return "ALL"
	default:
		return "UNKNOWN"
	}
}

// UnmarshalYAML lets config files spell consistency levels as the plain
// strings ONE/QUORUM/ALL instead of their underlying int values.
func (cl *ConsistencyLevel) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseConsistencyLevel(s)
	if err != nil {
		return err
	}
	*cl = parsed
	return nil
}

// MarshalYAML renders a ConsistencyLevel back as its string name.
func (cl ConsistencyLevel) MarshalYAML() (interface{}, error) {
	return cl.String(), nil
}

// ParseConsistencyLevel parses the case-insensitive names ONE/QUORUM/ALL,
// for config files and CLI flags.
func ParseConsistencyLevel(s string) (ConsistencyLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ONE":
		return One, nil
	case "QUORUM":
		return Quorum, nil
	case "ALL":
		return All, nil
	default:
		return 0, fmt.Errorf("coordinator: unknown consistency level %q", s)
	}
}

// ReplicationConfig is the coordinator's static policy: the replication
// factor and the default consistency levels for reads and writes.
// Constant after construction.
type ReplicationConfig struct {
	RF                   int              `yaml:"replication_factor"`
	ReadCL               ConsistencyLevel `yaml:"read_consistency"`
	WriteCL              ConsistencyLevel `yaml:"write_consistency"`
	HintedHandoffEnabled bool             `yaml:"hinted_handoff_enabled"`
	ReadRepairEnabled    bool             `yaml:"read_repair_enabled"`
}

// DefaultReplicationConfig returns rf=3, QUORUM/QUORUM, both repair
// mechanisms enabled.
func DefaultReplicationConfig() ReplicationConfig {
	return ReplicationConfig{
		RF:                   3,
		ReadCL:               Quorum,
		WriteCL:              Quorum,
		HintedHandoffEnabled: true,
		ReadRepairEnabled:    true,
	}
}

// Validate checks the one invariant ReplicationConfig construction
// depends on: rf >= 1. An rf of 1 degenerates every consistency level to
// requiring the sole replica, which is legal (a single-node cluster).
func (c ReplicationConfig) Validate() error {
	if c.RF < 1 {
		return errors.New("coordinator: replication factor must be >= 1")
	}
	return nil
}

// Quorum is the smallest majority of rf replicas: rf/2 + 1.
func (c ReplicationConfig) Quorum() int {
	return c.RF/2 + 1
}

// requiredResponses returns how many replica responses cl demands out of
// rf total replicas: ONE -> 1, QUORUM -> rf/2+1, ALL -> rf.
func requiredResponses(cl ConsistencyLevel, rf int) int {
	switch cl {
	case One:
		return 1
	case All:
		return rf
	case Quorum:
		fallthrough
	default:
		return rf/2 + 1
	}
}

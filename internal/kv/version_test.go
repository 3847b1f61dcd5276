package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCompare_TotalOrder(t *testing.T) {
	a := Version{TimestampMs: 1000, NodeID: "n1"}
	b := Version{TimestampMs: 1000, NodeID: "n2"}
	c := Version{TimestampMs: 2000, NodeID: "n1"}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
	assert.True(t, a.Less(c))

	// antisymmetry
	assert.Equal(t, -a.Compare(b), b.Compare(a))

	// reflexivity / equality
	assert.Equal(t, 0, a.Compare(a))
}

func TestVersionCompare_TiesBrokenByNodeID(t *testing.T) {
	a := Version{TimestampMs: 42, NodeID: "a"}
	b := Version{TimestampMs: 42, NodeID: "b"}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
}

func TestNowVersion_StampsNodeID(t *testing.T) {
	v := NowVersion("node-7")
	assert.Equal(t, "node-7", v.NodeID)
	assert.Greater(t, v.TimestampMs, int64(0))
}

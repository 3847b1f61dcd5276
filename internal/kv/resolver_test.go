package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastWriteWinsResolver_EmptyInput(t *testing.T) {
	_, err := LastWriteWinsResolver{}.Resolve(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestLastWriteWinsResolver_Idempotent(t *testing.T) {
	v := Value{Data: []byte("x"), Version: &Version{TimestampMs: 1, NodeID: "n1"}}
	got, err := LastWriteWinsResolver{}.Resolve([]Value{v})
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestLastWriteWinsResolver_PicksMaxVersion(t *testing.T) {
	older := Value{Data: []byte("old"), Version: &Version{TimestampMs: 1000, NodeID: "n1"}}
	newer := Value{Data: []byte("new"), Version: &Version{TimestampMs: 2000, NodeID: "n2"}}

	got, err := LastWriteWinsResolver{}.Resolve([]Value{older, newer})
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	// commutative: order shouldn't matter
	got2, err := LastWriteWinsResolver{}.Resolve([]Value{newer, older})
	require.NoError(t, err)
	assert.Equal(t, got, got2)
}

func TestLastWriteWinsResolver_NoVersionFallsBackToCreatedAt(t *testing.T) {
	now := time.Now()
	older := Value{Data: []byte("old"), CreatedAt: now.Add(-time.Minute)}
	newer := Value{Data: []byte("new"), CreatedAt: now}

	got, err := LastWriteWinsResolver{}.Resolve([]Value{older, newer})
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestLastWriteWinsResolver_VersionedBeatsUnversioned(t *testing.T) {
	unversioned := Value{Data: []byte("a"), CreatedAt: time.Now()}
	versioned := Value{Data: []byte("b"), Version: &Version{TimestampMs: 1, NodeID: "n1"}}

	got, err := LastWriteWinsResolver{}.Resolve([]Value{unversioned, versioned})
	require.NoError(t, err)
	assert.Equal(t, versioned, got)
}

func TestLastWriteWinsResolver_Associative(t *testing.T) {
	a := Value{Data: []byte("a"), Version: &Version{TimestampMs: 1, NodeID: "n1"}}
	b := Value{Data: []byte("b"), Version: &Version{TimestampMs: 2, NodeID: "n1"}}
	c := Value{Data: []byte("c"), Version: &Version{TimestampMs: 3, NodeID: "n1"}}

	r := LastWriteWinsResolver{}
	ab, _ := r.Resolve([]Value{a, b})
	abc1, _ := r.Resolve([]Value{ab, c})
	bc, _ := r.Resolve([]Value{b, c})
	abc2, _ := r.Resolve([]Value{a, bc})

	assert.Equal(t, abc1, abc2)
	assert.Equal(t, c, abc1)
}

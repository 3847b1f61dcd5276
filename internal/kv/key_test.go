package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey_RejectsEmpty(t *testing.T) {
	_, err := NewKey("")
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestNewKey_AcceptsNonEmpty(t *testing.T) {
	k, err := NewKey("user:123")
	require.NoError(t, err)
	assert.Equal(t, "user:123", k.String())
}

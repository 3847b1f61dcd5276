package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/gokv/internal/kv"
)

func TestReaper_SweepsExpiredEntriesOnInterval(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, c.Put(mustKey(t, "stale"), kv.Value{Data: []byte("x"), ExpiresAt: &past}))

	r := NewReaper(c, 10*time.Millisecond)
	r.Start()
	defer r.Shutdown()

	require.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestReaper_ShutdownIsIdempotent(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	r := NewReaper(c, time.Hour)
	r.Start()

	r.Shutdown()
	assert.NotPanics(t, func() { r.Shutdown() })
}

func TestReaper_ShutdownBeforeStartReturnsImmediately(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	r := NewReaper(c, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown before Start blocked")
	}
}

func TestReaper_StartTwiceOnlyRunsOneGoroutine(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	r := NewReaper(c, time.Hour)
	r.Start()
	r.Start() // must be a no-op, not a second ticker/goroutine

	r.Shutdown()
}

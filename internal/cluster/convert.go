package cluster

import (
	"time"

	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/wire"
)

// valueToEntry converts a kv.Value to its wire representation. The wire
// package stays ignorant of kv on purpose — the frame codec is a
// transport concern, not a domain one — so this conversion lives with the
// code that speaks both languages.
func valueToEntry(v kv.Value) wire.CacheEntry {
	e := wire.CacheEntry{
		Data:      v.Data,
		CreatedAt: v.CreatedAt.UnixMilli(),
	}
	if v.ExpiresAt != nil {
		e.ExpiresAt = v.ExpiresAt.UnixMilli()
	}
	if v.Version != nil {
		e.Version = &wire.Version{TimestampMs: v.Version.TimestampMs, NodeID: v.Version.NodeID}
	}
	return e
}

// entryToValue converts a wire.CacheEntry back to a kv.Value. A nil entry
// (no hit) yields the zero Value.
func entryToValue(e *wire.CacheEntry) kv.Value {
	if e == nil {
		return kv.Value{}
	}
	v := kv.Value{
		Data:      e.Data,
		CreatedAt: time.UnixMilli(e.CreatedAt),
	}
	if e.ExpiresAt != 0 {
		t := time.UnixMilli(e.ExpiresAt)
		v.ExpiresAt = &t
	}
	if e.Version != nil {
		v.Version = &kv.Version{TimestampMs: e.Version.TimestampMs, NodeID: e.Version.NodeID}
	}
	return v
}

package coordinator

import (
	"context"

	"github.com/ppriyankuu/gokv/internal/kv"
	"github.com/ppriyankuu/gokv/internal/ring"
)

// ReplicaClient is how the coordinator reaches one physical replica,
// whether that replica is this node's own local cache or a remote node
// spoken to over the wire cache-RPC frame. The coordinator never knows
// which; ClientResolver hides that behind a uniform interface so every
// code path above it treats "is this node me or a peer" the same way.
type ReplicaClient interface {
	Put(ctx context.Context, key kv.Key, val kv.Value) error
	Get(ctx context.Context, key kv.Key) (kv.Value, bool, error)
	Delete(ctx context.Context, key kv.Key) error
}

// ClientResolver returns the ReplicaClient used to reach node. Resolvers
// are expected to be cheap and side-effect-free (e.g. a map lookup plus
// lazy connection setup) since the coordinator calls one per replica on
// every operation.
type ClientResolver func(node ring.Node) (ReplicaClient, error)

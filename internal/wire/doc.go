// Package wire implements the two length-prefixed, type-tagged binary
// frame formats this system's nodes speak to each other: cache RPCs (get,
// put, delete request/response, plus a gossip-carrying envelope) and the
// gossip protocol's own frame.
//
// Big idea:
//
// Every message on the wire is protobuf-shaped — fixed field numbers,
// varint-encoded integers, length-delimited strings and nested messages —
// but hand-encoded with google.golang.org/protobuf's low-level protowire
// primitives rather than generated from a .proto file. That keeps the
// wire format exactly as compact and forward-compatible as a real
// protobuf schema (unknown higher field numbers are simply skippable)
// without carrying a code-generation step for six small, stable message
// shapes.
package wire
